// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ava-labs/multistore/storage"
	"github.com/ava-labs/multistore/x/smt"
)

type command struct {
	minArgs int
	// maxArgs is negative if the command accepts any number of arguments.
	maxArgs int
	run     func(ctx context.Context, s *storage.Storage, p *printer, args []string) error
}

var commands = map[string]command{
	"get":      {minArgs: 1, maxArgs: 1, run: get},
	"prove":    {minArgs: 1, maxArgs: 1, run: prove},
	"scan":     {minArgs: 0, maxArgs: 1, run: scan},
	"keys":     {minArgs: 0, maxArgs: 1, run: keys},
	"raw-get":  {minArgs: 1, maxArgs: 1, run: rawGet},
	"raw-scan": {minArgs: 0, maxArgs: 3, run: rawScan},
	"root":     {minArgs: 0, maxArgs: 1, run: root},
	"put":      {minArgs: 1, maxArgs: -1, run: put},
	"delete":   {minArgs: 1, maxArgs: -1, run: del},
}

// printer writes values readably to terminals and as hex otherwise.
type printer struct {
	out      io.Writer
	readable bool
}

func (p *printer) bytes(b []byte) string {
	switch {
	case b == nil:
		return "<absent>"
	case p.readable:
		return fmt.Sprintf("%q", b)
	default:
		return hex.EncodeToString(b)
	}
}

func (p *printer) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func get(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	value, err := s.LatestSnapshot().Get(ctx, args[0])
	if err != nil {
		return err
	}
	p.printf("%s\n", p.bytes(value))
	return nil
}

func prove(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	snapshot := s.LatestSnapshot()
	key := []byte(args[0])
	value, chain, err := snapshot.GetWithProof(ctx, key)
	if err != nil {
		return err
	}
	root, err := snapshot.RootHash(ctx)
	if err != nil {
		return err
	}
	if err := storage.VerifyProofChain(s.Config(), root, key, value, chain); err != nil {
		return err
	}
	encoded, err := chain.Marshal()
	if err != nil {
		return err
	}

	p.printf("version: %d\nroot: %s\nvalue: %s\n", snapshot.Version(), root, p.bytes(value))
	for i, link := range chain {
		p.printf("link %d: key=%q proof=%s\n", i, link.Key, hex.EncodeToString(encoded[i]))
	}
	return nil
}

func scan(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	stream := s.LatestSnapshot().PrefixRaw(ctx, optionalArg(args, 0))
	defer stream.Close()

	for stream.Next() {
		kv := stream.Item()
		p.printf("%q: %s\n", kv.Key, p.bytes(kv.Value))
	}
	return stream.Err()
}

func keys(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	stream := s.LatestSnapshot().PrefixKeys(ctx, optionalArg(args, 0))
	defer stream.Close()

	for stream.Next() {
		p.printf("%q\n", stream.Item())
	}
	return stream.Err()
}

func rawGet(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	value, err := s.LatestSnapshot().NonverifiableGet(ctx, []byte(args[0]))
	if err != nil {
		return err
	}
	p.printf("%s\n", p.bytes(value))
	return nil
}

func rawScan(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	r := storage.Range{
		Start: []byte(optionalArg(args, 1)),
	}
	if len(args) > 2 {
		r.End = []byte(args[2])
	}
	stream, err := s.LatestSnapshot().NonverifiableRangeRaw(ctx, []byte(optionalArg(args, 0)), r)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		kv := stream.Item()
		p.printf("%s: %s\n", p.bytes(kv.Key), p.bytes(kv.Value))
	}
	return stream.Err()
}

func root(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	snapshot := s.LatestSnapshot()
	var (
		hash smt.Hash
		err  error
	)
	if len(args) == 1 {
		hash, err = snapshot.RootHashFor(ctx, args[0])
	} else {
		hash, err = snapshot.RootHash(ctx)
	}
	if err != nil {
		return err
	}
	p.printf("version: %d\nroot: %s\n", snapshot.Version(), hash)
	return nil
}

func put(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	changes := storage.NewChangeset()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: %q is not of the form key=value", errUsage, arg)
		}
		changes.Put(key, []byte(value))
	}
	return commit(ctx, s, p, changes)
}

func del(ctx context.Context, s *storage.Storage, p *printer, args []string) error {
	changes := storage.NewChangeset()
	for _, key := range args {
		changes.Delete(key)
	}
	return commit(ctx, s, p, changes)
}

func commit(ctx context.Context, s *storage.Storage, p *printer, changes *storage.Changeset) error {
	version, root, err := s.Commit(ctx, changes)
	if err != nil {
		return err
	}
	p.printf("version: %d\nroot: %s\n", version, root)
	return nil
}
