// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/prefixdb"
	"github.com/ava-labs/multistore/utils/logging"
	"github.com/ava-labs/multistore/x/smt"
)

// PreGenesisVersion is the version of a store before its first commit. Every
// sub-store is empty at this version.
const PreGenesisVersion uint64 = math.MaxUint64

const (
	opGet                    = "get"
	opNonverifiableGet       = "nonverifiable_get"
	opGetWithProof           = "get_with_proof"
	opPrefixRaw              = "prefix_raw"
	opPrefixKeys             = "prefix_keys"
	opNonverifiablePrefixRaw = "nonverifiable_prefix_raw"
	opNonverifiableRangeRaw  = "nonverifiable_range_raw"
)

var _ StateReader = (*Snapshot)(nil)

type KeyValue struct {
	Key   string
	Value []byte
}

type RawKeyValue struct {
	Key   []byte
	Value []byte
}

// Range bounds a scan. Start is inclusive and End is exclusive. A nil End is
// unbounded.
type Range struct {
	Start []byte
	End   []byte
}

// pinned is an engine snapshot that is released once nothing references it.
type pinned struct {
	database.Snapshot
}

func pin(snapshot database.Snapshot) *pinned {
	p := &pinned{Snapshot: snapshot}
	runtime.SetFinalizer(p, (*pinned).release)
	return p
}

func (p *pinned) release() {
	p.Snapshot.Release()
}

// Snapshot is an immutable view of every sub-store at one version. It is safe
// for concurrent use and stays readable for as long as it is referenced, even
// after newer versions are committed.
type Snapshot struct {
	version   uint64
	config    *MultistoreConfig
	db        *pinned
	substores map[*SubstoreConfig]*substoreSnapshot
	bridge    *bridge
}

func newSnapshot(
	version uint64,
	config *MultistoreConfig,
	db *pinned,
	roots map[*SubstoreConfig]smt.Hash,
	cache *smt.Cache,
	treeMetrics smt.Metrics,
	bridge *bridge,
	log logging.Logger,
) *Snapshot {
	substores := make(map[*SubstoreConfig]*substoreSnapshot, len(roots))
	for substore, root := range roots {
		substores[substore] = newSubstoreSnapshot(substore, db, root, cache, treeMetrics, log)
	}
	return &Snapshot{
		version:   version,
		config:    config,
		db:        db,
		substores: substores,
		bridge:    bridge,
	}
}

// loadRoots reads the root of every sub-store at [version]. A sub-store
// without a recorded root is empty.
func loadRoots(
	db database.KeyValueReaderIteratee,
	config *MultistoreConfig,
	version uint64,
) (map[*SubstoreConfig]smt.Hash, error) {
	substores := config.Substores()
	roots := make(map[*SubstoreConfig]smt.Hash, len(substores))
	for _, substore := range substores {
		if version == PreGenesisVersion {
			roots[substore] = smt.EmptyRoot
			continue
		}

		rootBytes, err := prefixdb.NewReader(substore.roots, db).Get(database.PackUInt64(version))
		if errors.Is(err, database.ErrNotFound) {
			roots[substore] = smt.EmptyRoot
			continue
		}
		if err != nil {
			return nil, err
		}
		root, err := smt.ToHash(rootBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: root of %s at version %d: %w", ErrConsistency, substore, version, err)
		}
		roots[substore] = root
	}
	return roots, nil
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

// Get returns the value of [key], or nil if [key] has no value.
func (s *Snapshot) Get(ctx context.Context, key string) ([]byte, error) {
	substore, residual := s.config.Route(key)
	return call(ctx, s.bridge, opGet, func() ([]byte, error) {
		return s.substores[substore].get([]byte(residual))
	}, s.spanOptions(substore))
}

// NonverifiableGet returns the unauthenticated value of [key], or nil if
// [key] has no value.
func (s *Snapshot) NonverifiableGet(ctx context.Context, key []byte) ([]byte, error) {
	substore, residual := s.config.RouteBytes(key)
	return call(ctx, s.bridge, opNonverifiableGet, func() ([]byte, error) {
		return s.substores[substore].nonverifiableGet(residual)
	}, s.spanOptions(substore))
}

type valueWithProof struct {
	value []byte
	chain ProofChain
}

// GetWithProof returns the value of [key], or nil if [key] has no value, and
// a proof of the result against the composite root of this version.
func (s *Snapshot) GetWithProof(ctx context.Context, key []byte) ([]byte, ProofChain, error) {
	substore, residual := s.config.RouteBytes(key)
	result, err := call(ctx, s.bridge, opGetWithProof, func() (valueWithProof, error) {
		return s.prove(substore, residual)
	}, s.spanOptions(substore))
	return result.value, result.chain, err
}

func (s *Snapshot) prove(substore *SubstoreConfig, key []byte) (valueWithProof, error) {
	value, proof, err := s.substores[substore].getWithProof(key)
	if err != nil {
		return valueWithProof{}, err
	}
	chain := ProofChain{{
		Key:   slices.Clone(key),
		Proof: proof,
	}}

	for child := substore; !child.IsMain(); child = child.parent {
		childRoot := s.substores[child].root()
		parent := s.substores[child.parent]
		rootKey := []byte(child.rootKey)

		storedRoot, proof, err := parent.getWithProof(rootKey)
		if err != nil {
			return valueWithProof{}, err
		}
		if !holdsRoot(storedRoot, childRoot) {
			return valueWithProof{}, parent.inconsistent(fmt.Errorf(
				"root of %s is %s but its parent stores %x",
				child, childRoot, storedRoot,
			))
		}
		chain = append(chain, ProofLink{
			Key:   rootKey,
			Proof: proof,
		})
	}
	return valueWithProof{
		value: value,
		chain: chain,
	}, nil
}

// holdsRoot returns true if [stored] is how a parent tree records a child
// with [root].
func holdsRoot(stored []byte, root smt.Hash) bool {
	if root.IsEmpty() {
		return stored == nil
	}
	return bytes.Equal(stored, root[:])
}

// RootHash returns the composite root of this version.
func (s *Snapshot) RootHash(context.Context) (smt.Hash, error) {
	return s.substores[s.config.main].root(), nil
}

// RootHashFor returns the root of the sub-store that [prefix] routes to.
func (s *Snapshot) RootHashFor(_ context.Context, prefix string) (smt.Hash, error) {
	substore, _ := s.config.Route(prefix)
	return s.substores[substore].root(), nil
}

// PrefixRaw streams every key beginning with [prefix] and its value, in key
// order.
func (s *Snapshot) PrefixRaw(ctx context.Context, prefix string) *Stream[KeyValue] {
	spans := s.config.spans([]byte(prefix), nil, nil)
	return stream(ctx, s.bridge, opPrefixRaw, func(send func(KeyValue) bool) error {
		return scan(s.substores, spans, keysColumnOf, func(c *cursor) (bool, error) {
			value, err := c.store.getIndexed(c.residual, c.value)
			if err != nil {
				return false, err
			}
			return send(KeyValue{
				Key:   string(c.key),
				Value: value,
			}), nil
		})
	}, trace.WithAttributes(attribute.String("prefix", prefix)))
}

// PrefixKeys streams every key beginning with [prefix], in key order.
func (s *Snapshot) PrefixKeys(ctx context.Context, prefix string) *Stream[string] {
	spans := s.config.spans([]byte(prefix), nil, nil)
	return stream(ctx, s.bridge, opPrefixKeys, func(send func(string) bool) error {
		return scan(s.substores, spans, keysColumnOf, func(c *cursor) (bool, error) {
			return send(string(c.key)), nil
		})
	}, trace.WithAttributes(attribute.String("prefix", prefix)))
}

// NonverifiablePrefixRaw streams every unauthenticated key beginning with
// [prefix] and its value, in key order.
func (s *Snapshot) NonverifiablePrefixRaw(ctx context.Context, prefix []byte) *Stream[RawKeyValue] {
	return s.nonverifiableScan(ctx, opNonverifiablePrefixRaw, prefix, nil, nil)
}

// NonverifiableRangeRaw streams every unauthenticated key beginning with
// [prefix] in [prefix+r.Start, prefix+r.End) and its value, in key order.
func (s *Snapshot) NonverifiableRangeRaw(ctx context.Context, prefix []byte, r Range) (*Stream[RawKeyValue], error) {
	if r.End != nil && bytes.Compare(r.Start, r.End) > 0 {
		return nil, fmt.Errorf("%w: [%x, %x)", ErrInvalidRange, r.Start, r.End)
	}
	return s.nonverifiableScan(ctx, opNonverifiableRangeRaw, prefix, r.Start, r.End), nil
}

func (s *Snapshot) nonverifiableScan(
	ctx context.Context,
	op string,
	prefix []byte,
	start []byte,
	end []byte,
) *Stream[RawKeyValue] {
	spans := s.config.spans(prefix, start, end)
	return stream(ctx, s.bridge, op, func(send func(RawKeyValue) bool) error {
		return scan(s.substores, spans, rawColumnOf, func(c *cursor) (bool, error) {
			return send(RawKeyValue{
				Key:   c.key,
				Value: slices.Clone(c.value),
			}), nil
		})
	}, trace.WithAttributes(attribute.String("prefix", fmt.Sprintf("%x", prefix))))
}

func (s *Snapshot) spanOptions(substore *SubstoreConfig) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Int64("version", int64(s.version)),
		attribute.String("substore", substore.Prefix),
	)
}
