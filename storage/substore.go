// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
	"errors"
	"fmt"

	ics23 "github.com/cosmos/ics23/go"
	"go.uber.org/zap"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/prefixdb"
	"github.com/ava-labs/multistore/utils/logging"
	"github.com/ava-labs/multistore/x/smt"
)

// substoreSnapshot answers reads against one sub-store at one version.
type substoreSnapshot struct {
	config *SubstoreConfig
	log    logging.Logger
	tree   *smt.View
	// keys maps every key in [tree] to its key hash.
	keys *prefixdb.Reader
	raw  *prefixdb.Reader
}

func newSubstoreSnapshot(
	config *SubstoreConfig,
	db database.KeyValueReaderIteratee,
	root smt.Hash,
	cache *smt.Cache,
	metrics smt.Metrics,
	log logging.Logger,
) *substoreSnapshot {
	nodes := smt.NewNodes(prefixdb.NewReader(config.tree, db), cache, metrics)
	return &substoreSnapshot{
		config: config,
		log:    log,
		tree:   nodes.View(root),
		keys:   prefixdb.NewReader(config.keys, db),
		raw:    prefixdb.NewReader(config.raw, db),
	}
}

func (s *substoreSnapshot) root() smt.Hash {
	return s.tree.Root()
}

// get returns the value of [key], or nil if [key] isn't in the tree.
func (s *substoreSnapshot) get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	value, _, err := s.tree.Get(smt.HashKey(key))
	if err != nil {
		return nil, s.treeError(err)
	}
	return value, nil
}

// getWithProof returns the value of [key], or nil if [key] isn't in the tree,
// with a proof of the result against the sub-store's root.
func (s *substoreSnapshot) getWithProof(key []byte) ([]byte, *ics23.CommitmentProof, error) {
	if len(key) == 0 {
		return nil, nil, ErrEmptyKey
	}
	value, proof, err := s.tree.GetWithProof(key)
	if err != nil {
		return nil, nil, s.treeError(err)
	}
	return value, proof, nil
}

// getIndexed returns the value of [key], which the keys index maps to
// [keyHash]. The leaf must exist.
func (s *substoreSnapshot) getIndexed(key []byte, keyHash []byte) ([]byte, error) {
	hash, err := smt.ToHash(keyHash)
	if err != nil {
		return nil, s.inconsistent(fmt.Errorf("indexed key %q: %w", key, err))
	}
	if hash != smt.HashKey(key) {
		return nil, s.inconsistent(fmt.Errorf("indexed key %q has key hash %s", key, hash))
	}

	value, ok, err := s.tree.Get(hash)
	if err != nil {
		return nil, s.treeError(err)
	}
	if !ok {
		return nil, s.inconsistent(fmt.Errorf("indexed key %q is missing from the tree", key))
	}
	return value, nil
}

func (s *substoreSnapshot) nonverifiableGet(key []byte) ([]byte, error) {
	value, err := s.raw.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// treeError classifies an error returned by the tree. Missing nodes break the
// invariant that every committed root is fully persisted. Other errors are
// I/O failures of the engine.
func (s *substoreSnapshot) treeError(err error) error {
	if errors.Is(err, smt.ErrMissingNode) {
		return s.inconsistent(err)
	}
	return err
}

func (s *substoreSnapshot) inconsistent(err error) error {
	s.log.Error("storage consistency violation",
		zap.Stringer("substore", s.config),
		zap.Stringer("root", s.root()),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrConsistency, err)
}

// cursor walks one span of a scan.
type cursor struct {
	store *substoreSnapshot
	it    database.Iterator
	end   []byte

	// key is the full key of the current entry, residual is the key
	// relative to [store].
	key      []byte
	residual []byte
	value    []byte
}

// advance moves to the next entry of the span. It returns false once the span
// is exhausted.
func (c *cursor) advance() (bool, error) {
	if !c.it.Next() {
		return false, c.it.Error()
	}
	c.residual = c.it.Key()
	if c.end != nil && bytes.Compare(c.residual, c.end) >= 0 {
		return false, nil
	}
	c.key = prefixdb.PrefixKey([]byte(c.store.config.Prefix), c.residual)
	c.value = c.it.Value()
	return true, nil
}

// scan visits the entries of [column] covered by [spans] in full key order
// until [visit] returns false.
func scan(
	stores map[*SubstoreConfig]*substoreSnapshot,
	spans []span,
	column func(*substoreSnapshot) *prefixdb.Reader,
	visit func(*cursor) (bool, error),
) error {
	cursors := make([]*cursor, 0, len(spans))
	for _, sp := range spans {
		store := stores[sp.substore]
		it := column(store).NewIteratorWithStartAndPrefix(sp.start, sp.prefix)
		defer it.Release()

		c := &cursor{
			store: store,
			it:    it,
			end:   sp.end,
		}
		ok, err := c.advance()
		if err != nil {
			return err
		}
		if ok {
			cursors = append(cursors, c)
		}
	}

	// Sub-stores never share a key, so picking the smallest current key
	// merges the spans.
	for len(cursors) > 0 {
		next := 0
		for i := 1; i < len(cursors); i++ {
			if bytes.Compare(cursors[i].key, cursors[next].key) < 0 {
				next = i
			}
		}

		c := cursors[next]
		more, err := visit(c)
		if err != nil || !more {
			return err
		}

		ok, err := c.advance()
		if err != nil {
			return err
		}
		if !ok {
			cursors = append(cursors[:next], cursors[next+1:]...)
		}
	}
	return nil
}

func keysColumnOf(s *substoreSnapshot) *prefixdb.Reader {
	return s.keys
}

func rawColumnOf(s *substoreSnapshot) *prefixdb.Reader {
	return s.raw
}
