// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"github.com/cockroachdb/pebble"

	"github.com/ava-labs/multistore/database"
)

var _ database.Snapshot = (*snapshot)(nil)

// Invariant: [snapshot.db.lock] is never grabbed while holding
// [snapshot.lock].
type snapshot struct {
	source

	db   *Database
	snap *pebble.Snapshot
}

func (s *snapshot) Has(key []byte) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return false, database.ErrClosed
	}
	return has(s.snap, key)
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, database.ErrClosed
	}
	return get(s.snap, key)
}

func (s *snapshot) NewIterator() database.Iterator {
	return s.NewIteratorWithStartAndPrefix(nil, nil)
}

func (s *snapshot) NewIteratorWithStart(start []byte) database.Iterator {
	return s.NewIteratorWithStartAndPrefix(start, nil)
}

func (s *snapshot) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return s.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (s *snapshot) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return s.track(s.snap.NewIter(keyRange(start, prefix)))
}

func (s *snapshot) Release() {
	s.db.lock.Lock()
	defer s.db.lock.Unlock()

	s.lock.Lock()
	defer s.lock.Unlock()

	s.release()
}

// Assumes [s.db.lock] and [s.lock] are held.
func (s *snapshot) release() {
	if s.closed {
		return
	}
	s.closed = true

	s.releaseIterators()
	delete(s.db.openSnapshots, s)
	_ = s.snap.Close()
}
