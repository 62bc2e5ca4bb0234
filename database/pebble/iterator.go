// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/ava-labs/multistore/database"
)

var _ database.Iterator = (*iter)(nil)

type iter struct {
	// [lock] ensures that only one goroutine can access [iter] at a time.
	// Note that closing the source calls [iter.release] so we need [lock] to
	// ensure that the user and the source don't touch [iter] concurrently.
	// Invariant: [source.lock] is never grabbed while holding [lock].
	lock sync.Mutex

	source      *source
	iter        *pebble.Iterator
	initialized bool
	closed      bool

	hasNext bool
	nextKey []byte
	nextVal []byte

	err error
}

// Assumes [s.lock] is held.
func (s *source) track(pebbleIter *pebble.Iterator) *iter {
	it := &iter{
		source: s,
		iter:   pebbleIter,
	}
	s.openIterators[it] = struct{}{}
	return it
}

// Must not be called with [source.lock] held.
func (it *iter) Next() bool {
	it.source.lock.RLock()
	sourceClosed := it.source.closed
	it.source.lock.RUnlock()

	it.lock.Lock()
	defer it.lock.Unlock()

	if it.closed || sourceClosed {
		it.hasNext = false
		it.nextKey = nil
		it.nextVal = nil
		it.err = database.ErrClosed
		return false
	}

	if !it.initialized {
		it.hasNext = it.iter.First()
		it.initialized = true
	} else {
		it.hasNext = it.iter.Next()
	}

	if it.hasNext {
		it.nextKey = slices.Clone(it.iter.Key())
		it.nextVal = slices.Clone(it.iter.Value())
	} else {
		it.nextKey = nil
		it.nextVal = nil
	}
	return it.hasNext
}

func (it *iter) Error() error {
	it.lock.Lock()
	defer it.lock.Unlock()

	if it.err != nil {
		return it.err
	}
	if it.closed {
		return nil
	}
	return updateError(it.iter.Error())
}

func (it *iter) Key() []byte {
	it.lock.Lock()
	defer it.lock.Unlock()

	return it.nextKey
}

func (it *iter) Value() []byte {
	it.lock.Lock()
	defer it.lock.Unlock()

	return it.nextVal
}

func (it *iter) Release() {
	it.source.lock.Lock()
	defer it.source.lock.Unlock()

	it.lock.Lock()
	defer it.lock.Unlock()

	it.release()
}

// Assumes [it.lock] and [it.source.lock] are held.
func (it *iter) release() {
	if it.closed {
		return
	}

	delete(it.source.openIterators, it)
	it.closed = true
	_ = it.iter.Close()
}
