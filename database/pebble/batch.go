// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/ava-labs/multistore/database"
)

// pebbleByteOverHead is the number of bytes of constant overhead that
// should be added to a batch size per operation.
const pebbleByteOverHead = 8

var _ database.Batch = (*batch)(nil)

// Not safe for concurrent use.
type batch struct {
	batch *pebble.Batch
	db    *Database
	size  int

	// True iff [batch] has been written to the database
	// since the last time [Reset] was called.
	written bool
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		db:    db,
		batch: db.pebbleDB.NewBatch(),
	}
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(key) + len(value) + pebbleByteOverHead
	return b.batch.Set(key, value, pebble.NoSync)
}

func (b *batch) Delete(key []byte) error {
	b.size += len(key) + pebbleByteOverHead
	return b.batch.Delete(key, pebble.NoSync)
}

func (b *batch) Size() int {
	return b.size
}

// Assumes [b.db.lock] is not held.
func (b *batch) Write() error {
	b.db.lock.RLock()
	defer b.db.lock.RUnlock()

	// Committing to a closed database makes pebble panic.
	if b.db.closed {
		return database.ErrClosed
	}

	if !b.written {
		b.written = true
		return updateError(b.batch.Commit(pebble.NoSync))
	}

	// pebble doesn't support writing a batch twice so we have to clone the
	// batch before writing it.
	newBatch := b.db.pebbleDB.NewBatch()
	if err := newBatch.Apply(b.batch, nil); err != nil {
		return err
	}
	b.batch = newBatch
	return updateError(b.batch.Commit(pebble.NoSync))
}

func (b *batch) Reset() {
	b.batch.Reset()
	b.written = false
	b.size = 0
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	reader := b.batch.Reader()
	for {
		kind, k, v, ok := reader.Next()
		if !ok {
			return nil
		}
		switch kind {
		case pebble.InternalKeyKindSet:
			if err := w.Put(k, v); err != nil {
				return err
			}
		case pebble.InternalKeyKindDelete:
			if err := w.Delete(k); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %v", errInvalidOperation, kind)
		}
	}
}
