// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefixdb

import (
	"slices"
	"sync"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/utils/hashing"
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
)

// Database partitions a database into a sub-database by prefixing all keys with
// a unique value.
type Database struct {
	// All keys in this db begin with this byte slice
	dbPrefix []byte

	// lock needs to be held during Close to guarantee db will not be set to nil
	// concurrently with another operation. All other operations can hold RLock.
	lock sync.RWMutex
	// The underlying storage
	db     database.Database
	closed bool
}

// New returns a new prefixed database
func New(prefix []byte, db database.Database) *Database {
	if prefixDB, ok := db.(*Database); ok {
		return &Database{
			dbPrefix: JoinPrefixes(prefixDB.dbPrefix, prefix),
			db:       prefixDB.db,
		}
	}
	return &Database{
		dbPrefix: MakePrefix(prefix),
		db:       db,
	}
}

// NewNested returns a new prefixed database without attempting to compress
// prefixes.
func NewNested(prefix []byte, db database.Database) *Database {
	return &Database{
		dbPrefix: MakePrefix(prefix),
		db:       db,
	}
}

// MakePrefix hashes [prefix] so that no two distinct prefixes can produce
// overlapping key ranges.
func MakePrefix(prefix []byte) []byte {
	return hashing.ComputeHash256(prefix)
}

// JoinPrefixes returns the prefix of a namespace nested inside the namespace
// with prefix [firstPrefix].
func JoinPrefixes(firstPrefix, secondPrefix []byte) []byte {
	return MakePrefix(PrefixKey(firstPrefix, secondPrefix))
}

// PrefixKey returns a fresh slice holding [prefix] followed by [key].
func PrefixKey(prefix, key []byte) []byte {
	prefixedKey := make([]byte, len(prefix)+len(key))
	copy(prefixedKey, prefix)
	copy(prefixedKey[len(prefix):], key)
	return prefixedKey
}

// Prefix returns the raw prefix prepended to every key of this database.
func (db *Database) Prefix() []byte {
	return slices.Clone(db.dbPrefix)
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	return db.db.Has(PrefixKey(db.dbPrefix, key))
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return db.db.Get(PrefixKey(db.dbPrefix, key))
}

func (db *Database) Put(key, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Put(PrefixKey(db.dbPrefix, key), value)
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Delete(PrefixKey(db.dbPrefix, key))
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		Batch: db.db.NewBatch(),
		db:    db,
	}
}

func (db *Database) NewIterator() database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(start, nil)
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, prefix)
}

// It is safe to modify [start] and [prefix] after this method returns.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return newIterator(db.db, db.dbPrefix, start, prefix, db.isClosed)
}

// NewSnapshot returns a snapshot of the underlying database restricted to
// this database's namespace. The snapshot stays readable after this database
// is closed until it is released.
func (db *Database) NewSnapshot() (database.Snapshot, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	snapshot, err := db.db.NewSnapshot()
	if err != nil {
		return nil, err
	}
	return &prefixedSnapshot{
		Reader:   NewReader(db.dbPrefix, snapshot),
		snapshot: snapshot,
	}, nil
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	return nil
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.closed
}

type prefixedSnapshot struct {
	*Reader

	snapshot database.Snapshot
}

func (s *prefixedSnapshot) Release() {
	s.snapshot.Release()
}

// Batch of database operations
type batch struct {
	database.Batch

	db *Database

	// Each key is prepended with the database's prefix.
	ops []database.BatchOp
}

func (b *batch) Put(key, value []byte) error {
	prefixedKey := PrefixKey(b.db.dbPrefix, key)
	copiedValue := slices.Clone(value)
	b.ops = append(b.ops, database.BatchOp{
		Key:   prefixedKey,
		Value: copiedValue,
	})
	return b.Batch.Put(prefixedKey, copiedValue)
}

func (b *batch) Delete(key []byte) error {
	prefixedKey := PrefixKey(b.db.dbPrefix, key)
	b.ops = append(b.ops, database.BatchOp{
		Key:    prefixedKey,
		Delete: true,
	})
	return b.Batch.Delete(prefixedKey)
}

// Write flushes any accumulated data to the underlying database.
func (b *batch) Write() error {
	b.db.lock.RLock()
	defer b.db.lock.RUnlock()

	if b.db.closed {
		return database.ErrClosed
	}
	return b.Batch.Write()
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	if cap(b.ops) > len(b.ops)*database.MaxExcessCapacityFactor {
		b.ops = make([]database.BatchOp, 0, cap(b.ops)/database.CapacityReductionFactor)
	} else {
		clear(b.ops)
		b.ops = b.ops[:0]
	}
	b.Batch.Reset()
}

// Replay the batch contents with the prefix stripped from every key.
func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	for _, op := range b.ops {
		keyWithoutPrefix := op.Key[len(b.db.dbPrefix):]
		if op.Delete {
			if err := w.Delete(keyWithoutPrefix); err != nil {
				return err
			}
		} else if err := w.Put(keyWithoutPrefix, op.Value); err != nil {
			return err
		}
	}
	return nil
}
