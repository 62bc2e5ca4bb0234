// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memdb

import (
	"bytes"
	"slices"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/ava-labs/multistore/database"
)

const (
	// Name is the name of this database for database switches
	Name = "memdb"

	defaultTreeDegree = 32
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Snapshot = (*snapshot)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)
)

type keyValue struct {
	key   string
	value []byte
}

func (kv keyValue) Less(other keyValue) bool {
	return kv.key < other.key
}

// Database is an ephemeral, ordered key-value store that implements the
// Database interface.
//
// Snapshots are copy-on-write clones of the underlying tree, so taking one is
// constant time and later writes never touch the nodes a snapshot reads.
type Database struct {
	lock sync.RWMutex
	tree *btree.BTreeG[keyValue]
}

// New returns an empty in-memory database.
func New() *Database {
	return &Database{
		tree: btree.NewG(defaultTreeDegree, keyValue.Less),
	}
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return database.ErrClosed
	}
	db.tree = nil
	return nil
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.tree == nil
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return false, database.ErrClosed
	}
	return db.tree.Has(keyValue{key: string(key)}), nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return get(db.tree, key)
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return database.ErrClosed
	}
	db.tree.ReplaceOrInsert(keyValue{
		key:   string(key),
		value: slices.Clone(value),
	})
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return database.ErrClosed
	}
	db.tree.Delete(keyValue{key: string(key)})
	return nil
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
}

func (db *Database) NewSnapshot() (database.Snapshot, error) {
	// Clone updates the copy-on-write context of [db.tree], so it needs the
	// write lock.
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return nil, database.ErrClosed
	}
	return &snapshot{tree: db.tree.Clone()}, nil
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

func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return newIterator(db.tree, start, prefix, db.isClosed)
}

type snapshot struct {
	lock sync.RWMutex
	// tree is nil once the snapshot has been released
	tree *btree.BTreeG[keyValue]
}

func (s *snapshot) isClosed() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.tree == nil
}

func (s *snapshot) Has(key []byte) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.tree == nil {
		return false, database.ErrClosed
	}
	return s.tree.Has(keyValue{key: string(key)}), nil
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return get(s.tree, key)
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
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.tree == nil {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return newIterator(s.tree, start, prefix, s.isClosed)
}

func (s *snapshot) Release() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tree = nil
}

// Assumes the caller holds a lock protecting [tree].
func get(tree *btree.BTreeG[keyValue], key []byte) ([]byte, error) {
	if tree == nil {
		return nil, database.ErrClosed
	}
	if entry, ok := tree.Get(keyValue{key: string(key)}); ok {
		return slices.Clone(entry.value), nil
	}
	return nil, database.ErrNotFound
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.tree == nil {
		return database.ErrClosed
	}

	for _, op := range b.Ops {
		if op.Delete {
			b.db.tree.Delete(keyValue{key: string(op.Key)})
		} else {
			b.db.tree.ReplaceOrInsert(keyValue{
				key:   string(op.Key),
				value: op.Value,
			})
		}
	}
	return nil
}

type iterator struct {
	closed      func() bool
	initialized bool
	entries     []keyValue
	err         error
}

// newIterator collects every entry of [tree] with [prefix] at or after
// [start]. Assumes the caller holds a lock protecting [tree].
func newIterator(
	tree *btree.BTreeG[keyValue],
	start []byte,
	prefix []byte,
	closed func() bool,
) *iterator {
	from := start
	if bytes.Compare(prefix, start) > 0 {
		from = prefix
	}
	prefixString := string(prefix)

	var entries []keyValue
	tree.AscendGreaterOrEqual(keyValue{key: string(from)}, func(kv keyValue) bool {
		if !strings.HasPrefix(kv.key, prefixString) {
			return false
		}
		entries = append(entries, kv)
		return true
	})
	return &iterator{
		closed:  closed,
		entries: entries,
	}
}

func (it *iterator) Next() bool {
	// Short-circuit and set an error if the underlying source has been closed.
	if it.closed() {
		it.entries = nil
		it.err = database.ErrClosed
		return false
	}

	// If the iterator was not yet initialized, do it now
	if !it.initialized {
		it.initialized = true
		return len(it.entries) > 0
	}
	// Iterator already initialized, advance it
	if len(it.entries) > 0 {
		it.entries[0] = keyValue{}
		it.entries = it.entries[1:]
	}
	return len(it.entries) > 0
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) Key() []byte {
	if it.initialized && len(it.entries) > 0 {
		return []byte(it.entries[0].key)
	}
	return nil
}

func (it *iterator) Value() []byte {
	if it.initialized && len(it.entries) > 0 {
		return it.entries[0].value
	}
	return nil
}

func (it *iterator) Release() {
	it.entries = nil
}
