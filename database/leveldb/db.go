// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package leveldb

import (
	"bytes"
	"slices"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/utils/logging"
)

const (
	// Name is the name of this database for database switches
	Name = "leveldb"

	// levelDBByteOverhead is the number of bytes of constant overhead that
	// should be added to a batch size per operation.
	levelDBByteOverhead = 8
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Snapshot = (*snapshot)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iter)(nil)

	DefaultConfig = Config{
		BlockCacheCapacity:     12 * opt.MiB,
		WriteBuffer:            6 * opt.MiB,
		OpenFilesCacheCapacity: 64,
		BloomFilterBits:        10,
	}
)

// Config tunes the goleveldb engine.
type Config struct {
	BlockCacheCapacity     int `json:"blockCacheCapacity"`
	WriteBuffer            int `json:"writeBuffer"`
	OpenFilesCacheCapacity int `json:"openFilesCacheCapacity"`
	BloomFilterBits        int `json:"bloomFilterBits"`
}

func (c Config) options() *opt.Options {
	o := &opt.Options{
		BlockCacheCapacity:     c.BlockCacheCapacity,
		WriteBuffer:            c.WriteBuffer,
		OpenFilesCacheCapacity: c.OpenFilesCacheCapacity,
		DisableSeeksCompaction: true,
	}
	if c.BloomFilterBits > 0 {
		o.Filter = filter.NewBloomFilter(c.BloomFilterBits)
	}
	return o
}

// Database is a persistent key-value store. Apart from basic data storage
// functionality it also supports batch writes, iterating over the keyspace
// in binary-alphabetical order and point-in-time snapshots.
type Database struct {
	*leveldb.DB
	log logging.Logger

	// [lock] guards [closed]
	lock   sync.RWMutex
	closed bool
}

// New returns a wrapped LevelDB object stored at [file].
func New(file string, cfg Config, log logging.Logger) (*Database, error) {
	db, err := leveldb.OpenFile(file, cfg.options())
	if errors.IsCorrupted(err) {
		log.Warn("recovering corrupted leveldb",
			zap.String("path", file),
			zap.Error(err),
		)
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}

	log.Info("opened leveldb", zap.String("path", file))
	return &Database{
		DB:  db,
		log: log,
	}, nil
}

// NewMem returns a LevelDB instance backed by memory. Its contents are lost
// on Close.
func NewMem(cfg Config, log logging.Logger) (*Database, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), cfg.options())
	if err != nil {
		return nil, err
	}
	return &Database{
		DB:  db,
		log: log,
	}, nil
}

// Has returns if the key is set in the database
func (db *Database) Has(key []byte) (bool, error) {
	has, err := db.DB.Has(key, nil)
	return has, updateError(err)
}

// Get returns the value the key maps to in the database
func (db *Database) Get(key []byte) ([]byte, error) {
	value, err := db.DB.Get(key, nil)
	return value, updateError(err)
}

// Put sets the value of the provided key to the provided value
func (db *Database) Put(key []byte, value []byte) error {
	return updateError(db.DB.Put(key, value, nil))
}

// Delete removes the key from the database
func (db *Database) Delete(key []byte) error {
	return updateError(db.DB.Delete(key, nil))
}

// NewBatch creates a write/delete-only buffer that is atomically committed to
// the database when write is called
func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
}

// NewIterator creates a lexicographically ordered iterator over the database
func (db *Database) NewIterator() database.Iterator {
	return newIter(db.DB.NewIterator(new(util.Range), nil), db.isClosed)
}

// NewIteratorWithStart creates a lexicographically ordered iterator over the
// database starting at the provided key
func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return newIter(db.DB.NewIterator(&util.Range{Start: start}, nil), db.isClosed)
}

// NewIteratorWithPrefix creates a lexicographically ordered iterator over the
// database ignoring keys that do not start with the provided prefix
func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return newIter(db.DB.NewIterator(util.BytesPrefix(prefix), nil), db.isClosed)
}

// NewIteratorWithStartAndPrefix creates a lexicographically ordered iterator
// over the database starting at start and ignoring keys that do not start with
// the provided prefix
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	return newIter(db.DB.NewIterator(startAndPrefixRange(start, prefix), nil), db.isClosed)
}

// NewSnapshot pins the current state of the database. The engine keeps the
// pinned sequence number alive until the snapshot is released or garbage
// collected.
func (db *Database) NewSnapshot() (database.Snapshot, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	snap, err := db.DB.GetSnapshot()
	if err != nil {
		return nil, updateError(err)
	}
	return &snapshot{
		db:   db,
		snap: snap,
	}, nil
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	return updateError(db.DB.Close())
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.closed
}

type snapshot struct {
	db *Database

	lock sync.RWMutex
	// snap is nil once the snapshot has been released
	snap *leveldb.Snapshot
}

func (s *snapshot) isClosed() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.snap == nil || s.db.isClosed()
}

func (s *snapshot) Has(key []byte) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.snap == nil {
		return false, database.ErrClosed
	}
	has, err := s.snap.Has(key, nil)
	return has, updateError(err)
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.snap == nil {
		return nil, database.ErrClosed
	}
	value, err := s.snap.Get(key, nil)
	return value, updateError(err)
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

	if s.snap == nil {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return newIter(s.snap.NewIterator(startAndPrefixRange(start, prefix), nil), s.isClosed)
}

func (s *snapshot) Release() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.snap == nil {
		return
	}
	s.snap.Release()
	s.snap = nil
}

// batch is a wrapper around a levelDB batch to contain sizes.
type batch struct {
	leveldb.Batch
	db   *Database
	size int
}

// Put the value into the batch for later writing
func (b *batch) Put(key, value []byte) error {
	b.Batch.Put(key, value)
	b.size += len(key) + len(value) + levelDBByteOverhead
	return nil
}

// Delete the key during writing
func (b *batch) Delete(key []byte) error {
	b.Batch.Delete(key)
	b.size += len(key) + levelDBByteOverhead
	return nil
}

// Size retrieves the amount of data queued up for writing.
func (b *batch) Size() int {
	return b.size
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	return updateError(b.db.DB.Write(&b.Batch, nil))
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.Batch.Reset()
	b.size = 0
}

// Replay the batch contents.
func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	replay := &replayer{writerDeleter: w}
	if err := b.Batch.Replay(replay); err != nil {
		// Never actually returns an error, because Replay just returns nil
		return err
	}
	return replay.err
}

type replayer struct {
	writerDeleter database.KeyValueWriterDeleter
	err           error
}

func (r *replayer) Put(key, value []byte) {
	if r.err != nil {
		return
	}
	r.err = r.writerDeleter.Put(key, value)
}

func (r *replayer) Delete(key []byte) {
	if r.err != nil {
		return
	}
	r.err = r.writerDeleter.Delete(key)
}

type iter struct {
	iterator.Iterator

	closed func() bool
	key    []byte
	val    []byte
	err    error
}

func newIter(it iterator.Iterator, closed func() bool) *iter {
	return &iter{
		Iterator: it,
		closed:   closed,
	}
}

func (it *iter) Next() bool {
	// Short-circuit and set an error if the underlying source has been closed.
	if it.closed() {
		it.key = nil
		it.val = nil
		it.err = database.ErrClosed
		return false
	}

	hasNext := it.Iterator.Next()
	if hasNext {
		it.key = slices.Clone(it.Iterator.Key())
		it.val = slices.Clone(it.Iterator.Value())
	} else {
		it.key = nil
		it.val = nil
	}
	return hasNext
}

func (it *iter) Error() error {
	if it.err != nil {
		return it.err
	}
	return updateError(it.Iterator.Error())
}

func (it *iter) Key() []byte {
	return it.key
}

func (it *iter) Value() []byte {
	return it.val
}

func startAndPrefixRange(start, prefix []byte) *util.Range {
	iterRange := util.BytesPrefix(prefix)
	if bytes.Compare(start, prefix) > 0 {
		iterRange.Start = start
	}
	return iterRange
}

func updateError(err error) error {
	switch err {
	case leveldb.ErrClosed, leveldb.ErrSnapshotReleased:
		return database.ErrClosed
	case leveldb.ErrNotFound:
		return database.ErrNotFound
	default:
		return err
	}
}
