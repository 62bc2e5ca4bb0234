// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/utils/logging"
)

const (
	// Name is the name of this database for database switches
	Name = "pebble"

	KiB = 1024
	MiB = 1024 * KiB

	blockSize      = 64 * KiB
	indexBlockSize = 256 * KiB
)

var (
	_ database.Database = (*Database)(nil)

	errInvalidOperation = errors.New("invalid operation")

	DefaultConfig = Config{
		CacheSize:                   512 * MiB,
		BytesPerSync:                MiB,
		WALBytesPerSync:             MiB,
		MemTableStopWritesThreshold: 8,
		MemTableSize:                16 * MiB,
		MaxOpenFiles:                4 * KiB,
	}
)

type Config struct {
	CacheSize                   int `json:"cacheSize"`                   // Byte
	BytesPerSync                int `json:"bytesPerSync"`                // Byte
	WALBytesPerSync             int `json:"walBytesPerSync"`             // Byte (0 disables)
	MemTableStopWritesThreshold int `json:"memTableStopWritesThreshold"` // num tables
	MemTableSize                int `json:"memTableSize"`                // Byte
	MaxOpenFiles                int `json:"maxOpenFiles"`
}

// source holds the bookkeeping shared by the database and its snapshots: the
// iterators opened on them, which must be closed before the engine is.
type source struct {
	lock          sync.RWMutex
	closed        bool
	openIterators map[*iter]struct{}
}

// Assumes [s.lock] is held.
func (s *source) releaseIterators() {
	for it := range s.openIterators {
		it.lock.Lock()
		it.release()
		it.lock.Unlock()
	}
}

type Database struct {
	source

	pebbleDB      *pebble.DB
	openSnapshots map[*snapshot]struct{}
}

// New opens a pebble database stored at [file].
func New(file string, cfg Config, log logging.Logger) (*Database, error) {
	return open(file, cfg, nil, log)
}

// NewMem returns a pebble database backed by an in-memory filesystem.
func NewMem(cfg Config, log logging.Logger) (*Database, error) {
	return open("", cfg, vfs.NewMem(), log)
}

func open(file string, cfg Config, fs vfs.FS, log logging.Logger) (*Database, error) {
	cache := pebble.NewCache(int64(cfg.CacheSize))
	defer cache.Unref()

	opts := &pebble.Options{
		Cache:                       cache,
		BytesPerSync:                cfg.BytesPerSync,
		WALBytesPerSync:             cfg.WALBytesPerSync,
		MemTableStopWritesThreshold: cfg.MemTableStopWritesThreshold,
		MemTableSize:                cfg.MemTableSize,
		MaxOpenFiles:                cfg.MaxOpenFiles,
		MaxConcurrentCompactions:    runtime.NumCPU,
		Levels:                      make([]pebble.LevelOptions, 7),
		FS:                          fs,
	}
	for i := range opts.Levels {
		l := &opts.Levels[i]
		l.BlockSize = blockSize
		l.IndexBlockSize = indexBlockSize
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
		}
	}
	opts.Experimental.ReadSamplingMultiplier = -1 // explicitly disable seek compaction

	log.Info("opening pebble", zap.String("path", file))

	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, err
	}
	return &Database{
		source: source{
			openIterators: make(map[*iter]struct{}),
		},
		pebbleDB:      db,
		openSnapshots: make(map[*snapshot]struct{}),
	}, nil
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true

	for s := range db.openSnapshots {
		s.lock.Lock()
		s.release()
		s.lock.Unlock()
	}
	db.releaseIterators()
	return updateError(db.pebbleDB.Close())
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	return has(db.pebbleDB, key)
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return get(db.pebbleDB, key)
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Set(key, value, pebble.NoSync))
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Delete(key, pebble.NoSync))
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
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}
	return db.track(db.pebbleDB.NewIter(keyRange(start, prefix)))
}

// NewSnapshot pins the current sequence number of the engine. The snapshot
// must be released; Close releases any that are still open.
func (db *Database) NewSnapshot() (database.Snapshot, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	s := &snapshot{
		source: source{
			openIterators: make(map[*iter]struct{}),
		},
		db:   db,
		snap: db.pebbleDB.NewSnapshot(),
	}
	db.openSnapshots[s] = struct{}{}
	return s, nil
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func has(r reader, key []byte) (bool, error) {
	_, closer, err := r.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, updateError(err)
	}
	return true, closer.Close()
}

func get(r reader, key []byte) ([]byte, error) {
	data, closer, err := r.Get(key)
	if err != nil {
		return nil, updateError(err)
	}
	ret := slices.Clone(data)
	return ret, closer.Close()
}

// prefixBounds returns a key range that satisfies the given prefix.
// This is only applicable for the standard 'bytes comparer'.
func prefixBounds(prefix []byte) *pebble.IterOptions {
	var upperBound []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == 0xFF {
			continue
		}
		upperBound = make([]byte, i+1)
		copy(upperBound, prefix)
		upperBound[i]++
		break
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound,
	}
}

// keyRange returns the bounds of an iteration over keys with [prefix] that are
// at or after [start].
func keyRange(start, prefix []byte) *pebble.IterOptions {
	opt := prefixBounds(prefix)
	if bytes.Compare(start, prefix) > 0 {
		opt.LowerBound = start
	}
	return opt
}

// updateError casts pebble-specific errors to the errors callers of a
// database.Database expect to see.
func updateError(err error) error {
	switch err {
	case pebble.ErrClosed:
		return database.ErrClosed
	case pebble.ErrNotFound:
		return database.ErrNotFound
	default:
		return err
	}
}
