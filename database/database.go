// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database

import "io"

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	// Returns ErrNotFound if the key is not present in the key-value data store.
	//
	// Note: [key] is safe to modify and read after calling Get.
	// The returned byte slice is safe to read, but cannot be modified.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put method of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	//
	// Note: [key] and [value] are safe to modify and read after calling Put.
	Put(key []byte, value []byte) error
}

// KeyValueDeleter wraps the Delete method of a backing data store.
type KeyValueDeleter interface {
	// Delete removes the key from the key-value data store.
	//
	// Note: [key] is safe to modify and read after calling Delete.
	Delete(key []byte) error
}

// KeyValueReaderWriter allows read/write acccess to a backing data store.
type KeyValueReaderWriter interface {
	KeyValueReader
	KeyValueWriter
}

// KeyValueWriterDeleter allows write/delete acccess to a backing data store.
type KeyValueWriterDeleter interface {
	KeyValueWriter
	KeyValueDeleter
}

// KeyValueReaderIteratee is the read-only view shared by a live database and
// a point-in-time snapshot of it.
type KeyValueReaderIteratee interface {
	KeyValueReader
	Iteratee
}

// Snapshot is an immutable, point-in-time view of a database. Writes to the
// database after the snapshot was taken are never visible through it.
//
// Snapshots are safe for concurrent use. Release frees the resources held by
// the underlying engine; using a snapshot after Release returns ErrClosed.
type Snapshot interface {
	KeyValueReaderIteratee

	Release()
}

// Snapshotter wraps the NewSnapshot method of a backing data store.
type Snapshotter interface {
	// NewSnapshot pins the current state of the database.
	NewSnapshot() (Snapshot, error)
}

// Database contains all the methods required to allow handling different
// key-value data stores backing the database.
type Database interface {
	KeyValueReaderWriter
	KeyValueDeleter
	Batcher
	Iteratee
	Snapshotter
	io.Closer
}
