// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefixdb

import "github.com/ava-labs/multistore/database"

var (
	_ database.KeyValueReaderIteratee = (*Reader)(nil)
	_ database.KeyValueWriterDeleter  = (*Writer)(nil)
	_ database.Iterator               = (*iterator)(nil)
)

// Reader exposes the keys of [db] that begin with a raw prefix, with that
// prefix stripped. Unlike Database, the prefix is used as given and is not
// hashed, so a Reader can address a column of a snapshot directly.
type Reader struct {
	prefix []byte
	db     database.KeyValueReaderIteratee
}

// NewReader returns a view of [db] restricted to keys beginning with the raw
// [prefix].
func NewReader(prefix []byte, db database.KeyValueReaderIteratee) *Reader {
	return &Reader{
		prefix: prefix,
		db:     db,
	}
}

func (r *Reader) Has(key []byte) (bool, error) {
	return r.db.Has(PrefixKey(r.prefix, key))
}

func (r *Reader) Get(key []byte) ([]byte, error) {
	return r.db.Get(PrefixKey(r.prefix, key))
}

func (r *Reader) NewIterator() database.Iterator {
	return r.NewIteratorWithStartAndPrefix(nil, nil)
}

func (r *Reader) NewIteratorWithStart(start []byte) database.Iterator {
	return r.NewIteratorWithStartAndPrefix(start, nil)
}

func (r *Reader) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return r.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (r *Reader) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	return newIterator(r.db, r.prefix, start, prefix, nil)
}

// Writer prepends a raw prefix to every key written through it. It is
// typically layered over a batch so that several columns commit atomically.
type Writer struct {
	prefix []byte
	db     database.KeyValueWriterDeleter
}

// NewWriter returns a writer that stores every key under the raw [prefix].
func NewWriter(prefix []byte, db database.KeyValueWriterDeleter) *Writer {
	return &Writer{
		prefix: prefix,
		db:     db,
	}
}

func (w *Writer) Put(key, value []byte) error {
	return w.db.Put(PrefixKey(w.prefix, key), value)
}

func (w *Writer) Delete(key []byte) error {
	return w.db.Delete(PrefixKey(w.prefix, key))
}

type iterator struct {
	database.Iterator

	prefixLen int
	closed    func() bool

	key, val []byte
	err      error
}

func newIterator(
	db database.Iteratee,
	dbPrefix []byte,
	start []byte,
	prefix []byte,
	closed func() bool,
) *iterator {
	return &iterator{
		Iterator: db.NewIteratorWithStartAndPrefix(
			PrefixKey(dbPrefix, start),
			PrefixKey(dbPrefix, prefix),
		),
		prefixLen: len(dbPrefix),
		closed:    closed,
	}
}

// Next calls the inner iterators Next() function and strips the keys prefix
func (it *iterator) Next() bool {
	if it.closed != nil && it.closed() {
		it.key = nil
		it.val = nil
		it.err = database.ErrClosed
		return false
	}

	hasNext := it.Iterator.Next()
	if hasNext {
		key := it.Iterator.Key()
		if len(key) >= it.prefixLen {
			key = key[it.prefixLen:]
		}
		it.key = key
		it.val = it.Iterator.Value()
	} else {
		it.key = nil
		it.val = nil
	}
	return hasNext
}

func (it *iterator) Key() []byte {
	return it.key
}

func (it *iterator) Value() []byte {
	return it.val
}

// Error returns [database.ErrClosed] if the underlying db was closed
// otherwise it returns the normal iterator error.
func (it *iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.Iterator.Error()
}
