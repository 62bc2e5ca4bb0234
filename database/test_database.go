// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Tests is a list of all database tests
var Tests = map[string]func(t *testing.T, db Database){
	"SimpleKeyValue":            TestSimpleKeyValue,
	"SimpleKeyValueClosed":      TestSimpleKeyValueClosed,
	"MemorySafetyDatabase":      TestMemorySafetyDatabase,
	"BatchPut":                  TestBatchPut,
	"BatchDelete":               TestBatchDelete,
	"BatchReset":                TestBatchReset,
	"BatchReplay":               TestBatchReplay,
	"IteratorSnapshot":          TestIteratorSnapshot,
	"Iterator":                  TestIterator,
	"IteratorStart":             TestIteratorStart,
	"IteratorPrefix":            TestIteratorPrefix,
	"IteratorStartPrefix":       TestIteratorStartPrefix,
	"IteratorMemorySafety":      TestIteratorMemorySafety,
	"SnapshotIsolation":         TestSnapshotIsolation,
	"SnapshotIteratorIsolation": TestSnapshotIteratorIsolation,
	"SnapshotConcurrentReads":   TestSnapshotConcurrentReads,
	"SnapshotRelease":           TestSnapshotRelease,
}

// TestSimpleKeyValue tests to make sure that simple Put + Get + Delete + Has
// calls return the expected values.
func TestSimpleKeyValue(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	value := []byte("world")

	has, err := db.Has(key)
	require.NoError(err)
	require.False(has)

	_, err = db.Get(key)
	require.ErrorIs(err, ErrNotFound)

	require.NoError(db.Delete(key))
	require.NoError(db.Put(key, value))

	has, err = db.Has(key)
	require.NoError(err)
	require.True(has)

	v, err := db.Get(key)
	require.NoError(err)
	require.Equal(value, v)

	require.NoError(db.Delete(key))

	has, err = db.Has(key)
	require.NoError(err)
	require.False(has)

	_, err = db.Get(key)
	require.ErrorIs(err, ErrNotFound)

	require.NoError(db.Delete(key))
}

// TestSimpleKeyValueClosed tests to make sure that Put + Get + Delete + Has
// calls return the correct error when the database has been closed.
func TestSimpleKeyValueClosed(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	value := []byte("world")

	require.NoError(db.Put(key, value))
	require.NoError(db.Close())

	_, err := db.Has(key)
	require.ErrorIs(err, ErrClosed)

	_, err = db.Get(key)
	require.ErrorIs(err, ErrClosed)

	require.ErrorIs(db.Put(key, value), ErrClosed)
	require.ErrorIs(db.Delete(key), ErrClosed)
	require.ErrorIs(db.Close(), ErrClosed)
}

// TestMemorySafetyDatabase ensures it is safe to modify a key after passing it
// to Database.Put and Database.Get.
func TestMemorySafetyDatabase(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("1key")
	keyCopy := bytes.Clone(key)
	value := []byte("value")
	key2 := []byte("2key")
	value2 := []byte("value2")

	require.NoError(db.Put(key, value))
	require.NoError(db.Put(key2, value2))

	// Modify the key passed into Put
	key[0] = '2'
	gotVal, err := db.Get(keyCopy)
	require.NoError(err)
	require.Equal(value, gotVal)

	// Modify the key passed into Get
	gotVal, err = db.Get(key)
	require.NoError(err)
	require.Equal(value2, gotVal)
}

// TestBatchPut tests to make sure that batched writes work as expected.
func TestBatchPut(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	value := []byte("world")

	batch := db.NewBatch()
	require.NotNil(batch)

	require.NoError(batch.Put(key, value))
	require.Positive(batch.Size())

	has, err := db.Has(key)
	require.NoError(err)
	require.False(has)

	require.NoError(batch.Write())

	v, err := db.Get(key)
	require.NoError(err)
	require.Equal(value, v)
}

// TestBatchDelete tests to make sure that batched deletes work as expected.
func TestBatchDelete(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	value := []byte("world")

	require.NoError(db.Put(key, value))

	batch := db.NewBatch()
	require.NotNil(batch)

	require.NoError(batch.Delete(key))
	require.NoError(batch.Write())

	has, err := db.Has(key)
	require.NoError(err)
	require.False(has)

	_, err = db.Get(key)
	require.ErrorIs(err, ErrNotFound)
}

// TestBatchReset tests to make sure that a batch drops un-written operations
// when it is reset.
func TestBatchReset(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	value := []byte("world")

	batch := db.NewBatch()
	require.NoError(batch.Put(key, value))

	batch.Reset()
	require.Zero(batch.Size())

	require.NoError(batch.Write())

	has, err := db.Has(key)
	require.NoError(err)
	require.False(has)
}

type replayRecorder struct {
	ops []BatchOp
}

func (r *replayRecorder) Put(key, value []byte) error {
	r.ops = append(r.ops, BatchOp{Key: bytes.Clone(key), Value: bytes.Clone(value)})
	return nil
}

func (r *replayRecorder) Delete(key []byte) error {
	r.ops = append(r.ops, BatchOp{Key: bytes.Clone(key), Delete: true})
	return nil
}

// TestBatchReplay tests to make sure that batches will correctly replay their
// contents in write order.
func TestBatchReplay(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")

	batch := db.NewBatch()
	require.NoError(batch.Put(key1, value1))
	require.NoError(batch.Delete(key2))

	recorder := &replayRecorder{}
	require.NoError(batch.Replay(recorder))
	require.Equal(
		[]BatchOp{
			{Key: key1, Value: value1},
			{Key: key2, Delete: true},
		},
		recorder.ops,
	)
}

// TestIteratorSnapshot tests to make sure the database iterates over a snapshot
// of the database at the time of the iterator creation.
func TestIteratorSnapshot(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")
	value2 := []byte("world2")

	require.NoError(db.Put(key1, value1))

	iterator := db.NewIterator()
	defer iterator.Release()

	require.NoError(db.Put(key2, value2))

	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.Equal(value1, iterator.Value())

	require.False(iterator.Next())
	require.Nil(iterator.Key())
	require.Nil(iterator.Value())
	require.NoError(iterator.Error())
}

// TestIterator tests to make sure the database iterates over the database
// contents lexicographically.
func TestIterator(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")
	value2 := []byte("world2")

	// Insert out of order to make sure ordering comes from the engine.
	require.NoError(db.Put(key2, value2))
	require.NoError(db.Put(key1, value1))

	iterator := db.NewIterator()
	defer iterator.Release()

	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.Equal(value1, iterator.Value())

	require.True(iterator.Next())
	require.Equal(key2, iterator.Key())
	require.Equal(value2, iterator.Value())

	require.False(iterator.Next())
	require.Nil(iterator.Key())
	require.Nil(iterator.Value())
	require.NoError(iterator.Error())
}

// TestIteratorStart tests to make sure the the iterator can be configured to
// start mid way through the database.
func TestIteratorStart(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")
	value2 := []byte("world2")

	require.NoError(db.Put(key1, value1))
	require.NoError(db.Put(key2, value2))

	iterator := db.NewIteratorWithStart(key2)
	defer iterator.Release()

	require.True(iterator.Next())
	require.Equal(key2, iterator.Key())
	require.Equal(value2, iterator.Value())

	require.False(iterator.Next())
	require.NoError(iterator.Error())
}

// TestIteratorPrefix tests to make sure the iterator can be configured to skip
// keys missing the provided prefix.
func TestIteratorPrefix(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello")
	value1 := []byte("world1")
	key2 := []byte("goodbye")
	value2 := []byte("world2")
	key3 := []byte("joy")
	value3 := []byte("world3")

	require.NoError(db.Put(key1, value1))
	require.NoError(db.Put(key2, value2))
	require.NoError(db.Put(key3, value3))

	iterator := db.NewIteratorWithPrefix([]byte("h"))
	defer iterator.Release()

	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.Equal(value1, iterator.Value())

	require.False(iterator.Next())
	require.NoError(iterator.Error())
}

// TestIteratorStartPrefix tests to make sure that the iterator can start mid
// way through the database while skipping a prefix.
func TestIteratorStartPrefix(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("z")
	value2 := []byte("world2")
	key3 := []byte("hello3")
	value3 := []byte("world3")

	require.NoError(db.Put(key1, value1))
	require.NoError(db.Put(key2, value2))
	require.NoError(db.Put(key3, value3))

	iterator := db.NewIteratorWithStartAndPrefix(key1, []byte("h"))
	defer iterator.Release()

	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.Equal(value1, iterator.Value())

	require.True(iterator.Next())
	require.Equal(key3, iterator.Key())
	require.Equal(value3, iterator.Value())

	require.False(iterator.Next())
	require.NoError(iterator.Error())
}

// TestIteratorMemorySafety tests to make sure that keys and values returned by
// an iterator can be retained after the iterator moves on.
func TestIteratorMemorySafety(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")
	value2 := []byte("world2")

	require.NoError(db.Put(key1, value1))
	require.NoError(db.Put(key2, value2))

	iterator := db.NewIterator()
	defer iterator.Release()

	var keys, values [][]byte
	for iterator.Next() {
		keys = append(keys, iterator.Key())
		values = append(values, iterator.Value())
	}
	require.NoError(iterator.Error())
	require.Equal([][]byte{key1, key2}, keys)
	require.Equal([][]byte{value1, value2}, values)
}

// TestSnapshotIsolation tests that writes after a snapshot is taken are not
// visible through the snapshot.
func TestSnapshotIsolation(t *testing.T, db Database) {
	require := require.New(t)

	key1 := []byte("hello1")
	value1 := []byte("world1")
	key2 := []byte("hello2")
	value2 := []byte("world2")

	require.NoError(db.Put(key1, value1))

	snapshot, err := db.NewSnapshot()
	require.NoError(err)
	defer snapshot.Release()

	require.NoError(db.Put(key1, value2))
	require.NoError(db.Put(key2, value2))

	v, err := snapshot.Get(key1)
	require.NoError(err)
	require.Equal(value1, v)

	has, err := snapshot.Has(key2)
	require.NoError(err)
	require.False(has)

	_, err = snapshot.Get(key2)
	require.ErrorIs(err, ErrNotFound)

	require.NoError(db.Delete(key1))

	v, err = snapshot.Get(key1)
	require.NoError(err)
	require.Equal(value1, v)
}

// TestSnapshotIteratorIsolation tests that iterators created from a snapshot
// observe the snapshot's contents regardless of later writes.
func TestSnapshotIteratorIsolation(t *testing.T, db Database) {
	require := require.New(t)

	require.NoError(db.Put([]byte("a/1"), []byte("1")))
	require.NoError(db.Put([]byte("a/2"), []byte("2")))
	require.NoError(db.Put([]byte("b/1"), []byte("3")))

	snapshot, err := db.NewSnapshot()
	require.NoError(err)
	defer snapshot.Release()

	require.NoError(db.Put([]byte("a/0"), []byte("0")))
	require.NoError(db.Delete([]byte("a/2")))

	iterator := snapshot.NewIteratorWithPrefix([]byte("a/"))
	defer iterator.Release()

	var keys []string
	for iterator.Next() {
		keys = append(keys, string(iterator.Key()))
	}
	require.NoError(iterator.Error())
	require.Equal([]string{"a/1", "a/2"}, keys)

	startIterator := snapshot.NewIteratorWithStartAndPrefix([]byte("a/2"), []byte("a/"))
	defer startIterator.Release()

	require.True(startIterator.Next())
	require.Equal([]byte("a/2"), startIterator.Key())
	require.False(startIterator.Next())
	require.NoError(startIterator.Error())
}

// TestSnapshotConcurrentReads tests that a snapshot can be read from many
// goroutines at once.
func TestSnapshotConcurrentReads(t *testing.T, db Database) {
	require := require.New(t)

	const numKeys = 64
	for i := 0; i < numKeys; i++ {
		require.NoError(db.Put([]byte(fmt.Sprintf("key%03d", i)), []byte(fmt.Sprintf("value%03d", i))))
	}

	snapshot, err := db.NewSnapshot()
	require.NoError(err)
	defer snapshot.Release()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, numKeys)
	)
	for i := 0; i < numKeys; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			v, err := snapshot.Get([]byte(fmt.Sprintf("key%03d", i)))
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("value%03d", i); string(v) != want {
				errs <- fmt.Errorf("got %q, want %q", v, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(err)
	}
}

// TestSnapshotRelease tests that a released snapshot reports ErrClosed.
func TestSnapshotRelease(t *testing.T, db Database) {
	require := require.New(t)

	key := []byte("hello")
	require.NoError(db.Put(key, []byte("world")))

	snapshot, err := db.NewSnapshot()
	require.NoError(err)

	snapshot.Release()
	snapshot.Release()

	_, err = snapshot.Get(key)
	require.ErrorIs(err, ErrClosed)

	_, err = snapshot.Has(key)
	require.ErrorIs(err, ErrClosed)

	iterator := snapshot.NewIterator()
	require.False(iterator.Next())
	require.ErrorIs(iterator.Error(), ErrClosed)
	iterator.Release()
}
