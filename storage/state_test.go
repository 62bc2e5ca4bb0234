// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/memdb"
)

func TestChangesetLastWriteWins(t *testing.T) {
	require := require.New(t)

	value := []byte("value")
	c := NewChangeset()
	c.Put("key", value)
	value[0] = 'X'
	require.Equal([]byte("value"), c.verifiable["key"].value)

	c.Delete("key")
	require.True(c.verifiable["key"].delete)
	c.Put("key", []byte("again"))
	require.False(c.verifiable["key"].delete)

	c.NonverifiablePut([]byte("raw"), []byte("1"))
	c.NonverifiableDelete([]byte("raw"))
	require.True(c.nonverifiable["raw"].delete)

	require.Equal(2, c.Len())
	require.Equal([]string{"key"}, sortedKeys(c.verifiable))
}

func TestUint64Helpers(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "counters/")
	var w StateWriter = NewChangeset()
	PutUint64(w, "counters/height", 42)
	NonverifiablePutUint64(w, []byte("counters/seen"), 7)
	w.Put("counters/bad", []byte("short"))
	_, _, err := s.Commit(ctx, w.(*Changeset))
	require.NoError(err)

	var r StateReader = s.LatestSnapshot()
	height, ok, err := GetUint64(ctx, r, "counters/height")
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(42), height)

	seen, ok, err := NonverifiableGetUint64(ctx, r, []byte("counters/seen"))
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(7), seen)

	_, ok, err = GetUint64(ctx, r, "counters/missing")
	require.NoError(err)
	require.False(ok)

	_, ok, err = NonverifiableGetUint64(ctx, r, []byte("counters/missing"))
	require.NoError(err)
	require.False(ok)

	_, _, err = GetUint64(ctx, r, "counters/bad")
	require.ErrorContains(err, "counters/bad")
}

func TestCollectEmptyStream(t *testing.T) {
	require := require.New(t)

	items, err := Collect(newFailedStream[int](nil))
	require.NoError(err)
	require.Empty(items)

	_, err = Collect(newFailedStream[int](database.ErrClosed))
	require.ErrorIs(err, database.ErrClosed)
}

func TestNonverifiableRangeRaw(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, memdb.New(), "p/")
	commit(t, s, func(c *Changeset) {
		for _, key := range []string{"p/a", "p/b", "p/c", "p/ca", "q/a", "p"} {
			c.NonverifiablePut([]byte(key), []byte(key))
		}
	})
	snapshot := s.LatestSnapshot()

	tests := []struct {
		name         string
		prefix       string
		r            Range
		expectedKeys []string
		expectedErr  error
	}{
		{
			name:         "unbounded",
			prefix:       "p/",
			expectedKeys: []string{"p/a", "p/b", "p/c", "p/ca"},
		},
		{
			name:         "start inclusive",
			prefix:       "p/",
			r:            Range{Start: []byte("b")},
			expectedKeys: []string{"p/b", "p/c", "p/ca"},
		},
		{
			name:         "end exclusive",
			prefix:       "p/",
			r:            Range{Start: []byte("b"), End: []byte("c")},
			expectedKeys: []string{"p/b"},
		},
		{
			name:         "empty range",
			prefix:       "p/",
			r:            Range{Start: []byte("b"), End: []byte("b")},
			expectedKeys: nil,
		},
		{
			name:         "prefix spanning sub-stores",
			prefix:       "p",
			expectedKeys: []string{"p", "p/a", "p/b", "p/c", "p/ca"},
		},
		{
			name:         "everything",
			prefix:       "",
			r:            Range{Start: []byte("p/c")},
			expectedKeys: []string{"p/c", "p/ca", "q/a"},
		},
		{
			name:        "inverted",
			prefix:      "p/",
			r:           Range{Start: []byte("c"), End: []byte("b")},
			expectedErr: ErrInvalidRange,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			stream, err := snapshot.NonverifiableRangeRaw(ctx, []byte(test.prefix), test.r)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil {
				return
			}
			items, err := Collect(stream)
			require.NoError(err)

			var keys []string
			for _, item := range items {
				keys = append(keys, string(item.Key))
				require.Equal(item.Key, item.Value)
			}
			require.Equal(test.expectedKeys, keys)
		})
	}
}
