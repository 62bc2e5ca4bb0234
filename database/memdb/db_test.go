// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memdb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/database"
)

func TestInterface(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New())
		})
	}
}

func TestSnapshotSurvivesManyWrites(t *testing.T) {
	require := require.New(t)

	db := New()
	for i := 0; i < 1000; i++ {
		require.NoError(db.Put([]byte(fmt.Sprintf("%04d", i)), []byte{byte(i)}))
	}

	snapshot, err := db.NewSnapshot()
	require.NoError(err)
	defer snapshot.Release()

	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("%04d", i))
		if i%2 == 0 {
			require.NoError(db.Delete(key))
		} else {
			require.NoError(db.Put(key, []byte("overwritten")))
		}
	}

	count, err := database.Count(snapshot)
	require.NoError(err)
	require.Equal(1000, count)

	v, err := snapshot.Get([]byte("0999"))
	require.NoError(err)
	require.Equal([]byte{byte(999 % 256)}, v)

	count, err = database.Count(db)
	require.NoError(err)
	require.Equal(500, count)
}

func TestSnapshotOutlivesClose(t *testing.T) {
	require := require.New(t)

	db := New()
	require.NoError(db.Put([]byte("key"), []byte("value")))

	snapshot, err := db.NewSnapshot()
	require.NoError(err)
	defer snapshot.Release()

	require.NoError(db.Close())

	_, err = db.NewSnapshot()
	require.ErrorIs(err, database.ErrClosed)

	v, err := snapshot.Get([]byte("key"))
	require.NoError(err)
	require.Equal([]byte("value"), v)
}
