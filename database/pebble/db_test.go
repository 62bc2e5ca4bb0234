// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/utils/logging"
)

func TestInterface(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			db, err := New(t.TempDir(), DefaultConfig, logging.NoLog{})
			require.NoError(t, err)

			test(t, db)

			// The database may have been closed by the test, so we don't care
			// if it errors here.
			_ = db.Close()
		})
	}
}

func TestInterfaceMem(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			db, err := NewMem(DefaultConfig, logging.NoLog{})
			require.NoError(t, err)

			test(t, db)

			_ = db.Close()
		})
	}
}

func TestCloseReleasesSnapshots(t *testing.T) {
	require := require.New(t)

	db, err := NewMem(DefaultConfig, logging.NoLog{})
	require.NoError(err)
	require.NoError(db.Put([]byte("key"), []byte("value")))

	snapshot, err := db.NewSnapshot()
	require.NoError(err)

	it := snapshot.NewIterator()
	require.True(it.Next())

	liveIt := db.NewIterator()

	require.NoError(db.Close())

	_, err = snapshot.Get([]byte("key"))
	require.ErrorIs(err, database.ErrClosed)

	require.False(it.Next())
	require.ErrorIs(it.Error(), database.ErrClosed)
	require.False(liveIt.Next())
	require.ErrorIs(liveIt.Error(), database.ErrClosed)

	// Releasing after close is a no-op.
	it.Release()
	liveIt.Release()
	snapshot.Release()
}

func Test_prefixBounds(t *testing.T) {
	require := require.New(t)

	prefs := [][]byte{
		{},
		{1},
		{1, 2, 3},
		{1, 2, 3, 4, 5, 8, 19, 29},
	}
	for _, pref := range prefs {
		itopt := prefixBounds(pref)
		if lbLen := len(itopt.LowerBound); lbLen > 0 {
			require.Equal(pref, itopt.LowerBound)
			upper := append([]byte{}, itopt.LowerBound...)
			upper[lbLen-1]++
			require.Equal(upper, itopt.UpperBound)
		}
	}

	require.Equal([]byte{2}, prefixBounds([]byte{1, 0xFF}).UpperBound)
	require.Nil(prefixBounds([]byte{0xFF, 0xFF}).UpperBound)
}
