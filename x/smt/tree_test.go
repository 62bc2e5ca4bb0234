// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ics23 "github.com/cosmos/ics23/go"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/memdb"
)

type testTree struct {
	db      *memdb.Database
	nodes   *Nodes
	metrics *mockMetrics
}

func newTestTree(t *testing.T, cacheSize int) *testTree {
	cache, err := NewCache(cacheSize)
	require.NoError(t, err)

	db := memdb.New()
	metrics := &mockMetrics{}
	return &testTree{
		db:      db,
		nodes:   NewNodes(db, cache, metrics),
		metrics: metrics,
	}
}

func (tt *testTree) apply(t *testing.T, root Hash, changes ...Change) Hash {
	require := require.New(t)

	batch := tt.db.NewBatch()
	newRoot, err := Apply(tt.nodes, root, changes, batch)
	require.NoError(err)
	require.NoError(batch.Write())
	return newRoot
}

func put(key, value string) Change {
	return Change{
		Key:   []byte(key),
		Value: []byte(value),
	}
}

func del(key string) Change {
	return Change{
		Key:    []byte(key),
		Delete: true,
	}
}

func TestEmptyTree(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	view := tree.nodes.View(EmptyRoot)
	require.Equal(EmptyRoot, view.Root())

	_, ok, err := view.Get(HashKey([]byte("key")))
	require.NoError(err)
	require.False(ok)

	value, proof, err := view.GetWithProof([]byte("key"))
	require.NoError(err)
	require.Nil(value)
	require.NotNil(proof.GetNonexist())
	require.Nil(proof.GetNonexist().Left)
	require.Nil(proof.GetNonexist().Right)

	require.NoError(VerifyNonExistence(EmptyRoot, proof, []byte("key")))
	root, err := CalculateRoot(proof)
	require.NoError(err)
	require.Equal(EmptyRoot, root)

	// A proof without neighbours only proves absence from the empty tree.
	nonEmpty := tree.apply(t, EmptyRoot, put("other", "value"))
	require.ErrorIs(VerifyNonExistence(nonEmpty, proof, []byte("key")), ErrInvalidProof)
}

func TestSingleLeafRoot(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("key", "value"))
	require.Equal(hashLeaf(HashKey([]byte("key")), []byte("value")), root)

	value, proof, err := tree.nodes.View(root).GetWithProof([]byte("key"))
	require.NoError(err)
	require.Equal([]byte("value"), value)
	require.Empty(proof.GetExist().Path)
	require.True(ics23.VerifyMembership(ProofSpec, root[:], proof, []byte("key"), []byte("value")))

	// The only leaf is a neighbour of every absent key.
	_, proof, err = tree.nodes.View(root).GetWithProof([]byte("absent"))
	require.NoError(err)
	require.True(ics23.VerifyNonMembership(ProofSpec, root[:], proof, []byte("absent")))
}

func TestApplyGet(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	changes := make([]Change, 0, 100)
	for i := 0; i < 100; i++ {
		changes = append(changes, put(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)))
	}
	root := tree.apply(t, EmptyRoot, changes...)
	view := tree.nodes.View(root)

	for i := 0; i < 100; i++ {
		value, ok, err := view.Get(HashKey([]byte(fmt.Sprintf("key%d", i))))
		require.NoError(err)
		require.True(ok)
		require.Equal([]byte(fmt.Sprintf("value%d", i)), value)
	}

	_, ok, err := view.Get(HashKey([]byte("key100")))
	require.NoError(err)
	require.False(ok)
}

func TestApplyLastChangeWins(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot,
		put("key", "first"),
		put("key", "second"),
		put("deleted", "value"),
		del("deleted"),
	)
	expected := tree.apply(t, EmptyRoot, put("key", "second"))
	require.Equal(expected, root)
}

func TestApplyInvalidChanges(t *testing.T) {
	tests := []struct {
		name        string
		change      Change
		expectedErr error
	}{
		{
			name:        "empty key",
			change:      put("", "value"),
			expectedErr: ErrEmptyKey,
		},
		{
			name:        "empty value",
			change:      put("key", ""),
			expectedErr: ErrEmptyValue,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree := newTestTree(t, 0)
			batch := tree.db.NewBatch()
			_, err := Apply(tree.nodes, EmptyRoot, []Change{test.change}, batch)
			require.ErrorIs(t, err, test.expectedErr)
			require.Zero(t, batch.Size())
		})
	}
}

func TestDeleteCollapses(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"), put("c", "3"))
	root = tree.apply(t, root, del("a"), del("b"))

	// With a single leaf left, the root is the leaf itself.
	require.Equal(hashLeaf(HashKey([]byte("c")), []byte("3")), root)

	root = tree.apply(t, root, del("c"))
	require.Equal(EmptyRoot, root)
}

func TestDeleteAbsentKeyIsNoop(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"))
	require.Equal(root, tree.apply(t, root, del("absent")))
	require.Equal(EmptyRoot, tree.apply(t, EmptyRoot, del("absent")))
}

func TestOldRootsRemainReadable(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	v0 := tree.apply(t, EmptyRoot, put("key", "old"), put("other", "value"))
	v1 := tree.apply(t, v0, put("key", "new"), del("other"))

	value, ok, err := tree.nodes.View(v0).Get(HashKey([]byte("key")))
	require.NoError(err)
	require.True(ok)
	require.Equal([]byte("old"), value)

	_, ok, err = tree.nodes.View(v1).Get(HashKey([]byte("other")))
	require.NoError(err)
	require.False(ok)

	_, ok, err = tree.nodes.View(v0).Get(HashKey([]byte("other")))
	require.NoError(err)
	require.True(ok)
}

func TestProofs(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	changes := make([]Change, 0, 64)
	for i := 0; i < 64; i++ {
		changes = append(changes, put(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)))
	}
	root := tree.apply(t, EmptyRoot, changes...)
	otherRoot := tree.apply(t, root, put("key0", "changed"))
	view := tree.nodes.View(root)

	for i := 0; i < 64; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		expected := []byte(fmt.Sprintf("value%d", i))

		value, proof, err := view.GetWithProof(key)
		require.NoError(err)
		require.Equal(expected, value)
		require.True(ics23.VerifyMembership(ProofSpec, root[:], proof, key, value))
		require.NoError(VerifyExistence(root, proof, key, value))
		require.NoError(Verify(root, proof, key, value))

		calculated, err := CalculateRoot(proof)
		require.NoError(err)
		require.Equal(root, calculated)

		require.ErrorIs(VerifyExistence(root, proof, key, []byte("wrong")), ErrInvalidProof)
		require.ErrorIs(VerifyNonExistence(root, proof, key), ErrInvalidProof)
		if i != 0 {
			require.ErrorIs(VerifyExistence(otherRoot, proof, key, value), ErrInvalidProof)
		}
	}

	for i := 64; i < 128; i++ {
		key := []byte(fmt.Sprintf("key%d", i))

		value, proof, err := view.GetWithProof(key)
		require.NoError(err)
		require.Nil(value)
		require.True(ics23.VerifyNonMembership(ProofSpec, root[:], proof, key))
		require.NoError(VerifyNonExistence(root, proof, key))
		require.NoError(Verify(root, proof, key, nil))

		calculated, err := CalculateRoot(proof)
		require.NoError(err)
		require.Equal(root, calculated)

		require.ErrorIs(VerifyNonExistence(otherRoot, proof, key), ErrInvalidProof)
		require.ErrorIs(VerifyExistence(root, proof, key, []byte("value")), ErrInvalidProof)
	}
}

func TestNonExistenceProofRejectsOtherKeys(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"), put("c", "3"), put("d", "4"))
	view := tree.nodes.View(root)

	_, proof, err := view.GetWithProof([]byte("absent"))
	require.NoError(err)

	// A present key is never between two adjacent leaves.
	for _, key := range []string{"a", "b", "c", "d"} {
		require.ErrorIs(VerifyNonExistence(root, proof, []byte(key)), ErrInvalidProof)
	}
}

func TestMissingNode(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"))
	require.NoError(tree.db.Delete(root[:]))

	_, _, err := tree.nodes.View(root).Get(HashKey([]byte("a")))
	require.ErrorIs(err, ErrMissingNode)

	_, _, err = tree.nodes.View(root).GetWithProof([]byte("a"))
	require.ErrorIs(err, ErrMissingNode)
}

func TestCorruptedNode(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"))

	// A well formed node stored under the wrong hash.
	require.NoError(tree.db.Put(root[:], encodeNode(newInner(EmptyRoot, EmptyRoot))))

	_, _, err := tree.nodes.View(root).Get(HashKey([]byte("a")))
	require.ErrorIs(err, ErrInvalidNode)
}

func TestReadErrorsPropagate(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 0)
	root := tree.apply(t, EmptyRoot, put("a", "1"))
	require.NoError(tree.db.Close())

	_, _, err := tree.nodes.View(root).Get(HashKey([]byte("a")))
	require.ErrorIs(err, database.ErrClosed)
}

func TestCache(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 16)
	root := tree.apply(t, EmptyRoot, put("a", "1"), put("b", "2"))
	view := tree.nodes.View(root)

	_, _, err := view.Get(HashKey([]byte("a")))
	require.NoError(err)
	reads := tree.metrics.nodeReadCount
	require.Equal(int64(2), reads)
	require.Equal(int64(2), tree.metrics.nodeCacheMiss)

	// Cached nodes are served without touching the database, even once the
	// database no longer has them.
	require.NoError(tree.db.Delete(root[:]))
	_, _, err = view.Get(HashKey([]byte("a")))
	require.NoError(err)
	require.Equal(reads, tree.metrics.nodeReadCount)
	require.Equal(int64(2), tree.metrics.nodeCacheHit)
	require.Equal(2, tree.nodes.cache.Len())
}

func TestNewMetricsWithoutRegisterer(t *testing.T) {
	require := require.New(t)

	m, err := NewMetrics("smt", nil)
	require.NoError(err)
	require.IsType(&noopMetrics{}, m)
}
