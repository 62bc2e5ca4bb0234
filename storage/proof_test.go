// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/database/memdb"
	"github.com/ava-labs/multistore/x/smt"
)

func TestProofChain(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, memdb.New(), "a/", "a/b/", "dex/")
	_, root := commit(t, s, func(c *Changeset) {
		c.Put("main", []byte("0"))
		c.Put("a/x", []byte("1"))
		c.Put("a/b/y", []byte("2"))
		c.Put("dex/pool", []byte("3"))
	})
	snapshot := s.LatestSnapshot()

	tests := []struct {
		key           string
		expectedValue []byte
		expectedKeys  []string
	}{
		{
			key:           "main",
			expectedValue: []byte("0"),
			expectedKeys:  []string{"main"},
		},
		{
			key:           "a/x",
			expectedValue: []byte("1"),
			expectedKeys:  []string{"x", "a/"},
		},
		{
			key:           "a/b/y",
			expectedValue: []byte("2"),
			expectedKeys:  []string{"y", "b/", "a/"},
		},
		{
			key:          "a/b/missing",
			expectedKeys: []string{"missing", "b/", "a/"},
		},
		{
			key:          "missing",
			expectedKeys: []string{"missing"},
		},
		{
			key:           "dex/pool",
			expectedValue: []byte("3"),
			expectedKeys:  []string{"pool", "dex/"},
		},
	}
	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			require := require.New(t)

			value, chain, err := snapshot.GetWithProof(ctx, []byte(test.key))
			require.NoError(err)
			require.Equal(test.expectedValue, value)

			keys := make([]string, len(chain))
			for i, link := range chain {
				keys[i] = string(link.Key)
			}
			require.Equal(test.expectedKeys, keys)
			require.NoError(VerifyProofChain(s.Config(), root, []byte(test.key), value, chain))

			encoded, err := chain.Marshal()
			require.NoError(err)
			require.Len(encoded, len(chain))
		})
	}
}

func TestProofChainRejectsWrongClaims(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/")
	_, root0 := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool", []byte("A"))
		c.Put("other", []byte("B"))
	})
	old := s.LatestSnapshot()
	_, root1 := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool", []byte("A2"))
	})
	latest := s.LatestSnapshot()

	key := []byte("dex/pool")
	oldValue, oldChain, err := old.GetWithProof(ctx, key)
	require.NoError(err)
	newValue, newChain, err := latest.GetWithProof(ctx, key)
	require.NoError(err)

	require.NoError(VerifyProofChain(s.Config(), root0, key, oldValue, oldChain))
	require.NoError(VerifyProofChain(s.Config(), root1, key, newValue, newChain))

	// Proofs from one version don't verify against another.
	require.ErrorIs(VerifyProofChain(s.Config(), root1, key, oldValue, oldChain), ErrInvalidProof)
	require.ErrorIs(VerifyProofChain(s.Config(), root0, key, newValue, newChain), ErrInvalidProof)
	require.Error(VerifyProofChain(s.Config(), root1, key, oldValue, newChain))

	// Absence can't be claimed for a present key.
	require.Error(VerifyProofChain(s.Config(), root1, key, nil, newChain))

	// The chain must be for the queried key.
	require.ErrorIs(VerifyProofChain(s.Config(), root1, []byte("dex/other"), newValue, newChain), ErrInvalidProof)

	require.ErrorIs(VerifyProofChain(s.Config(), root1, key, newValue, nil), ErrInvalidProof)
	require.ErrorIs(VerifyProofChain(s.Config(), root1, key, newValue, newChain[:1]), ErrInvalidProof)

	emptyKey := ProofChain{
		{Proof: newChain[0].Proof},
		newChain[1],
	}
	require.ErrorIs(VerifyProofChain(s.Config(), root1, key, newValue, emptyKey), ErrInvalidProof)
}

func TestProofChainRejectsUnroutedLinks(t *testing.T) {
	require := require.New(t)

	s := newTestStorage(t, memdb.New(), "dex/")
	_, root := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool/1", []byte("A"))
		c.Put("other", []byte("B"))
	})
	snapshot := s.LatestSnapshot()

	// The main tree really lacks "dex/pool/1", but the key belongs to "dex/".
	key := []byte("dex/pool/1")
	value, proof, err := snapshot.substores[s.Config().Main()].getWithProof(key)
	require.NoError(err)
	require.Nil(value)
	require.NoError(smt.VerifyNonExistence(root, proof, key))

	forged := ProofChain{{
		Key:   key,
		Proof: proof,
	}}
	err = VerifyProofChain(s.Config(), root, key, nil, forged)
	require.ErrorIs(err, ErrInvalidProof)
	require.ErrorIs(err, errChainLength)

	// A chain of the right length must still be keyed along the route.
	_, chain, err := snapshot.GetWithProof(context.Background(), key)
	require.NoError(err)
	resplit := ProofChain{
		{Key: []byte("pool/1"), Proof: chain[0].Proof},
		{Key: []byte("dex"), Proof: chain[1].Proof},
	}
	err = VerifyProofChain(s.Config(), root, key, []byte("A"), resplit)
	require.ErrorIs(err, ErrInvalidProof)
	require.ErrorIs(err, errKeyMismatch)
}

func TestProofChainEmptySubstore(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/", "stake/")
	_, root := commit(t, s, func(c *Changeset) {
		c.Put("stake/val", []byte("C"))
	})
	snapshot := s.LatestSnapshot()

	// "dex/" has no entries, so the main tree proves it absent.
	key := []byte("dex/pool")
	value, chain, err := snapshot.GetWithProof(ctx, key)
	require.NoError(err)
	require.Nil(value)
	require.Len(chain, 2)
	require.NoError(VerifyProofChain(s.Config(), root, key, nil, chain))
	require.Error(VerifyProofChain(s.Config(), root, key, []byte("C"), chain))
}

func TestGetWithProofEmptyKey(t *testing.T) {
	require := require.New(t)

	s := newTestStorage(t, memdb.New(), "dex/")
	commit(t, s, func(c *Changeset) {
		c.Put("dex/pool", []byte("A"))
	})

	_, _, err := s.LatestSnapshot().GetWithProof(context.Background(), []byte("dex/"))
	require.ErrorIs(err, ErrEmptyKey)

	_, err = s.LatestSnapshot().Get(context.Background(), "")
	require.ErrorIs(err, ErrEmptyKey)
}

func TestHoldsRoot(t *testing.T) {
	require := require.New(t)

	root := smt.HashKey([]byte("root"))
	require.True(holdsRoot(root[:], root))
	require.False(holdsRoot(nil, root))
	require.True(holdsRoot(nil, smt.EmptyRoot))
	require.False(holdsRoot(root[:], smt.EmptyRoot))
}
