// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/memdb"
	"github.com/ava-labs/multistore/utils/logging"
	"github.com/ava-labs/multistore/x/smt"
)

func newTestStorage(t *testing.T, db database.Database, substores ...string) *Storage {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Substores = substores
	s, err := New(db, cfg, logging.NoLog{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func commit(t *testing.T, s *Storage, f func(*Changeset)) (uint64, smt.Hash) {
	t.Helper()

	changes := NewChangeset()
	f(changes)
	version, root, err := s.Commit(context.Background(), changes)
	require.NoError(t, err)
	return version, root
}

func TestScenario(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/", "stake/")
	version, root := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool/1", []byte("A"))
		c.Put("dex/pool/2", []byte("B"))
		c.Put("stake/val/1", []byte("C"))
	})
	require.Zero(version)
	require.False(root.IsEmpty())

	snapshot := s.LatestSnapshot()
	require.Equal(version, snapshot.Version())

	pools, err := Collect(snapshot.PrefixRaw(ctx, "dex/pool/"))
	require.NoError(err)
	require.Equal([]KeyValue{
		{Key: "dex/pool/1", Value: []byte("A")},
		{Key: "dex/pool/2", Value: []byte("B")},
	}, pools)

	value, chain, err := snapshot.GetWithProof(ctx, []byte("stake/val/1"))
	require.NoError(err)
	require.Equal([]byte("C"), value)
	require.Len(chain, 2)
	require.Equal([]byte("val/1"), chain[0].Key)
	require.Equal([]byte("stake/"), chain[1].Key)

	compositeRoot, err := snapshot.RootHash(ctx)
	require.NoError(err)
	require.Equal(root, compositeRoot)
	require.NoError(VerifyProofChain(s.Config(), compositeRoot, []byte("stake/val/1"), value, chain))
}

func TestPreGenesis(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/")
	require.Equal(PreGenesisVersion, s.LatestVersion())

	snapshot := s.LatestSnapshot()
	root, err := snapshot.RootHash(ctx)
	require.NoError(err)
	require.Equal(smt.EmptyRoot, root)

	value, err := snapshot.Get(ctx, "dex/missing")
	require.NoError(err)
	require.Nil(value)

	value, chain, err := snapshot.GetWithProof(ctx, []byte("dex/missing"))
	require.NoError(err)
	require.Nil(value)
	require.NoError(VerifyProofChain(s.Config(), smt.EmptyRoot, []byte("dex/missing"), nil, chain))

	keys, err := Collect(snapshot.PrefixKeys(ctx, ""))
	require.NoError(err)
	require.Empty(keys)
}

func TestEmptySubstoreRoot(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/", "stake/")
	commit(t, s, func(c *Changeset) {
		c.Put("dex/pool/1", []byte("A"))
	})

	snapshot := s.LatestSnapshot()
	stakeRoot, err := snapshot.RootHashFor(ctx, "stake/")
	require.NoError(err)
	require.Equal(smt.EmptyRoot, stakeRoot)

	dexRoot, err := snapshot.RootHashFor(ctx, "dex/")
	require.NoError(err)
	require.NotEqual(smt.EmptyRoot, dexRoot)

	// Removing the last entry of a sub-store removes it from its parent.
	commit(t, s, func(c *Changeset) {
		c.Delete("dex/pool/1")
	})
	snapshot = s.LatestSnapshot()
	dexRoot, err = snapshot.RootHashFor(ctx, "dex/")
	require.NoError(err)
	require.Equal(smt.EmptyRoot, dexRoot)

	root, err := snapshot.RootHash(ctx)
	require.NoError(err)
	require.Equal(smt.EmptyRoot, root)
}

func TestSnapshotIsolation(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New(), "dex/")
	v0, _ := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool/1", []byte("A"))
		c.Put("main", []byte("M"))
		c.NonverifiablePut([]byte("dex/raw"), []byte("R"))
	})
	old := s.LatestSnapshot()

	v1, _ := commit(t, s, func(c *Changeset) {
		c.Put("dex/pool/1", []byte("A2"))
		c.Delete("main")
		c.Put("dex/pool/2", []byte("B"))
		c.NonverifiableDelete([]byte("dex/raw"))
	})
	require.Equal(v0+1, v1)

	value, err := old.Get(ctx, "dex/pool/1")
	require.NoError(err)
	require.Equal([]byte("A"), value)

	value, err = old.Get(ctx, "main")
	require.NoError(err)
	require.Equal([]byte("M"), value)

	value, err = old.NonverifiableGet(ctx, []byte("dex/raw"))
	require.NoError(err)
	require.Equal([]byte("R"), value)

	keys, err := Collect(old.PrefixKeys(ctx, "dex/"))
	require.NoError(err)
	require.Equal([]string{"dex/pool/1"}, keys)

	latest := s.LatestSnapshot()
	value, err = latest.Get(ctx, "dex/pool/1")
	require.NoError(err)
	require.Equal([]byte("A2"), value)

	value, err = latest.Get(ctx, "main")
	require.NoError(err)
	require.Nil(value)

	value, err = latest.NonverifiableGet(ctx, []byte("dex/raw"))
	require.NoError(err)
	require.Nil(value)

	keys, err = Collect(latest.PrefixKeys(ctx, "dex/"))
	require.NoError(err)
	require.Equal([]string{"dex/pool/1", "dex/pool/2"}, keys)
}

func TestCommitValidation(t *testing.T) {
	tests := []struct {
		name        string
		changes     func(*Changeset)
		expectedErr error
	}{
		{
			name: "empty value",
			changes: func(c *Changeset) {
				c.Put("key", nil)
			},
			expectedErr: ErrEmptyValue,
		},
		{
			name: "empty nonverifiable value",
			changes: func(c *Changeset) {
				c.NonverifiablePut([]byte("key"), []byte{})
			},
			expectedErr: ErrEmptyValue,
		},
		{
			name: "empty key",
			changes: func(c *Changeset) {
				c.Put("", []byte("value"))
			},
			expectedErr: ErrEmptyKey,
		},
		{
			name: "sub-store prefix as key",
			changes: func(c *Changeset) {
				c.Put("dex/", []byte("value"))
			},
			expectedErr: ErrEmptyKey,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			s := newTestStorage(t, memdb.New(), "dex/")
			changes := NewChangeset()
			test.changes(changes)
			_, _, err := s.Commit(context.Background(), changes)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(PreGenesisVersion, s.LatestVersion())
		})
	}
}

func TestCommitCancelled(t *testing.T) {
	require := require.New(t)

	s := newTestStorage(t, memdb.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	changes := NewChangeset()
	changes.Put("key", []byte("value"))
	_, _, err := s.Commit(ctx, changes)
	require.ErrorIs(err, context.Canceled)
	require.Equal(PreGenesisVersion, s.LatestVersion())
}

func TestEmptyCommit(t *testing.T) {
	require := require.New(t)

	s := newTestStorage(t, memdb.New(), "dex/")
	v0, root0 := commit(t, s, func(c *Changeset) {
		c.Put("dex/a", []byte("1"))
	})
	v1, root1 := commit(t, s, func(*Changeset) {})
	require.Equal(v0+1, v1)
	require.Equal(root0, root1)
}

func TestReopen(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	db := memdb.New()
	s := newTestStorage(t, db, "dex/")
	version, root := commit(t, s, func(c *Changeset) {
		c.Put("dex/a", []byte("1"))
		c.Put("b", []byte("2"))
	})
	require.NoError(s.Close())

	reopened := newTestStorage(t, db, "dex/")
	require.Equal(version, reopened.LatestVersion())

	snapshot := reopened.LatestSnapshot()
	reopenedRoot, err := snapshot.RootHash(ctx)
	require.NoError(err)
	require.Equal(root, reopenedRoot)

	value, err := snapshot.Get(ctx, "dex/a")
	require.NoError(err)
	require.Equal([]byte("1"), value)

	next, _ := commit(t, reopened, func(c *Changeset) {
		c.Put("dex/c", []byte("3"))
	})
	require.Equal(version+1, next)
}

func TestSnapshotCache(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.SnapshotCacheSize = 2
	s, err := New(memdb.New(), cfg, logging.NoLog{}, nil)
	require.NoError(err)
	defer s.Close()

	var snapshots []*Snapshot
	for i := 0; i < 3; i++ {
		version, _ := commit(t, s, func(c *Changeset) {
			c.Put("key", []byte(fmt.Sprintf("value%d", i)))
		})
		snapshot, ok := s.Snapshot(version)
		require.True(ok)
		snapshots = append(snapshots, snapshot)
	}

	_, ok := s.Snapshot(0)
	require.False(ok)
	_, err = s.SnapshotOrErr(0)
	require.ErrorIs(err, errNotCached)

	for _, version := range []uint64{1, 2} {
		_, ok := s.Snapshot(version)
		require.True(ok)
	}

	// Evicted snapshots stay readable by their holders.
	value, err := snapshots[0].Get(ctx, "key")
	require.NoError(err)
	require.Equal([]byte("value0"), value)
}

func TestClose(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := newTestStorage(t, memdb.New())
	commit(t, s, func(c *Changeset) {
		c.Put("key", []byte("value"))
	})
	snapshot := s.LatestSnapshot()
	require.NoError(s.Close())
	require.ErrorIs(s.Close(), ErrClosed)

	_, err := snapshot.Get(ctx, "key")
	require.ErrorIs(err, ErrClosed)

	_, err = Collect(snapshot.PrefixRaw(ctx, ""))
	require.ErrorIs(err, ErrClosed)

	_, _, err = s.Commit(ctx, NewChangeset())
	require.ErrorIs(err, ErrClosed)
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name: "snapshot cache size",
			modify: func(c *Config) {
				c.SnapshotCacheSize = 0
			},
			expectedErr: errInvalidSnapshotCacheSize,
		},
		{
			name: "stream buffer size",
			modify: func(c *Config) {
				c.StreamBufferSize = -1
			},
			expectedErr: errInvalidStreamBufferSize,
		},
		{
			name: "max concurrent reads",
			modify: func(c *Config) {
				c.MaxConcurrentReads = 0
			},
			expectedErr: errInvalidMaxConcurrentReads,
		},
		{
			name: "duplicate prefix",
			modify: func(c *Config) {
				c.Substores = []string{"a/", "a/"}
			},
			expectedErr: errDuplicatePrefix,
		},
		{
			name: "empty prefix",
			modify: func(c *Config) {
				c.Substores = []string{""}
			},
			expectedErr: errEmptyPrefix,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)
			_, err := New(memdb.New(), cfg, logging.NoLog{}, nil)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestMetricsRegistered(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	s, err := New(memdb.New(), DefaultConfig(), logging.NoLog{}, reg)
	require.NoError(err)
	defer s.Close()

	commit(t, s, func(c *Changeset) {
		c.Put("a", []byte("1"))
		c.Put("b", []byte("2"))
	})
	snapshot := s.LatestSnapshot()
	_, err = snapshot.Get(ctx, "a")
	require.NoError(err)
	_, err = Collect(snapshot.PrefixRaw(ctx, ""))
	require.NoError(err)

	count, err := testutil.GatherAndCount(reg, "multistore_operation_duration_seconds")
	require.NoError(err)
	require.Equal(2, count)

	count, err = testutil.GatherAndCount(reg, "multistore_streamed_items")
	require.NoError(err)
	require.Equal(1, count)

	// A second store cannot register the same series.
	_, err = New(memdb.New(), DefaultConfig(), logging.NoLog{}, reg)
	require.ErrorContains(err, "duplicate metrics collector registration attempted")
}
