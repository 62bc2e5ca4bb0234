// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/prefixdb"
	"github.com/ava-labs/multistore/utils/logging"
	"github.com/ava-labs/multistore/x/smt"
)

const tracerName = "github.com/ava-labs/multistore/storage"

// Storage serves snapshots of recent versions of a multistore and commits new
// versions to it.
type Storage struct {
	db          database.Database
	config      *MultistoreConfig
	log         logging.Logger
	tracer      trace.Tracer
	nodeCache   *smt.Cache
	treeMetrics smt.Metrics
	bridge      *bridge

	// commitLock serializes commits
	commitLock sync.Mutex

	// lock guards [latest] and [closed]
	lock   sync.RWMutex
	latest *Snapshot
	closed bool
	// snapshots holds the most recent versions. Versions are only ever added
	// in increasing order, so the oldest version is evicted first.
	snapshots *lru.Cache[uint64, *Snapshot]
}

// New returns a store over [db] serving the latest version committed to it.
// The caller keeps ownership of [db] and must close it after the store.
func New(
	db database.Database,
	cfg Config,
	log logging.Logger,
	reg prometheus.Registerer,
) (*Storage, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	config, err := NewMultistoreConfig(cfg.Substores)
	if err != nil {
		return nil, err
	}
	nodeCache, err := smt.NewCache(cfg.NodeCacheSize)
	if err != nil {
		return nil, err
	}
	treeMetrics, err := smt.NewMetrics(cfg.MetricsNamespace, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register tree metrics: %w", err)
	}
	metrics, err := NewMetrics(cfg.MetricsNamespace, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register storage metrics: %w", err)
	}
	return newStorage(db, cfg, config, nodeCache, treeMetrics, metrics, log)
}

func newStorage(
	db database.Database,
	cfg Config,
	config *MultistoreConfig,
	nodeCache *smt.Cache,
	treeMetrics smt.Metrics,
	metrics Metrics,
	log logging.Logger,
) (*Storage, error) {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer(tracerName)
	}

	s := &Storage{
		db:          db,
		config:      config,
		log:         log,
		tracer:      tracer,
		nodeCache:   nodeCache,
		treeMetrics: treeMetrics,
		bridge:      newBridge(log, metrics, tracer, cfg.MaxConcurrentReads, cfg.StreamBufferSize),
	}

	var err error
	s.snapshots, err = lru.NewWithEvict(cfg.SnapshotCacheSize, func(version uint64, _ *Snapshot) {
		s.log.Debug("evicted snapshot",
			zap.Uint64("version", version),
		)
	})
	if err != nil {
		return nil, err
	}

	version, err := database.WithDefault(
		database.GetUInt64,
		prefixdb.NewReader(metaPrefix, db),
		latestKey,
		PreGenesisVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest version: %w", err)
	}
	snapshot, err := s.pinSnapshot(version)
	if err != nil {
		return nil, err
	}
	s.latest = snapshot
	s.snapshots.Add(version, snapshot)

	log.Info("opened storage",
		zap.Uint64("version", version),
		zap.Int("substores", len(config.substores)),
	)
	return s, nil
}

// pinSnapshot takes an engine snapshot holding [version] as its most recent
// version.
func (s *Storage) pinSnapshot(version uint64) (*Snapshot, error) {
	engineSnapshot, err := s.db.NewSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}
	db := pin(engineSnapshot)

	roots, err := loadRoots(db, s.config, version)
	if err != nil {
		return nil, err
	}
	return newSnapshot(version, s.config, db, roots, s.nodeCache, s.treeMetrics, s.bridge, s.log), nil
}

func (s *Storage) LatestSnapshot() *Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.latest
}

// Snapshot returns the snapshot of [version] if it is still cached.
func (s *Storage) Snapshot(version uint64) (*Snapshot, bool) {
	return s.snapshots.Peek(version)
}

// LatestVersion returns the most recently committed version, or
// PreGenesisVersion if nothing was committed yet.
func (s *Storage) LatestVersion() uint64 {
	return s.LatestSnapshot().version
}

// Config returns the routing configuration of the store.
func (s *Storage) Config() *MultistoreConfig {
	return s.config
}

// Commit writes [changes] as the version following the latest version and
// returns the new version with its composite root.
func (s *Storage) Commit(ctx context.Context, changes *Changeset) (uint64, smt.Hash, error) {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	_, span := s.tracer.Start(ctx, "Storage.Commit", trace.WithAttributes(
		attribute.Int("changes", changes.Len()),
	))
	version, root, err := s.commit(ctx, changes)
	endSpan(span, err)
	return version, root, err
}

// substoreChanges are the changes routed to one sub-store, keyed relative to
// it.
type substoreChanges struct {
	tree []smt.Change
	raw  []database.BatchOp
}

func (s *Storage) commit(ctx context.Context, changes *Changeset) (uint64, smt.Hash, error) {
	if err := ctx.Err(); err != nil {
		return 0, smt.EmptyRoot, err
	}

	s.lock.RLock()
	closed := s.closed
	previous := s.latest
	s.lock.RUnlock()
	if closed {
		return 0, smt.EmptyRoot, ErrClosed
	}

	routed, err := s.route(changes)
	if err != nil {
		return 0, smt.EmptyRoot, err
	}

	version := previous.version + 1
	if previous.version == PreGenesisVersion {
		version = 0
	}

	batch := s.db.NewBatch()
	roots := make(map[*SubstoreConfig]smt.Hash, len(s.config.substores)+1)
	for _, substore := range s.config.Substores() {
		root, err := s.commitSubstore(batch, version, substore, previous, routed[substore], roots)
		if err != nil {
			return 0, smt.EmptyRoot, fmt.Errorf("failed to commit %s: %w", substore, err)
		}
		roots[substore] = root
	}
	if err := database.PutUInt64(prefixdb.NewWriter(metaPrefix, batch), latestKey, version); err != nil {
		return 0, smt.EmptyRoot, err
	}
	if err := batch.Write(); err != nil {
		return 0, smt.EmptyRoot, fmt.Errorf("failed to write version %d: %w", version, err)
	}

	snapshot, err := s.pinSnapshot(version)
	if err != nil {
		return 0, smt.EmptyRoot, err
	}

	s.lock.Lock()
	s.latest = snapshot
	s.lock.Unlock()
	s.snapshots.Add(version, snapshot)

	root := roots[s.config.main]
	s.log.Info("committed version",
		zap.Uint64("version", version),
		zap.Stringer("root", root),
		zap.Int("changes", changes.Len()),
	)
	return version, root, nil
}

// route splits [changes] by sub-store and validates them.
func (s *Storage) route(changes *Changeset) (map[*SubstoreConfig]*substoreChanges, error) {
	routed := make(map[*SubstoreConfig]*substoreChanges)
	get := func(substore *SubstoreConfig) *substoreChanges {
		c, ok := routed[substore]
		if !ok {
			c = &substoreChanges{}
			routed[substore] = c
		}
		return c
	}

	for _, key := range sortedKeys(changes.verifiable) {
		c := changes.verifiable[key]
		substore, residual := s.config.Route(key)
		if len(residual) == 0 {
			return nil, fmt.Errorf("%w: %q routes to the root of %s", ErrEmptyKey, key, substore)
		}
		if !c.delete && len(c.value) == 0 {
			return nil, fmt.Errorf("%w: for key %q", ErrEmptyValue, key)
		}

		sc := get(substore)
		sc.tree = append(sc.tree, smt.Change{
			Key:    []byte(residual),
			Value:  c.value,
			Delete: c.delete,
		})
	}
	for _, key := range sortedKeys(changes.nonverifiable) {
		c := changes.nonverifiable[key]
		if !c.delete && len(c.value) == 0 {
			return nil, fmt.Errorf("%w: for nonverifiable key %x", ErrEmptyValue, key)
		}
		substore, residual := s.config.RouteBytes([]byte(key))

		sc := get(substore)
		sc.raw = append(sc.raw, database.BatchOp{
			Key:    residual,
			Value:  c.value,
			Delete: c.delete,
		})
	}
	return routed, nil
}

// commitSubstore writes the changes of [substore] and the new roots of its
// children into [batch] and returns the new root of [substore]. [roots] must
// hold the new roots of every child.
func (s *Storage) commitSubstore(
	batch database.Batch,
	version uint64,
	substore *SubstoreConfig,
	previous *Snapshot,
	changes *substoreChanges,
	roots map[*SubstoreConfig]smt.Hash,
) (smt.Hash, error) {
	if changes == nil {
		changes = &substoreChanges{}
	}

	treeChanges := changes.tree
	for _, child := range substore.children {
		childRoot := roots[child]
		if childRoot == previous.substores[child].root() {
			continue
		}
		change := smt.Change{
			Key: []byte(child.rootKey),
		}
		if childRoot.IsEmpty() {
			change.Delete = true
		} else {
			change.Value = childRoot[:]
		}
		treeChanges = append(treeChanges, change)
	}

	nodes := smt.NewNodes(prefixdb.NewReader(substore.tree, s.db), s.nodeCache, s.treeMetrics)
	root, err := smt.Apply(
		nodes,
		previous.substores[substore].root(),
		treeChanges,
		prefixdb.NewWriter(substore.tree, batch),
	)
	if err != nil {
		return smt.EmptyRoot, err
	}

	keys := prefixdb.NewWriter(substore.keys, batch)
	for _, change := range changes.tree {
		if change.Delete {
			err = keys.Delete(change.Key)
		} else {
			keyHash := smt.HashKey(change.Key)
			err = keys.Put(change.Key, keyHash[:])
		}
		if err != nil {
			return smt.EmptyRoot, err
		}
	}

	raw := prefixdb.NewWriter(substore.raw, batch)
	for _, op := range changes.raw {
		if op.Delete {
			err = raw.Delete(op.Key)
		} else {
			err = raw.Put(op.Key, op.Value)
		}
		if err != nil {
			return smt.EmptyRoot, err
		}
	}

	if err := prefixdb.NewWriter(substore.roots, batch).Put(database.PackUInt64(version), root[:]); err != nil {
		return smt.EmptyRoot, err
	}
	return root, nil
}

// Close stops serving reads. Snapshots remain valid objects but every later
// read fails with ErrClosed.
func (s *Storage) Close() error {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.bridge.close()
	s.snapshots.Purge()
	s.log.Info("closed storage")
	return nil
}

var errNotCached = errors.New("version is not cached")

// SnapshotOrErr returns the snapshot of [version], or an error if it is no
// longer cached.
func (s *Storage) SnapshotOrErr(version uint64) (*Snapshot, error) {
	snapshot, ok := s.Snapshot(version)
	if !ok {
		return nil, fmt.Errorf("%w: %d", errNotCached, version)
	}
	return snapshot, nil
}
