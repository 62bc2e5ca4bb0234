// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meterdb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/utils/metric"
	"github.com/ava-labs/multistore/utils/wrappers"
)

const methodLabel = "method"

var (
	_ database.Database = (*Database)(nil)
	_ database.Snapshot = (*snapshot)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)

	methodLabels = []string{methodLabel}

	hasLabel                 = prometheus.Labels{methodLabel: "has"}
	getLabel                 = prometheus.Labels{methodLabel: "get"}
	putLabel                 = prometheus.Labels{methodLabel: "put"}
	deleteLabel              = prometheus.Labels{methodLabel: "delete"}
	newSnapshotLabel         = prometheus.Labels{methodLabel: "new_snapshot"}
	closeLabel               = prometheus.Labels{methodLabel: "close"}
	batchWriteLabel          = prometheus.Labels{methodLabel: "batch_write"}
	snapshotHasLabel         = prometheus.Labels{methodLabel: "snapshot_has"}
	snapshotGetLabel         = prometheus.Labels{methodLabel: "snapshot_get"}
	snapshotNewIteratorLabel = prometheus.Labels{methodLabel: "snapshot_new_iterator"}
	newIteratorLabel         = prometheus.Labels{methodLabel: "new_iterator"}
	iteratorNextLabel        = prometheus.Labels{methodLabel: "iterator_next"}
)

// Database tracks the number and duration of the operations performed on the
// wrapped database, including reads served by its snapshots.
type Database struct {
	db database.Database

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.CounterVec
}

// New returns a new database with added metrics
func New(
	namespace string,
	reg prometheus.Registerer,
	db database.Database,
) (*Database, error) {
	meterDB := &Database{
		db: db,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls",
				Help:      "number of calls to the database",
			},
			methodLabels,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "latency of calls to the database",
				Buckets:   metric.EngineCallBuckets,
			},
			methodLabels,
		),
		size: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "size",
				Help:      "cumulative size of keys and values read or written",
			},
			methodLabels,
		),
	}

	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(meterDB.calls),
		reg.Register(meterDB.duration),
		reg.Register(meterDB.size),
	)
	return meterDB, errs.Err
}

func (db *Database) observe(labels prometheus.Labels, start time.Time, size int) {
	db.calls.With(labels).Inc()
	db.duration.With(labels).Observe(time.Since(start).Seconds())
	if size > 0 {
		db.size.With(labels).Add(float64(size))
	}
}

func (db *Database) Has(key []byte) (bool, error) {
	start := time.Now()
	has, err := db.db.Has(key)
	db.observe(hasLabel, start, len(key))
	return has, err
}

func (db *Database) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, err := db.db.Get(key)
	db.observe(getLabel, start, len(key)+len(value))
	return value, err
}

func (db *Database) Put(key, value []byte) error {
	start := time.Now()
	err := db.db.Put(key, value)
	db.observe(putLabel, start, len(key)+len(value))
	return err
}

func (db *Database) Delete(key []byte) error {
	start := time.Now()
	err := db.db.Delete(key)
	db.observe(deleteLabel, start, len(key))
	return err
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		batch: db.db.NewBatch(),
		db:    db,
	}
}

func (db *Database) NewIterator() database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(start, nil)
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (db *Database) NewIteratorWithStartAndPrefix(
	start,
	prefix []byte,
) database.Iterator {
	startTime := time.Now()
	it := db.db.NewIteratorWithStartAndPrefix(start, prefix)
	db.observe(newIteratorLabel, startTime, 0)
	return &iterator{
		iterator: it,
		db:       db,
	}
}

func (db *Database) NewSnapshot() (database.Snapshot, error) {
	start := time.Now()
	snap, err := db.db.NewSnapshot()
	db.observe(newSnapshotLabel, start, 0)
	if err != nil {
		return nil, err
	}
	return &snapshot{
		snapshot: snap,
		db:       db,
	}, nil
}

func (db *Database) Close() error {
	start := time.Now()
	err := db.db.Close()
	db.observe(closeLabel, start, 0)
	return err
}

type snapshot struct {
	snapshot database.Snapshot
	db       *Database
}

func (s *snapshot) Has(key []byte) (bool, error) {
	start := time.Now()
	has, err := s.snapshot.Has(key)
	s.db.observe(snapshotHasLabel, start, len(key))
	return has, err
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, err := s.snapshot.Get(key)
	s.db.observe(snapshotGetLabel, start, len(key)+len(value))
	return value, err
}

func (s *snapshot) NewIterator() database.Iterator {
	return s.NewIteratorWithStartAndPrefix(nil, nil)
}

func (s *snapshot) NewIteratorWithStart(start []byte) database.Iterator {
	return s.NewIteratorWithStartAndPrefix(start, nil)
}

func (s *snapshot) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return s.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (s *snapshot) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	startTime := time.Now()
	it := s.snapshot.NewIteratorWithStartAndPrefix(start, prefix)
	s.db.observe(snapshotNewIteratorLabel, startTime, 0)
	return &iterator{
		iterator: it,
		db:       s.db,
	}
}

func (s *snapshot) Release() {
	s.snapshot.Release()
}

type batch struct {
	batch database.Batch
	db    *Database
}

func (b *batch) Put(key, value []byte) error {
	return b.batch.Put(key, value)
}

func (b *batch) Delete(key []byte) error {
	return b.batch.Delete(key)
}

func (b *batch) Size() int {
	return b.batch.Size()
}

func (b *batch) Write() error {
	start := time.Now()
	err := b.batch.Write()
	b.db.observe(batchWriteLabel, start, b.batch.Size())
	return err
}

func (b *batch) Reset() {
	b.batch.Reset()
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	return b.batch.Replay(w)
}

type iterator struct {
	iterator database.Iterator
	db       *Database
}

func (it *iterator) Next() bool {
	start := time.Now()
	next := it.iterator.Next()
	it.db.observe(iteratorNextLabel, start, len(it.iterator.Key())+len(it.iterator.Value()))
	return next
}

func (it *iterator) Error() error {
	return it.iterator.Error()
}

func (it *iterator) Key() []byte {
	return it.iterator.Key()
}

func (it *iterator) Value() []byte {
	return it.iterator.Value()
}

func (it *iterator) Release() {
	it.iterator.Release()
}
