// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/multistore/utils/wrappers"
)

var (
	_ Metrics = (*mockMetrics)(nil)
	_ Metrics = (*metrics)(nil)
)

type Metrics interface {
	DatabaseNodeRead()
	DatabaseNodeWrite()
	HashCalculated()
	NodeCacheHit()
	NodeCacheMiss()
}

type mockMetrics struct {
	nodeReadCount  int64
	nodeWriteCount int64
	hashCount      int64
	nodeCacheHit   int64
	nodeCacheMiss  int64
}

func (m *mockMetrics) DatabaseNodeRead() {
	atomic.AddInt64(&m.nodeReadCount, 1)
}

func (m *mockMetrics) DatabaseNodeWrite() {
	atomic.AddInt64(&m.nodeWriteCount, 1)
}

func (m *mockMetrics) HashCalculated() {
	atomic.AddInt64(&m.hashCount, 1)
}

func (m *mockMetrics) NodeCacheHit() {
	atomic.AddInt64(&m.nodeCacheHit, 1)
}

func (m *mockMetrics) NodeCacheMiss() {
	atomic.AddInt64(&m.nodeCacheMiss, 1)
}

type metrics struct {
	ioNodeRead    prometheus.Counter
	ioNodeWrite   prometheus.Counter
	hashCount     prometheus.Counter
	nodeCacheHit  prometheus.Counter
	nodeCacheMiss prometheus.Counter
}

// NewMetrics returns prometheus backed tree metrics. If [reg] is nil, the
// returned metrics are discarded.
func NewMetrics(namespace string, reg prometheus.Registerer) (Metrics, error) {
	if reg == nil {
		return &noopMetrics{}, nil
	}
	m := metrics{
		ioNodeRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_node_read",
			Help:      "cumulative amount of tree nodes read from the database",
		}),
		ioNodeWrite: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_node_write",
			Help:      "cumulative amount of tree nodes written to the database",
		}),
		hashCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashes_calculated",
			Help:      "cumulative number of node hashes done",
		}),
		nodeCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_cache_hit",
			Help:      "cumulative amount of hits on the node cache",
		}),
		nodeCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_cache_miss",
			Help:      "cumulative amount of misses on the node cache",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.ioNodeRead),
		reg.Register(m.ioNodeWrite),
		reg.Register(m.hashCount),
		reg.Register(m.nodeCacheHit),
		reg.Register(m.nodeCacheMiss),
	)
	return &m, errs.Err
}

func (m *metrics) DatabaseNodeRead() {
	m.ioNodeRead.Inc()
}

func (m *metrics) DatabaseNodeWrite() {
	m.ioNodeWrite.Inc()
}

func (m *metrics) HashCalculated() {
	m.hashCount.Inc()
}

func (m *metrics) NodeCacheHit() {
	m.nodeCacheHit.Inc()
}

func (m *metrics) NodeCacheMiss() {
	m.nodeCacheMiss.Inc()
}
