// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/multistore/utils/metric"
	"github.com/ava-labs/multistore/utils/wrappers"
)

const (
	opLabel = "op"

	resultLabel   = "result"
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	_ Metrics = (*metrics)(nil)
	_ Metrics = (*noopMetrics)(nil)
)

// Metrics receives the activity of the workers that serve snapshot reads.
type Metrics interface {
	// OperationCompleted is called once a point read finishes or a stream's
	// producer stops.
	OperationCompleted(op string, duration time.Duration, err error)
	WorkerStarted(op string)
	WorkerFinished(op string)
	ItemStreamed(op string)
}

type metrics struct {
	duration *prometheus.HistogramVec
	workers  *prometheus.GaugeVec
	items    *prometheus.CounterVec
}

// NewMetrics returns prometheus backed metrics. If [reg] is nil, the returned
// metrics are discarded.
func NewMetrics(namespace string, reg prometheus.Registerer) (Metrics, error) {
	if reg == nil {
		return &noopMetrics{}, nil
	}
	m := &metrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "time spent serving snapshot operations",
				Buckets:   metric.OperationBuckets,
			},
			[]string{opLabel, resultLabel},
		),
		workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workers",
				Help:      "number of workers currently serving snapshot operations",
			},
			[]string{opLabel},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streamed_items",
				Help:      "cumulative number of items delivered to stream consumers",
			},
			[]string{opLabel},
		),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.duration),
		reg.Register(m.workers),
		reg.Register(m.items),
	)
	return m, errs.Err
}

func (m *metrics) OperationCompleted(op string, duration time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.duration.With(prometheus.Labels{
		opLabel:     op,
		resultLabel: result,
	}).Observe(duration.Seconds())
}

func (m *metrics) WorkerStarted(op string) {
	m.workers.WithLabelValues(op).Inc()
}

func (m *metrics) WorkerFinished(op string) {
	m.workers.WithLabelValues(op).Dec()
}

func (m *metrics) ItemStreamed(op string) {
	m.items.WithLabelValues(op).Inc()
}

type noopMetrics struct{}

func (*noopMetrics) OperationCompleted(string, time.Duration, error) {}

func (*noopMetrics) WorkerStarted(string) {}

func (*noopMetrics) WorkerFinished(string) {}

func (*noopMetrics) ItemStreamed(string) {}
