// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSnapshotCacheSize  = 10
	DefaultStreamBufferSize   = 10
	DefaultMaxConcurrentReads = 64
	DefaultNodeCacheSize      = 64 * 1024
	DefaultMetricsNamespace   = "multistore"
)

var (
	errInvalidSnapshotCacheSize  = errors.New("snapshot cache size must be positive")
	errInvalidStreamBufferSize   = errors.New("stream buffer size must be positive")
	errInvalidMaxConcurrentReads = errors.New("max concurrent reads must be positive")
)

type Config struct {
	// Substores are the prefixes of the sub-stores nested in the main store.
	Substores []string `json:"substores"`
	// SnapshotCacheSize is the number of recent versions kept readable.
	SnapshotCacheSize int `json:"snapshotCacheSize"`
	// StreamBufferSize is the number of items a stream producer may run
	// ahead of its consumer.
	StreamBufferSize int `json:"streamBufferSize"`
	// MaxConcurrentReads bounds the number of engine reads and scans in
	// flight.
	MaxConcurrentReads int64 `json:"maxConcurrentReads"`
	// NodeCacheSize is the number of decoded tree nodes to cache. Zero
	// disables the cache.
	NodeCacheSize    int    `json:"nodeCacheSize"`
	MetricsNamespace string `json:"metricsNamespace"`

	// Tracer defaults to a no-op tracer.
	Tracer trace.Tracer `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		SnapshotCacheSize:  DefaultSnapshotCacheSize,
		StreamBufferSize:   DefaultStreamBufferSize,
		MaxConcurrentReads: DefaultMaxConcurrentReads,
		NodeCacheSize:      DefaultNodeCacheSize,
		MetricsNamespace:   DefaultMetricsNamespace,
	}
}

func (c *Config) Verify() error {
	switch {
	case c.SnapshotCacheSize <= 0:
		return fmt.Errorf("%w: %d", errInvalidSnapshotCacheSize, c.SnapshotCacheSize)
	case c.StreamBufferSize <= 0:
		return fmt.Errorf("%w: %d", errInvalidStreamBufferSize, c.StreamBufferSize)
	case c.MaxConcurrentReads <= 0:
		return fmt.Errorf("%w: %d", errInvalidMaxConcurrentReads, c.MaxConcurrentReads)
	default:
		return nil
	}
}
