// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

var _ Metrics = (*noopMetrics)(nil)

type noopMetrics struct{}

func (*noopMetrics) DatabaseNodeRead() {}

func (*noopMetrics) DatabaseNodeWrite() {}

func (*noopMetrics) HashCalculated() {}

func (*noopMetrics) NodeCacheHit() {}

func (*noopMetrics) NodeCacheMiss() {}
