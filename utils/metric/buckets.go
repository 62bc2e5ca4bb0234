// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

var (
	// Useful latency buckets, in seconds

	// EngineCallBuckets covers single engine calls, from a cached read to a
	// slow disk seek.
	EngineCallBuckets = []float64{
		.000001, // 1 us
		.000005,
		.00002,
		.0001, // 100 us
		.0005,
		.002,
		.01, // 10 ms
		.05,
		.25,
		1, // 1 second
		// anything larger than a second will be bucketed together
	}
	// OperationBuckets covers snapshot operations, which may scan many
	// entries.
	OperationBuckets = []float64{
		.00001, // 10 us
		.0001,
		.001, // 1 ms
		.005,
		.01,
		.05,
		.1, // 100 ms
		.5,
		1, // 1 second
		5,
		30,
		// anything larger than 30 seconds will be bucketed together
	}
)
