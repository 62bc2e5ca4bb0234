// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

// EnvPrefix is prepended to the upper-cased, underscore-separated name of
// every key to form its environment variable, e.g. MULTISTORE_DB_DIR.
const EnvPrefix = "multistore"

const (
	ConfigFileKey         = "config-file"
	DBTypeKey             = "db-type"
	DBPathKey             = "db-dir"
	DBInMemoryKey         = "db-in-memory"
	SubstoresKey          = "substores"
	SnapshotCacheSizeKey  = "snapshot-cache-size"
	StreamBufferSizeKey   = "stream-buffer-size"
	MaxConcurrentReadsKey = "max-concurrent-reads"
	NodeCacheSizeKey      = "node-cache-size"
	LogLevelKey           = "log-level"
	LogDisplayLevelKey    = "log-display-level"
	LogFormatKey          = "log-format"
	LogsDirKey            = "log-dir"
	MetricsNamespaceKey   = "metrics-namespace"
	TracingExporterKey    = "tracing-exporter-type"
	TracingEndpointKey    = "tracing-endpoint"
	TracingInsecureKey    = "tracing-insecure"
	TracingSampleRateKey  = "tracing-sample-rate"
	TracingHeadersKey     = "tracing-headers"
)
