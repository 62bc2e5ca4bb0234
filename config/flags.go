// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ava-labs/multistore/database/pebble"
	"github.com/ava-labs/multistore/storage"
	"github.com/ava-labs/multistore/trace"
)

var (
	homeDir        = os.ExpandEnv("$HOME")
	defaultDataDir = filepath.Join(homeDir, ".multistore")
	defaultDBDir   = filepath.Join(defaultDataDir, "db")
)

// BuildFlagSet returns the complete set of flags understood by the multistore
// tools.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("multistore", pflag.ContinueOnError)
	addFlags(fs)
	return fs
}

func addFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "Specifies a config file")

	// Database
	fs.String(DBTypeKey, pebble.Name, "Database type to use. Should be one of {leveldb, memdb, pebble}")
	fs.String(DBPathKey, defaultDBDir, "Path to database directory")
	fs.Bool(DBInMemoryKey, false, "If true, leveldb and pebble keep their files in memory")

	// Storage
	fs.StringSlice(SubstoresKey, nil, "Prefixes of the sub-stores nested in the main store")
	fs.Int(SnapshotCacheSizeKey, storage.DefaultSnapshotCacheSize, "Number of recent versions kept readable")
	fs.Int(StreamBufferSizeKey, storage.DefaultStreamBufferSize, "Number of items a scan may produce ahead of its consumer")
	fs.Int64(MaxConcurrentReadsKey, storage.DefaultMaxConcurrentReads, "Maximum number of engine reads and scans in flight")
	fs.Int(NodeCacheSizeKey, storage.DefaultNodeCacheSize, "Number of decoded tree nodes to cache. 0 disables the cache")

	// Logging
	fs.String(LogLevelKey, "info", "The log level. Should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogDisplayLevelKey, "", "The log display level. If left blank, will inherit the value of log-level")
	fs.String(LogFormatKey, "plain", "The log format. Should be one of {plain, json}")
	fs.String(LogsDirKey, "", "Logging directory. If left blank, logs are only displayed")

	// Metrics
	fs.String(MetricsNamespaceKey, storage.DefaultMetricsNamespace, "Namespace of every exported metric")

	// Tracing
	fs.String(TracingExporterKey, trace.NoOp.String(), fmt.Sprintf("Type of exporter to use for tracing. Options are [%s, %s, %s] or empty to disable", trace.GRPC, trace.HTTP, trace.Global))
	fs.String(TracingEndpointKey, "localhost:4317", "The endpoint to send trace data to")
	fs.Bool(TracingInsecureKey, true, "If true, don't use TLS when sending trace data")
	fs.Float64(TracingSampleRateKey, 0.1, "The fraction of traces to sample. If >= 1, always sample. If <= 0, never sample")
	fs.StringToString(TracingHeadersKey, map[string]string{}, "The headers to provide the trace indexer")
}
