// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/multistore/config"
	"github.com/ava-labs/multistore/database/leveldb"
	"github.com/ava-labs/multistore/trace"
	"github.com/ava-labs/multistore/utils/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	v, err := config.BuildViper(config.BuildFlagSet(), []string{
		"--db-type=" + leveldb.Name,
		"--db-dir=" + t.TempDir(),
		"--substores=dex/",
	})
	require.NoError(t, err)
	cfg, err := config.GetConfig(v)
	require.NoError(t, err)
	return cfg
}

func runCommand(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	p := &printer{
		out:      &out,
		readable: true,
	}
	err := run(context.Background(), cfg, logging.NoLog{}, p, args)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	require := require.New(t)
	cfg := testConfig(t)

	out, err := runCommand(t, cfg, "put", "dex/pool/1=A", "dex/pool/2=B", "other=C")
	require.NoError(err)
	require.Contains(out, "version: 0\n")

	out, err = runCommand(t, cfg, "get", "dex/pool/1")
	require.NoError(err)
	require.Equal("\"A\"\n", out)

	out, err = runCommand(t, cfg, "scan", "dex/")
	require.NoError(err)
	require.Equal("\"dex/pool/1\": \"A\"\n\"dex/pool/2\": \"B\"\n", out)

	out, err = runCommand(t, cfg, "keys")
	require.NoError(err)
	require.Equal("\"dex/pool/1\"\n\"dex/pool/2\"\n\"other\"\n", out)

	out, err = runCommand(t, cfg, "prove", "dex/pool/2")
	require.NoError(err)
	require.Contains(out, "value: \"B\"\n")
	require.Equal(2, strings.Count(out, "link "))

	out, err = runCommand(t, cfg, "delete", "dex/pool/1")
	require.NoError(err)
	require.Contains(out, "version: 1\n")

	out, err = runCommand(t, cfg, "get", "dex/pool/1")
	require.NoError(err)
	require.Equal("<absent>\n", out)

	_, err = runCommand(t, cfg, "root", "dex/")
	require.NoError(err)

	out, err = runCommand(t, cfg, "raw-get", "missing")
	require.NoError(err)
	require.Equal("<absent>\n", out)
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig(t)

	tests := [][]string{
		nil,
		{"unknown"},
		{"get"},
		{"get", "a", "b"},
		{"put", "novalue"},
	}
	for _, args := range tests {
		_, err := runCommand(t, cfg, args...)
		require.ErrorIs(t, err, errUsage)
	}
}

func TestPrinter(t *testing.T) {
	require := require.New(t)

	readable := &printer{readable: true}
	require.Equal(`"a\x00"`, readable.bytes([]byte("a\x00")))
	require.Equal("<absent>", readable.bytes(nil))

	raw := &printer{}
	require.Equal("6100", raw.bytes([]byte("a\x00")))
}

func TestInvalidTracer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tracing.Type = trace.ExporterType(255)

	_, err := runCommand(t, cfg, "root")
	require.ErrorContains(t, err, "couldn't initialize tracer")
}
