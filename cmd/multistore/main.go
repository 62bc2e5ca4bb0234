// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ava-labs/multistore/config"
	"github.com/ava-labs/multistore/database/factory"
	"github.com/ava-labs/multistore/storage"
	"github.com/ava-labs/multistore/trace"
	"github.com/ava-labs/multistore/utils/logging"
)

const tracerName = "github.com/ava-labs/multistore/storage"

const usage = `Usage: multistore [flags] <command> [args]

Commands:
  get <key>                 print the value of a verifiable key
  prove <key>               print the value of a key and its proof chain
  scan <prefix>             print every verifiable key with the prefix
  keys <prefix>             print every verifiable key name with the prefix
  raw-get <key>             print the value of a nonverifiable key
  raw-scan <prefix> [start] [end]
                            print every nonverifiable key with the prefix
  root [prefix]             print the composite root, or a sub-store's root
  put <key=value>...        commit verifiable values as a new version
  delete <key>...           commit the removal of verifiable keys

Flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	fs := config.BuildFlagSet()
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	v, err := config.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't configure flags: %s\n", err)
		os.Exit(1)
	}
	// Logs share stdout with the output of the commands.
	v.SetDefault(config.LogLevelKey, "warn")

	cfg, err := config.GetConfig(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "couldn't load config: %s\n", err)
		os.Exit(1)
	}

	logFactory := logging.NewFactory(cfg.Logging)
	log, err := logFactory.Make("multistore")
	if err != nil {
		logFactory.Close()
		fmt.Fprintf(os.Stderr, "couldn't initialize logger: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := 0
	log.RecoverAndPanic(func() {
		p := &printer{
			out:      os.Stdout,
			readable: term.IsTerminal(int(os.Stdout.Fd())),
		}
		err = run(ctx, cfg, log, p, fs.Args())
	})
	cancel()
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		fs.Usage()
		exitCode = 2
	case err != nil:
		log.Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s\n", err)
		exitCode = 1
	}
	logFactory.Close()
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg config.Config, log logging.Logger, p *printer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if len(args)-1 < cmd.minArgs || (cmd.maxArgs >= 0 && len(args)-1 > cmd.maxArgs) {
		return fmt.Errorf("%w: wrong number of arguments to %q", errUsage, args[0])
	}

	tracer, err := trace.New(cfg.Tracing, tracerName)
	if err != nil {
		return fmt.Errorf("couldn't initialize tracer: %w", err)
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()
	cfg.Storage.Tracer = tracer

	reg := prometheus.NewRegistry()
	db, err := factory.NewDatabase(cfg.Database, reg, cfg.Storage.MetricsNamespace+"_db", log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	s, err := storage.New(db, cfg.Storage, log, reg)
	if err != nil {
		return err
	}
	defer s.Close()

	return cmd.run(ctx, s, p, args[1:])
}
