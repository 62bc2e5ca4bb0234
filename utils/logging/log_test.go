// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error {
	return nil
}

func TestLog(t *testing.T) {
	log := NewLogger("", NewWrappedCore(Info, Discard, Plain.ConsoleEncoder()))

	recovered := new(bool)
	panicFunc := func() {
		panic("DON'T PANIC!")
	}
	exitFunc := func() {
		*recovered = true
	}
	log.RecoverAndExit(panicFunc, exitFunc)

	require.True(t, *recovered)
}

func TestLogLevels(t *testing.T) {
	require := require.New(t)

	var testBuffer bytes.Buffer
	logger := NewLogger("", NewWrappedCore(Trace, Discard, Plain.ConsoleEncoder()))
	impl := logger.(*log)
	impl.internalLogger = impl.internalLogger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
		testBuffer.WriteString(entry.Message)
		return nil
	}))

	logger.Verbo("verbo")
	logger.Debug("debug")
	require.Empty(testBuffer.Bytes())

	logger.Trace("trace")
	logger.Error("error")
	require.Equal("traceerror", testBuffer.String())

	require.False(logger.Enabled(Debug))
	require.True(logger.Enabled(Trace))

	testBuffer.Reset()
	logger.SetLevel(Verbo)
	logger.Verbo("verbo")
	require.Equal("verbo", testBuffer.String())
	require.True(logger.Enabled(Verbo))
}

func TestJSONFormat(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("store", NewWrappedCore(Info, buf, JSON.FileEncoder()))
	log.With(zap.Uint64("version", 7)).Warn("committed")

	out := buf.String()
	require.Contains(out, `"level":"WARN"`)
	require.Contains(out, `"logger":"store"`)
	require.Contains(out, `"message":"committed"`)
	require.Contains(out, `"version":7`)
}

func TestFactoryWritesFiles(t *testing.T) {
	require := require.New(t)

	config := DefaultConfig()
	config.Directory = t.TempDir()
	config.DisableWriterDisplaying = true
	config.DisplayLevel = Off
	config.LogFormat = JSON

	factory := NewFactory(config)
	log, err := factory.Make("storage")
	require.NoError(err)

	_, err = factory.Make("storage")
	require.ErrorContains(err, "already exists")

	log.Info("opened")
	log.Debug("dropped")

	require.NoError(factory.SetLogLevel("storage", Debug))
	log.Debug("kept")
	require.Error(factory.SetDisplayLevel("missing", Info))
	require.Equal([]string{"storage"}, factory.GetLoggerNames())

	factory.Close()

	contents, err := os.ReadFile(filepath.Join(config.Directory, "storage.log"))
	require.NoError(err)
	require.Contains(string(contents), "opened")
	require.Contains(string(contents), "kept")
	require.NotContains(string(contents), "dropped")
}

func TestNoLog(t *testing.T) {
	var log Logger = NoLog{}
	log.Info("ignored")
	require.False(t, log.Enabled(Fatal))
	require.Equal(t, NoLog{}, log.With(zap.String("k", "v")))
}
