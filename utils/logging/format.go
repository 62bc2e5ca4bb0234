// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Format modes available
const (
	Plain Format = iota
	JSON
)

var (
	defaultEncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	jsonEncoderConfig zapcore.EncoderConfig
)

func init() {
	jsonEncoderConfig = defaultEncoderConfig
	jsonEncoderConfig.EncodeLevel = jsonLevelEncoder
	jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
}

// Format determines how entries are encoded.
type Format int

// ToFormat parses a format name.
func ToFormat(f string) (Format, error) {
	switch strings.ToUpper(f) {
	case "PLAIN", "":
		return Plain, nil
	case "JSON":
		return JSON, nil
	default:
		return Plain, fmt.Errorf("unknown log format: %q", f)
	}
}

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	default:
		return "plain"
	}
}

// ConsoleEncoder returns an encoder for entries displayed to a terminal.
func (f Format) ConsoleEncoder() zapcore.Encoder {
	if f == JSON {
		return zapcore.NewJSONEncoder(jsonEncoderConfig)
	}
	return zapcore.NewConsoleEncoder(defaultEncoderConfig)
}

// FileEncoder returns an encoder for entries written to log files.
func (f Format) FileEncoder() zapcore.Encoder {
	if f == JSON {
		return zapcore.NewJSONEncoder(jsonEncoderConfig)
	}
	return zapcore.NewConsoleEncoder(defaultEncoderConfig)
}

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(Level(l).AlignedString())
}

func jsonLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(Level(l).String())
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("01-02|15:04:05.000") + "]")
}
