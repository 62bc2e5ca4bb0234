// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

// RotatingWriterConfig describes the files a named logger writes to.
type RotatingWriterConfig struct {
	// MaxSize is the maximum size of a log file in megabytes before it is
	// rotated.
	MaxSize  int    `json:"maxSize"`
	MaxFiles int    `json:"maxFiles"`
	MaxAge   int    `json:"maxAge"` // days
	Compress bool   `json:"compress"`
	// Directory is where log files are written. An empty directory disables
	// file output.
	Directory string `json:"directory"`
}

// Config defines the configuration of a logger factory.
type Config struct {
	RotatingWriterConfig
	DisableWriterDisplaying bool   `json:"disableWriterDisplaying"`
	LogLevel                Level  `json:"logLevel"`
	DisplayLevel            Level  `json:"displayLevel"`
	LogFormat               Format `json:"logFormat"`
	MsgPrefix               string `json:"-"`
	LoggerName              string `json:"-"`
}

// DefaultConfig logs at Info to the terminal and writes nothing to disk.
func DefaultConfig() Config {
	return Config{
		RotatingWriterConfig: RotatingWriterConfig{
			MaxSize:  8,
			MaxFiles: 7,
			MaxAge:   0,
		},
		LogLevel:     Info,
		DisplayLevel: Info,
		LogFormat:    Plain,
	}
}
