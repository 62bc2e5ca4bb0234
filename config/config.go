// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/multistore/database/factory"
	"github.com/ava-labs/multistore/database/leveldb"
	"github.com/ava-labs/multistore/database/pebble"
	"github.com/ava-labs/multistore/storage"
	"github.com/ava-labs/multistore/trace"
	"github.com/ava-labs/multistore/utils/logging"
)

// AppName is the service name reported with exported traces.
const AppName = "multistore"

// Config is everything needed to open a store.
type Config struct {
	Database factory.DatabaseConfig `json:"database"`
	Storage  storage.Config         `json:"storage"`
	Logging  logging.Config         `json:"logging"`
	Tracing  trace.Config           `json:"tracing"`
}

// BuildViper parses [args] into [fs] and returns a viper instance reading, in
// order of precedence, the flags, the environment and the config file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if v.IsSet(ConfigFileKey) {
		v.SetConfigFile(os.ExpandEnv(v.GetString(ConfigFileKey)))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("couldn't read config file: %w", err)
		}
	}
	return v, nil
}

// GetConfig reads the complete configuration from [v].
func GetConfig(v *viper.Viper) (Config, error) {
	var (
		config Config
		err    error
	)
	config.Database, err = GetDatabaseConfig(v)
	if err != nil {
		return Config{}, err
	}
	config.Storage, err = GetStorageConfig(v)
	if err != nil {
		return Config{}, err
	}
	config.Logging, err = GetLoggingConfig(v)
	if err != nil {
		return Config{}, err
	}
	config.Tracing, err = GetTracingConfig(v)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

func GetDatabaseConfig(v *viper.Viper) (factory.DatabaseConfig, error) {
	config := factory.DatabaseConfig{
		Name:     v.GetString(DBTypeKey),
		Path:     os.ExpandEnv(v.GetString(DBPathKey)),
		InMemory: v.GetBool(DBInMemoryKey),
		LevelDB:  leveldb.DefaultConfig,
		Pebble:   pebble.DefaultConfig,
	}
	if config.Path == "" && !config.InMemory {
		return factory.DatabaseConfig{}, fmt.Errorf("%q must be set", DBPathKey)
	}
	return config, nil
}

func GetStorageConfig(v *viper.Viper) (storage.Config, error) {
	config := storage.DefaultConfig()
	config.Substores = getStringSlice(v, SubstoresKey)
	config.SnapshotCacheSize = v.GetInt(SnapshotCacheSizeKey)
	config.StreamBufferSize = v.GetInt(StreamBufferSizeKey)
	config.MaxConcurrentReads = v.GetInt64(MaxConcurrentReadsKey)
	config.NodeCacheSize = v.GetInt(NodeCacheSizeKey)
	config.MetricsNamespace = v.GetString(MetricsNamespaceKey)
	if err := config.Verify(); err != nil {
		return storage.Config{}, err
	}
	return config, nil
}

func GetLoggingConfig(v *viper.Viper) (logging.Config, error) {
	config := logging.DefaultConfig()
	config.Directory = os.ExpandEnv(v.GetString(LogsDirKey))

	var err error
	config.LogLevel, err = logging.ToLevel(v.GetString(LogLevelKey))
	if err != nil {
		return logging.Config{}, err
	}
	config.DisplayLevel = config.LogLevel
	if displayLevel := v.GetString(LogDisplayLevelKey); displayLevel != "" {
		config.DisplayLevel, err = logging.ToLevel(displayLevel)
		if err != nil {
			return logging.Config{}, err
		}
	}
	config.LogFormat, err = logging.ToFormat(v.GetString(LogFormatKey))
	if err != nil {
		return logging.Config{}, err
	}
	return config, nil
}

func GetTracingConfig(v *viper.Viper) (trace.Config, error) {
	exporterType, err := trace.ExporterTypeFromString(v.GetString(TracingExporterKey))
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		ExporterConfig: trace.ExporterConfig{
			Type:     exporterType,
			Endpoint: v.GetString(TracingEndpointKey),
			Headers:  v.GetStringMapString(TracingHeadersKey),
			Insecure: v.GetBool(TracingInsecureKey),
		},
		TraceSampleRate: v.GetFloat64(TracingSampleRateKey),
		AppName:         AppName,
	}, nil
}

// getStringSlice accepts both a list and a comma separated string, which is
// how lists are passed through the environment.
func getStringSlice(v *viper.Viper, key string) []string {
	var values []string
	for _, value := range v.GetStringSlice(key) {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
