// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/multistore/database"
	"github.com/ava-labs/multistore/database/corruptabledb"
	"github.com/ava-labs/multistore/database/leveldb"
	"github.com/ava-labs/multistore/database/memdb"
	"github.com/ava-labs/multistore/database/meterdb"
	"github.com/ava-labs/multistore/database/pebble"
	"github.com/ava-labs/multistore/utils/logging"
)

type DatabaseConfig struct {
	// Name of the database type to use
	Name string `json:"name"`

	// Path to database. Ignored by memdb and when [InMemory] is set.
	Path string `json:"path"`

	// If true, leveldb and pebble keep their files in memory.
	InMemory bool `json:"inMemory"`

	LevelDB leveldb.Config `json:"leveldb"`
	Pebble  pebble.Config  `json:"pebble"`
}

// DefaultDatabaseConfig opens a persistent pebble database at [path].
func DefaultDatabaseConfig(path string) DatabaseConfig {
	return DatabaseConfig{
		Name:    pebble.Name,
		Path:    path,
		LevelDB: leveldb.DefaultConfig,
		Pebble:  pebble.DefaultConfig,
	}
}

// NewDatabase creates a new database instance based on the provided
// configuration. It supports LevelDB, MemDB, and Pebble as database types.
// The database is wrapped so that an unexpected I/O error stops later writes,
// and so that every call is metered under [namespace].
func NewDatabase(
	dbConfig DatabaseConfig,
	reg prometheus.Registerer,
	namespace string,
	log logging.Logger,
) (database.Database, error) {
	var (
		db  database.Database
		err error
	)
	switch dbConfig.Name {
	case leveldb.Name:
		if dbConfig.InMemory {
			db, err = leveldb.NewMem(dbConfig.LevelDB, log)
		} else {
			db, err = leveldb.New(dbConfig.Path, dbConfig.LevelDB, log)
		}
	case memdb.Name:
		db = memdb.New()
	case pebble.Name:
		if dbConfig.InMemory {
			db, err = pebble.NewMem(dbConfig.Pebble, log)
		} else {
			db, err = pebble.New(dbConfig.Path, dbConfig.Pebble, log)
		}
	default:
		return nil, fmt.Errorf(
			"db-type was %q but should have been one of {%s, %s, %s}",
			dbConfig.Name,
			leveldb.Name,
			memdb.Name,
			pebble.Name,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't create %s at %s: %w", dbConfig.Name, dbConfig.Path, err)
	}

	// Wrap with corruptable DB
	db = corruptabledb.New(db)

	meterDB, err := meterdb.New(namespace, reg, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create meterdb: %w", err)
	}

	log.Info("created database",
		zap.String("type", dbConfig.Name),
		zap.String("path", dbConfig.Path),
		zap.Bool("inMemory", dbConfig.InMemory),
	)
	return meterDB, nil
}
