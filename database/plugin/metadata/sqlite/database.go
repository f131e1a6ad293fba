// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	metadataDbName = "metadata.sqlite"

	// WAL journal mode, disable sync on write, increase cache size to
	// 50MB (from 2MB)
	metadataConnOpts = "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"

	// cache=shared allows multiple connections to share the same
	// in-memory database
	memoryDsn = "file::memory:?cache=shared"

	vacuumInterval = 24 * time.Hour
)

// Store keeps indexed metadata in SQLite. An empty data directory selects
// an in-memory database
type Store struct {
	promRegistry   prometheus.Registerer
	db             *gorm.DB
	logger         *slog.Logger
	timerVacuum    *time.Timer
	timerMutex     sync.Mutex
	dataDir        string
	maxConnections int
	closed         bool
	vacuumWG       sync.WaitGroup
}

// NewWithOptions creates a new store. The database is not opened until
// Start()
func NewWithOptions(opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Default to a throwaway logger so we don't have to guard every
		// log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s, nil
}

// openSqlite opens a gorm handle with the store's standard configuration
func openSqlite(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
}

// Start implements the plugin.Plugin interface. It opens the database,
// migrates the schema, and schedules the daily vacuum
func (d *Store) Start() error {
	dsn := memoryDsn
	if d.dataDir != "" {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.dataDir, fs.ModePerm); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf(
			"file:%s?%s",
			filepath.Join(d.dataDir, metadataDbName),
			metadataConnOpts,
		)
	}
	db, err := openSqlite(dsn)
	if err != nil {
		return err
	}
	d.db = db

	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	maxConns := d.maxConnections
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	sqlDB.SetMaxOpenConns(maxConns)

	// Configure tracing for GORM. The store is left usable on error so the
	// caller can attempt recovery
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	d.scheduleDailyVacuum()
	return d.migrate()
}

// migrate creates or updates the table schemas
func (d *Store) migrate() error {
	tables := append([]any{&CommitTimestamp{}}, models.MigrateModels...)
	for _, table := range tables {
		d.logger.Debug(fmt.Sprintf("creating table: %#v", table))
		if err := d.db.AutoMigrate(table); err != nil {
			return err
		}
	}
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	return d.Close()
}

func (d *Store) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()

	if result := d.DB().Raw("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a vacuum operation to free unused space
func (d *Store) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	f := func() {
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
			)
		}
	}
	d.timerVacuum = time.AfterFunc(vacuumInterval, f)
}

// Close shuts down the database connection and stops background processes
func (d *Store) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()

	// Wait for any in-flight vacuum operations to complete
	d.vacuumWG.Wait()

	// Start() may have failed or never run
	if d.db == nil {
		return nil
	}
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the database handle
func (d *Store) DB() *gorm.DB {
	return d.db
}

// Transaction creates a gorm transaction
func (d *Store) Transaction() types.Txn {
	db := d.DB().Begin()
	if db.Error != nil {
		d.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
		)
		return newFailedSqliteTxn(db.Error)
	}
	return newSqliteTxn(db)
}

// BeginTxn starts a transaction and returns the handle with an error.
// Callers that prefer explicit error handling can use this instead of
// Transaction()
func (d *Store) BeginTxn() (types.Txn, error) {
	db := d.DB().Begin()
	if db.Error != nil {
		d.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
		)
		return newFailedSqliteTxn(db.Error), db.Error
	}
	return newSqliteTxn(db), nil
}
