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

package postgres

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Connection pool sizing
const (
	maxIdleConns    = 10
	connMaxLifetime = time.Hour
)

// postgresTxn wraps a gorm transaction and implements types.Txn
type postgresTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func newPostgresTxn(db *gorm.DB) *postgresTxn {
	return &postgresTxn{db: db}
}

func newFailedPostgresTxn(err error) *postgresTxn {
	return &postgresTxn{beginErr: err}
}

func (t *postgresTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if t.db == nil {
		t.finished = true
		return nil
	}
	if result := t.db.Commit(); result.Error != nil {
		return result.Error
	}
	t.finished = true
	return nil
}

func (t *postgresTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if t.db != nil {
		if result := t.db.Rollback(); result.Error != nil {
			return result.Error
		}
	}
	t.finished = true
	return nil
}

// Store keeps indexed metadata in Postgres
type Store struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger

	host           string
	port           uint
	user           string
	password       string
	database       string
	sslMode        string
	timeZone       string
	dsn            string
	maxConnections int
}

// NewWithOptions creates a new store. The connection is not opened until
// Start()
func NewWithOptions(opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == "" {
		s.host = "localhost"
	}
	if s.port == 0 {
		s.port = 5432
	}
	if s.user == "" {
		s.user = "postgres"
	}
	if s.database == "" {
		s.database = "postgres"
	}
	if s.sslMode == "" {
		s.sslMode = "disable"
	}
	if s.timeZone == "" {
		s.timeZone = "UTC"
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return s, nil
}

// buildDSN renders the individual connection options into a key=value DSN
func (d *Store) buildDSN() string {
	parts := []string{
		"host=" + d.host,
		"user=" + d.user,
		"password=" + d.password,
		"dbname=" + d.database,
		"port=" + strconv.FormatUint(uint64(d.port), 10),
		"sslmode=" + d.sslMode,
	}
	if d.timeZone != "" {
		parts = append(parts, "TimeZone="+d.timeZone)
	}
	return strings.Join(parts, " ")
}

// Start implements the plugin.Plugin interface. It connects to the server
// and migrates the schema
func (d *Store) Start() error {
	dsn := strings.TrimSpace(d.dsn)
	if dsn == "" {
		dsn = d.buildDSN()
	}

	db, err := gorm.Open(
		postgres.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
	if err != nil {
		return err
	}
	d.db = db
	d.logger.Info(
		"connected to postgres metadata store",
		"host", d.host,
		"port", d.port,
		"database", d.database,
	)

	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	maxConns := d.maxConnections
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	// Configure tracing for GORM. The store is left usable on error so the
	// caller can attempt recovery
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
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

// Close shuts down the database connection
func (d *Store) Close() error {
	// Start() may have failed or never run
	if d.db == nil {
		return nil
	}
	db, err := d.DB().DB()
	if err != nil {
		return err
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
		return newFailedPostgresTxn(db.Error)
	}
	return newPostgresTxn(db)
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
		return newFailedPostgresTxn(db.Error), db.Error
	}
	return newPostgresTxn(db), nil
}
