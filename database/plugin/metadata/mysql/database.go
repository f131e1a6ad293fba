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

package mysql

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// MySQL server error for "Unknown database"
const mysqlErrUnknownDatabase = 1049

// Connection pool sizing
const (
	maxIdleConns    = 10
	connMaxLifetime = time.Hour
)

// mysqlTxn wraps a gorm transaction and implements types.Txn
type mysqlTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func newMysqlTxn(db *gorm.DB) *mysqlTxn {
	return &mysqlTxn{db: db}
}

func newFailedMysqlTxn(err error) *mysqlTxn {
	return &mysqlTxn{beginErr: err}
}

func (t *mysqlTxn) Commit() error {
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

func (t *mysqlTxn) Rollback() error {
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

// Store keeps indexed metadata in MySQL
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
		s.port = 3306
	}
	if s.user == "" {
		s.user = "root"
	}
	if s.database == "" {
		s.database = "mysql"
	}
	if s.timeZone == "" {
		s.timeZone = "UTC"
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return s, nil
}

// openMysql opens a gorm handle with the store's standard configuration
func openMysql(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// buildDSN renders the individual connection options into a MySQL DSN
func (d *Store) buildDSN() string {
	cfg := mysql.Config{
		User:   d.user,
		Passwd: d.password,
		Net:    "tcp",
		Addr: fmt.Sprintf(
			"%s:%s",
			d.host,
			strconv.FormatUint(uint64(d.port), 10),
		),
		DBName:               d.database,
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	if d.timeZone != "" {
		loc, err := time.LoadLocation(d.timeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Loc = loc
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["loc"] = d.timeZone
	}
	if d.sslMode != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["tls"] = d.sslMode
	}
	return cfg.FormatDSN()
}

// Start implements the plugin.Plugin interface. It connects to the server,
// creating the database on a fresh install, and migrates the schema
func (d *Store) Start() error {
	dsn := strings.TrimSpace(d.dsn)
	dbName := d.database
	if dsn == "" {
		dsn = d.buildDSN()
	} else if parsed, ok := databaseFromDSN(dsn); ok {
		dbName = parsed
	}

	db, err := openMysql(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) &&
			mysqlErr.Number == mysqlErrUnknownDatabase {
			if created, createErr := d.createDatabase(dsn, dbName); createErr == nil && created {
				db, err = openMysql(dsn)
			}
		}
		if err != nil {
			return err
		}
	}
	d.db = db
	d.logger.Info(
		"connected to mysql metadata store",
		"host", d.host,
		"port", d.port,
		"database", dbName,
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

// createDatabase connects without a database selected and creates the named
// database. Returns false when the DSN cannot be split or no database name
// is known
func (d *Store) createDatabase(
	dsn string,
	dbName string,
) (bool, error) {
	if dbName == "" {
		return false, nil
	}
	adminDsn, ok := stripDatabaseFromDSN(dsn)
	if !ok {
		return false, nil
	}
	adminDb, err := openMysql(adminDsn)
	if err != nil {
		return false, err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return false, err
	}
	defer sqlAdminDb.Close()
	if result := adminDb.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); result.Error != nil {
		return false, result.Error
	}
	return true, nil
}

// databaseFromDSN extracts the database name from a MySQL DSN
func databaseFromDSN(dsn string) (string, bool) {
	base := dsn
	if idx := strings.Index(base, "?"); idx >= 0 {
		base = base[:idx]
	}
	slash := strings.LastIndex(base, "/")
	if slash < 0 || slash == len(base)-1 {
		return "", false
	}
	return base[slash+1:], true
}

// stripDatabaseFromDSN removes the database name from a MySQL DSN, keeping
// any query parameters
func stripDatabaseFromDSN(dsn string) (string, bool) {
	base := dsn
	params := ""
	if idx := strings.Index(dsn, "?"); idx >= 0 {
		base = dsn[:idx]
		params = dsn[idx+1:]
	}
	slash := strings.LastIndex(base, "/")
	if slash < 0 {
		return "", false
	}
	base = base[:slash+1]
	if params == "" {
		return base, true
	}
	return base + "?" + params, true
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
		return newFailedMysqlTxn(db.Error)
	}
	return newMysqlTxn(db)
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
		return newFailedMysqlTxn(db.Error), db.Error
	}
	return newMysqlTxn(db), nil
}
