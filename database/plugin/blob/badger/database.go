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

package badger

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

	"github.com/blinklabs-io/proofhound/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	blobDirName = "blob"

	gcInterval = 5 * time.Minute

	// Value log files are rewritten once this share of their space is
	// reclaimable
	gcDiscardRatio = 0.5
)

// Store keeps raw event blobs in badger. An empty data directory selects an
// in-memory database
type Store struct {
	promRegistry     prometheus.Registerer
	db               *badger.DB
	logger           *slog.Logger
	gcTicker         *time.Ticker
	gcStopCh         chan struct{}
	dataDir          string
	gcWg             sync.WaitGroup
	blockCacheSize   uint64
	indexCacheSize   uint64
	valueLogFileSize int64
	memTableSize     int64
	valueThreshold   int64
	gcEnabled        bool
}

// New creates and opens a new store
func New(opts ...StoreOption) (*Store, error) {
	s := &Store{
		// GC only applies to disk-backed stores but defaults on so the
		// common case gets it without configuration
		gcEnabled:        true,
		blockCacheSize:   DefaultBlockCacheSize,
		indexCacheSize:   DefaultIndexCacheSize,
		valueLogFileSize: int64(DefaultValueLogFileSize),
		memTableSize:     int64(DefaultMemTableSize),
		valueThreshold:   int64(DefaultValueThreshold),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Default to a throwaway logger so we don't have to guard every
		// log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := s.badgerOptions()
	if err != nil {
		return nil, err
	}
	blobDb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s.db = blobDb
	if s.promRegistry != nil {
		s.registerBlobMetrics()
	}
	// Value log GC is meaningless for in-memory databases
	if s.gcEnabled && s.dataDir != "" {
		s.startGc()
	}
	return s, nil
}

// badgerOptions renders the store configuration into badger options,
// creating the data directory if needed
func (d *Store) badgerOptions() (badger.Options, error) {
	if d.dataDir == "" {
		return badger.DefaultOptions("").
			WithLogger(newBadgerLogger(d.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithValueThreshold(d.valueThreshold), nil
	}
	// Make sure that we can read data dir, and create if it doesn't exist
	if _, err := os.Stat(d.dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return badger.Options{}, fmt.Errorf(
				"failed to read data dir: %w",
				err,
			)
		}
		if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
			return badger.Options{}, fmt.Errorf(
				"failed to create data dir: %w",
				err,
			)
		}
	}
	return badger.DefaultOptions(filepath.Join(d.dataDir, blobDirName)).
		WithLogger(newBadgerLogger(d.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(int64(d.blockCacheSize)). //nolint:gosec
		WithIndexCacheSize(int64(d.indexCacheSize)). //nolint:gosec
		WithValueLogFileSize(d.valueLogFileSize).
		WithMemTableSize(d.memTableSize).
		WithValueThreshold(d.valueThreshold).
		WithCompression(options.Snappy), nil
}

// startGc begins the periodic value log garbage collection
func (d *Store) startGc() {
	d.gcTicker = time.NewTicker(gcInterval)
	d.gcStopCh = make(chan struct{})
	d.gcWg.Add(1)
	go d.blobGc(d.gcTicker, d.gcStopCh)
}

func (d *Store) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
			// Keep collecting until a pass rewrites nothing
			for {
				err := d.DB().RunValueLogGC(gcDiscardRatio)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("blob DB: GC failure: %s", err),
						"component", "database",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Start implements the plugin.Plugin interface. The database is already
// opened in New(), so this is a no-op
func (d *Store) Start() error {
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	return d.Close()
}

// Close stops garbage collection and closes the database
func (d *Store) Close() error {
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		if d.gcStopCh != nil {
			close(d.gcStopCh)
			d.gcStopCh = nil
		}
		// Wait for GC goroutine to finish
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	return d.DB().Close()
}

// DB returns the database handle
func (d *Store) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *Store) NewTransaction(update bool) types.Txn {
	return newBadgerTxn(d, d.DB().NewTransaction(update))
}

// Get retrieves a value within a transaction
func (d *Store) Get(
	txn types.Txn,
	key []byte,
) ([]byte, error) {
	btx, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := btx.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (d *Store) Set(txn types.Txn, key, val []byte) error {
	btx, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return btx.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (d *Store) Delete(txn types.Txn, key []byte) error {
	btx, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return btx.tx.Delete(key)
}

// NewIterator creates an iterator within a transaction. Items returned by
// the iterator must only be accessed while that transaction is still
// active
func (d *Store) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	btx, err := d.validateTxn(txn)
	if err != nil {
		return &errorIterator{err: err}
	}
	iterOpts := badger.IteratorOptions{
		Prefix:  opts.Prefix,
		Reverse: opts.Reverse,
	}
	return &badgerIterator{iter: btx.tx.NewIterator(iterOpts)}
}
