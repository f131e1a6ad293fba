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

package projector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/proofhound/chainsync"
	"github.com/blinklabs-io/proofhound/database"
	"github.com/blinklabs-io/proofhound/event"
	"github.com/blinklabs-io/proofhound/sumtree"
	"github.com/prometheus/client_golang/prometheus"
)

type ProjectorConfig struct {
	Logger         *slog.Logger
	EventBus       *event.EventBus
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
	// TreeMaxHeight overrides the selection tree height (0 = default)
	TreeMaxHeight uint
}

// Projector folds contract event logs into the database. Each log is applied
// in its own read-write transaction covering the raw payload archive, the
// derived entity updates, and the sync cursor advance, so a processed log is
// durable as a unit
type Projector struct {
	chainLogMutex sync.Mutex
	config        ProjectorConfig
	db            *database.Database
	cursor        *chainsync.Cursor
	metrics       projectorMetrics
}

func NewProjector(cfg ProjectorConfig) (*Projector, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "projector")
	p := &Projector{
		config: cfg,
	}
	// Init metrics
	p.metrics.init(cfg.PromRegistry)
	// Load database
	needsRecovery := false
	db, err := database.New(&database.Config{
		Logger:         cfg.Logger,
		DataDir:        cfg.DataDir,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if db == nil {
		p.config.Logger.Error(
			"failed to create database",
			"error", "empty database returned",
		)
		return nil, errors.New("empty database returned")
	}
	p.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return nil, err
		}
		p.config.Logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
		)
		needsRecovery = true
	}
	// Load sync cursor
	if err := p.loadCursor(); err != nil {
		return nil, err
	}
	// Run recovery if needed
	if needsRecovery {
		if err := p.recoverCommitTimestampConflict(); err != nil {
			return nil, fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Register for chain logs as a direct subscriber: logs must be applied
	// losslessly and in publish order, so the handler runs inline on the
	// poller goroutine instead of behind a lossy buffered channel
	if p.config.EventBus != nil {
		p.config.EventBus.RegisterSubscriber(
			chainsync.ChainLogEventType,
			&logSubscriber{p: p},
		)
	}
	return p, nil
}

// Cursor returns the resume position for the chain poller, or nil when no
// log has been processed yet
func (p *Projector) Cursor() *chainsync.Cursor {
	p.chainLogMutex.Lock()
	defer p.chainLogMutex.Unlock()
	if p.cursor == nil {
		return nil
	}
	tmpCursor := *p.cursor
	return &tmpCursor
}

// Database returns the underlying database
func (p *Projector) Database() *database.Database {
	return p.db
}

// sumTreeIndex builds a selection index over the node store bound to the
// given transaction
func (p *Projector) sumTreeIndex(txn *database.Txn) *sumtree.Index {
	var opts []sumtree.IndexOption
	if p.config.TreeMaxHeight > 0 {
		opts = append(opts, sumtree.WithMaxHeight(p.config.TreeMaxHeight))
	}
	return sumtree.NewIndex(p.db.SumTreeStore(txn), opts...)
}

func (p *Projector) Close() error {
	return p.db.Close()
}

func (p *Projector) loadCursor() error {
	cursor, err := p.db.GetSyncCursor(nil)
	if err != nil {
		return err
	}
	if cursor != nil {
		p.cursor = &chainsync.Cursor{
			BlockNumber: cursor.BlockNumber,
			LogIndex:    cursor.LogIndex,
		}
	}
	return nil
}

// recoverCommitTimestampConflict rebuilds the metadata store from the blob
// archive after a partial commit. Blob commits land before metadata, so the
// archive can only be ahead of the sync cursor. Replaying archived payloads
// from the cursor block restores the missing updates, and a fresh commit
// brings the stored timestamps back in sync
func (p *Projector) recoverCommitTimestampConflict() error {
	var startBlock uint64
	if p.cursor != nil {
		startBlock = p.cursor.BlockNumber
	}
	iter := p.db.LogPayloadsFromBlock(startBlock)
	defer iter.Close()
	var replayed int
	for {
		payload, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed to read archived log: %w", err)
		}
		if payload == nil {
			break
		}
		tmpLog := logFromPayload(payload)
		if p.cursorCovers(tmpLog) {
			continue
		}
		if err := p.processLog(tmpLog, payload.TxInput); err != nil {
			return fmt.Errorf("failed to replay archived log: %w", err)
		}
		replayed++
	}
	// An empty read-write commit restamps both stores even when every
	// archived payload was already applied
	txn := p.db.Transaction(true)
	defer txn.Rollback() //nolint:errcheck
	if err := txn.Commit(); err != nil {
		return err
	}
	p.config.Logger.Info(
		"recovered database from archived logs",
		"replayed", replayed,
	)
	return nil
}
