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

package proofhound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/proofhound/api"
	"github.com/blinklabs-io/proofhound/chainsync"
	"github.com/blinklabs-io/proofhound/database"
	"github.com/blinklabs-io/proofhound/event"
	"github.com/blinklabs-io/proofhound/projector"
	"github.com/ethereum/go-ethereum/ethclient"
)

type Indexer struct {
	eventBus      *event.EventBus
	projector     *projector.Projector
	chainSync     *chainsync.ChainSync
	apiServer     *api.Server
	rpcClient     *ethclient.Client
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Indexer, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	i := &Indexer{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := i.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return i, nil
}

func (i *Indexer) Run(ctx context.Context) error {
	// Configure tracing
	if i.config.tracing {
		if err := i.setupTracing(); err != nil {
			return err
		}
	}
	// Load projector, which owns the database
	p, err := projector.NewProjector(
		projector.ProjectorConfig{
			Logger:         i.config.logger,
			EventBus:       i.eventBus,
			PromRegistry:   i.config.promRegistry,
			DataDir:        i.config.dataDir,
			BlobPlugin:     i.config.blobPlugin,
			MetadataPlugin: i.config.metadataPlugin,
			TreeMaxHeight:  i.config.sumTreeMaxHeight,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load projector: %w", err)
	}
	i.projector = p
	// Connect to RPC endpoint
	client, err := ethclient.DialContext(ctx, i.config.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	i.rpcClient = client
	// Initialize chainsync poller
	i.chainSync = chainsync.NewChainSync(
		chainsync.ChainSyncConfig{
			Logger:          i.config.logger,
			EventBus:        i.eventBus,
			PromRegistry:    i.config.promRegistry,
			Client:          client,
			Cursor:          p.Cursor(),
			ContractAddress: i.config.contractAddress,
			StartBlock:      i.config.startBlock,
			Confirmations:   i.config.confirmations,
			BatchSize:       i.config.batchSize,
			PollInterval:    i.config.pollInterval,
			IntersectTip:    i.config.intersectTip,
			OneShot:         i.config.isLoadMode(),
		},
	)
	// Start API server
	if i.config.apiListenAddress != "" {
		i.apiServer = api.New(
			api.ServerConfig{
				ListenAddress: i.config.apiListenAddress,
			},
			api.NewStoreAdapter(p.Database()),
			i.config.logger,
		)
		if err := i.apiServer.Start(ctx); err != nil {
			return err
		}
	}
	// Run poller
	syncErrChan := make(chan error, 1)
	go func() {
		syncErrChan <- i.chainSync.Run(ctx)
	}()
	if i.config.isLoadMode() {
		// One-shot: done once the poller reaches the confirmed chain head
		return <-syncErrChan
	}

	// Wait for poller failure or shutdown signal
	select {
	case err := <-syncErrChan:
		return err
	case <-i.done:
		return nil
	}
}

// Database returns the underlying database. It is nil until Run has loaded
// the projector
func (i *Indexer) Database() *database.Database {
	if i.projector == nil {
		return nil
	}
	return i.projector.Database()
}

func (i *Indexer) Stop() error {
	var err error
	i.shutdownOnce.Do(func() {
		err = i.shutdown()
	})
	return err
}

func (i *Indexer) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if i.config.shutdownTimeout > 0 {
		shutdownTimeout = i.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	i.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop serving queries
	i.config.logger.Debug("shutdown phase 1: stopping query serving")

	if i.apiServer != nil {
		if stopErr := i.apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Stop ingesting logs
	i.config.logger.Debug("shutdown phase 2: stopping log ingest")

	if i.rpcClient != nil {
		i.rpcClient.Close()
	}

	if i.eventBus != nil {
		i.eventBus.Stop()
	}

	// Phase 3: Flush state and close database
	i.config.logger.Debug("shutdown phase 3: flushing state")

	if i.projector != nil {
		if closeErr := i.projector.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("projector close: %w", closeErr),
			)
		}
	}

	// Phase 4: Cleanup resources
	i.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range i.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	i.shutdownFuncs = nil

	i.config.logger.Debug("graceful shutdown complete")
	close(i.done)
	return err
}
