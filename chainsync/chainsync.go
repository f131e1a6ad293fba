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

package chainsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/blinklabs-io/proofhound/event"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPollInterval = 12 * time.Second
	defaultBatchSize    = 1000
)

var ErrNoClient = errors.New("no RPC client configured")

// LogClient is the subset of the Ethereum RPC client used by the log
// poller. ethclient.Client satisfies this interface.
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(
		ctx context.Context,
		q ethereum.FilterQuery,
	) ([]ethtypes.Log, error)
	TransactionByHash(
		ctx context.Context,
		hash common.Hash,
	) (*ethtypes.Transaction, bool, error)
}

// Cursor names the last fully processed log position. The poller
// refetches the cursor block and skips logs at or before the cursor.
type Cursor struct {
	BlockNumber uint64
	LogIndex    uint32
}

type ChainSyncConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	Client       LogClient
	// Cursor resumes after a previously processed log. When nil,
	// polling starts at StartBlock
	Cursor          *Cursor
	ContractAddress common.Address
	StartBlock      uint64
	// Confirmations is the number of blocks behind the chain head
	// that logs are considered final
	Confirmations uint64
	BatchSize     uint64 // Max blocks per log filter call (0 = default)
	PollInterval  time.Duration
	// IntersectTip starts polling at the confirmed chain head instead
	// of backfilling from StartBlock. Ignored when resuming from a
	// cursor
	IntersectTip bool
	// OneShot stops at the confirmed chain head instead of polling
	OneShot bool
}

type ChainSync struct {
	metrics     *chainSyncMetrics
	config      ChainSyncConfig
	nextBlock   uint64
	tipResolved bool
	synced      bool
}

func NewChainSync(cfg ChainSyncConfig) *ChainSync {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	cfg.Logger = cfg.Logger.With("component", "chainsync")
	c := &ChainSync{
		config:    cfg,
		nextBlock: cfg.StartBlock,
	}
	if cfg.Cursor != nil {
		// Refetch the cursor block so logs after the cursor within
		// that block are not lost
		c.nextBlock = cfg.Cursor.BlockNumber
	}
	if cfg.PromRegistry != nil {
		c.initMetrics()
	}
	return c
}

// Run polls for contract logs until the context is canceled. In
// one-shot mode it returns once the confirmed chain head has been
// processed. RPC failures are logged and retried on the next poll.
func (c *ChainSync) Run(ctx context.Context) error {
	if c.config.Client == nil {
		return ErrNoClient
	}
	for {
		caughtUp, err := c.syncOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.config.Logger.Warn(
				"chain poll failed",
				"error", err,
			)
		} else if !caughtUp {
			// More confirmed blocks are pending; fetch the next batch
			// without waiting for the poll interval
			continue
		}
		if caughtUp {
			if !c.synced {
				c.synced = true
				headBlock := c.nextBlock
				if headBlock > 0 {
					headBlock--
				}
				c.config.Logger.Info(
					"reached confirmed chain head",
					"block_number", headBlock,
				)
				// Advisory event; delivered from the bus worker pool
				c.config.EventBus.PublishAsync(
					SyncedEventType,
					event.NewEvent(
						SyncedEventType,
						SyncedEvent{BlockNumber: headBlock},
					),
				)
			}
			if c.config.OneShot {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.config.PollInterval):
		}
	}
}

// syncOnce processes the next block range below the confirmed chain
// head. It returns true once the confirmed head has been reached.
func (c *ChainSync) syncOnce(ctx context.Context) (bool, error) {
	head, err := c.config.Client.BlockNumber(ctx)
	if err != nil {
		c.observeRPCError()
		return false, fmt.Errorf("failed to query chain head: %w", err)
	}
	if c.metrics != nil {
		c.metrics.chainHead.Set(float64(head))
	}
	// Nothing is confirmed on a chain shorter than the confirmation
	// depth
	if head < c.config.Confirmations {
		return true, nil
	}
	confirmedHead := head - c.config.Confirmations
	if c.config.IntersectTip && !c.tipResolved {
		c.tipResolved = true
		if c.config.Cursor == nil && c.nextBlock < confirmedHead {
			c.nextBlock = confirmedHead
		}
	}
	startBlock := c.nextBlock
	if startBlock > confirmedHead {
		return true, nil
	}
	// Computing the range end from the confirmed head avoids overflow
	// on large start blocks
	endBlock := confirmedHead
	if confirmedHead-startBlock+1 > c.config.BatchSize {
		endBlock = startBlock + c.config.BatchSize - 1
	}
	logs, err := c.config.Client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(startBlock),
		ToBlock:   new(big.Int).SetUint64(endBlock),
		Addresses: []common.Address{c.config.ContractAddress},
	})
	if err != nil {
		c.observeRPCError()
		return false, fmt.Errorf(
			"failed to filter logs for blocks %d-%d: %w",
			startBlock,
			endBlock,
			err,
		)
	}
	// Downstream consumers depend on strict (block, log index) order
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	// Transaction input is fetched once per transaction and shared
	// between its logs
	txInputs := make(map[common.Hash][]byte)
	for _, tmpLog := range logs {
		if tmpLog.Removed {
			c.config.Logger.Warn(
				"skipping removed log",
				"block_number", tmpLog.BlockNumber,
				"log_index", tmpLog.Index,
			)
			continue
		}
		if c.cursorCovers(tmpLog) {
			continue
		}
		txInput, ok := txInputs[tmpLog.TxHash]
		if !ok {
			tx, _, err := c.config.Client.TransactionByHash(
				ctx,
				tmpLog.TxHash,
			)
			if err != nil {
				c.observeRPCError()
				return false, fmt.Errorf(
					"failed to fetch transaction %s: %w",
					tmpLog.TxHash.String(),
					err,
				)
			}
			if tx != nil {
				txInput = tx.Data()
			}
			txInputs[tmpLog.TxHash] = txInput
		}
		c.config.EventBus.Publish(
			ChainLogEventType,
			event.NewEvent(
				ChainLogEventType,
				ChainLogEvent{
					Log:     tmpLog,
					TxInput: txInput,
				},
			),
		)
		if c.metrics != nil {
			c.metrics.logsEmitted.Inc()
		}
	}
	c.nextBlock = endBlock + 1
	// Range-head events are advisory and never advance the cursor, so they
	// go through the async queue and may overtake the logs of their range
	c.config.EventBus.PublishAsync(
		ChainBlockEventType,
		event.NewEvent(
			ChainBlockEventType,
			ChainBlockEvent{BlockNumber: endBlock},
		),
	)
	if c.metrics != nil {
		c.metrics.blocksProcessed.Add(float64(endBlock - startBlock + 1))
		c.metrics.processedHead.Set(float64(endBlock))
	}
	return endBlock >= confirmedHead, nil
}

// cursorCovers returns true for logs at or before the resume cursor.
func (c *ChainSync) cursorCovers(tmpLog ethtypes.Log) bool {
	if c.config.Cursor == nil {
		return false
	}
	if tmpLog.BlockNumber != c.config.Cursor.BlockNumber {
		return false
	}
	return safeUintToUint32(tmpLog.Index) <= c.config.Cursor.LogIndex
}

func (c *ChainSync) observeRPCError() {
	if c.metrics != nil {
		c.metrics.rpcErrors.Inc()
	}
}

// safeUintToUint32 converts a uint to uint32, clamping to
// math.MaxUint32 on overflow.
func safeUintToUint32(n uint) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n) // #nosec G115: bounds checked above
}
