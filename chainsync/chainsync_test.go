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

package chainsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/proofhound/chainsync"
	"github.com/blinklabs-io/proofhound/event"
	"github.com/blinklabs-io/proofhound/internal/test/testutil"
)

var testContractAddr = common.HexToAddress(
	"0x00000000000000000000000000000000000000cc",
)

type blockRange struct {
	from uint64
	to   uint64
}

// fakeLogClient is an in-memory LogClient backed by a static set of
// logs and transactions.
type fakeLogClient struct {
	txs         map[common.Hash]*ethtypes.Transaction
	txCalls     map[common.Hash]int
	logs        []ethtypes.Log
	headErrs    []error
	filterCalls []blockRange
	head        uint64
}

func newFakeLogClient(head uint64) *fakeLogClient {
	return &fakeLogClient{
		head:    head,
		txs:     make(map[common.Hash]*ethtypes.Transaction),
		txCalls: make(map[common.Hash]int),
	}
}

func (f *fakeLogClient) addLog(
	blockNumber uint64,
	logIndex uint,
	txHash common.Hash,
	txInput []byte,
) {
	f.logs = append(f.logs, ethtypes.Log{
		Address:     testContractAddr,
		Topics:      []common.Hash{common.HexToHash("0x01")},
		Data:        []byte{0x01},
		BlockNumber: blockNumber,
		TxHash:      txHash,
		Index:       logIndex,
	})
	if txInput != nil {
		if _, ok := f.txs[txHash]; !ok {
			f.txs[txHash] = ethtypes.NewTx(
				&ethtypes.LegacyTx{Data: txInput},
			)
		}
	}
}

func (f *fakeLogClient) BlockNumber(ctx context.Context) (uint64, error) {
	if len(f.headErrs) > 0 {
		err := f.headErrs[0]
		f.headErrs = f.headErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return f.head, nil
}

func (f *fakeLogClient) FilterLogs(
	ctx context.Context,
	q ethereum.FilterQuery,
) ([]ethtypes.Log, error) {
	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()
	f.filterCalls = append(f.filterCalls, blockRange{from: from, to: to})
	var ret []ethtypes.Log
	for _, tmpLog := range f.logs {
		if tmpLog.BlockNumber >= from && tmpLog.BlockNumber <= to {
			ret = append(ret, tmpLog)
		}
	}
	return ret, nil
}

func (f *fakeLogClient) TransactionByHash(
	ctx context.Context,
	hash common.Hash,
) (*ethtypes.Transaction, bool, error) {
	f.txCalls[hash]++
	return f.txs[hash], false, nil
}

func newTestEventBus(t *testing.T) *event.EventBus {
	t.Helper()
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(func() { bus.Stop() })
	return bus
}

// drainLogEvents returns all buffered chainsync.log events.
func drainLogEvents(
	t *testing.T,
	ch <-chan event.Event,
) []chainsync.ChainLogEvent {
	t.Helper()
	var ret []chainsync.ChainLogEvent
	for {
		select {
		case evt := <-ch:
			logEvt, ok := evt.Data.(chainsync.ChainLogEvent)
			require.True(t, ok, "unexpected event payload type")
			ret = append(ret, logEvt)
		default:
			return ret
		}
	}
}

func TestOneShotPublishesLogsInOrder(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(20)
	txA := common.HexToHash("0xaa")
	txB := common.HexToHash("0xbb")
	// Inserted out of order to exercise sorting
	client.addLog(3, 2, txA, []byte{0x0a})
	client.addLog(3, 0, txA, []byte{0x0a})
	client.addLog(7, 1, txB, []byte{0x0b})

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)
	_, syncedCh := bus.Subscribe(chainsync.SyncedEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		Confirmations:   5,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 3)
	assert.Equal(t, uint64(3), logs[0].Log.BlockNumber)
	assert.Equal(t, uint(0), logs[0].Log.Index)
	assert.Equal(t, uint64(3), logs[1].Log.BlockNumber)
	assert.Equal(t, uint(2), logs[1].Log.Index)
	assert.Equal(t, uint64(7), logs[2].Log.BlockNumber)
	assert.Equal(t, uint(1), logs[2].Log.Index)
	assert.Equal(t, []byte{0x0a}, logs[0].TxInput)
	assert.Equal(t, []byte{0x0b}, logs[2].TxInput)

	// Confirmed head is 15 with 5 confirmations on head 20. The synced
	// event is published async, so allow time for worker delivery
	evt := testutil.RequireReceive(
		t,
		syncedCh,
		2*time.Second,
		"expected synced event",
	)
	syncedEvt, ok := evt.Data.(chainsync.SyncedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(15), syncedEvt.BlockNumber)
}

func TestCursorResumeSkipsProcessedLogs(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(12)
	txHash := common.HexToHash("0xaa")
	client.addLog(10, 0, txHash, []byte{0x01})
	client.addLog(10, 1, txHash, []byte{0x01})
	client.addLog(10, 2, txHash, []byte{0x01})
	client.addLog(12, 0, txHash, []byte{0x01})

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		Cursor:          &chainsync.Cursor{BlockNumber: 10, LogIndex: 1},
		ContractAddress: testContractAddr,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 2)
	assert.Equal(t, uint64(10), logs[0].Log.BlockNumber)
	assert.Equal(t, uint(2), logs[0].Log.Index)
	assert.Equal(t, uint64(12), logs[1].Log.BlockNumber)
	assert.Equal(t, uint(0), logs[1].Log.Index)

	// Polling must restart at the cursor block, not after it
	require.NotEmpty(t, client.filterCalls)
	assert.Equal(t, uint64(10), client.filterCalls[0].from)
}

func TestBatchedBlockRanges(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(25)

	_, blockCh := bus.Subscribe(chainsync.ChainBlockEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		BatchSize:       10,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	expectedCalls := []blockRange{
		{from: 0, to: 9},
		{from: 10, to: 19},
		{from: 20, to: 25},
	}
	assert.Equal(t, expectedCalls, client.filterCalls)

	// Block events arrive via the async pool, with no ordering guarantee
	// across workers
	var blockNums []uint64
	for range expectedCalls {
		evt := testutil.RequireReceive(
			t,
			blockCh,
			2*time.Second,
			"expected block range event",
		)
		blockEvt, ok := evt.Data.(chainsync.ChainBlockEvent)
		require.True(t, ok, "unexpected event payload type")
		blockNums = append(blockNums, blockEvt.BlockNumber)
	}
	assert.ElementsMatch(t, []uint64{9, 19, 25}, blockNums)
}

func TestTxInputFetchedOncePerTransaction(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(10)
	txHash := common.HexToHash("0xaa")
	client.addLog(2, 0, txHash, []byte{0x01, 0x02})
	client.addLog(2, 1, txHash, []byte{0x01, 0x02})

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 2)
	assert.Equal(t, []byte{0x01, 0x02}, logs[0].TxInput)
	assert.Equal(t, []byte{0x01, 0x02}, logs[1].TxInput)
	assert.Equal(t, 1, client.txCalls[txHash])
}

func TestRemovedLogsSkipped(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(10)
	txHash := common.HexToHash("0xaa")
	client.addLog(2, 0, txHash, []byte{0x01})
	client.logs[0].Removed = true
	client.addLog(3, 0, txHash, []byte{0x01})

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(3), logs[0].Log.BlockNumber)
}

func TestMissingTransactionYieldsNilInput(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(10)
	// No transaction registered for this log's hash
	client.addLog(2, 0, common.HexToHash("0xaa"), nil)

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].TxInput)
}

func TestRPCErrorRetried(t *testing.T) {
	bus := newTestEventBus(t)
	client := newFakeLogClient(10)
	client.headErrs = []error{errors.New("connection refused")}
	client.addLog(2, 0, common.HexToHash("0xaa"), []byte{0x01})

	_, logCh := bus.Subscribe(chainsync.ChainLogEventType)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		PollInterval:    time.Millisecond,
		OneShot:         true,
	})
	require.NoError(t, cs.Run(context.Background()))

	logs := drainLogEvents(t, logCh)
	require.Len(t, logs, 1)
}

func TestRunWithoutClient(t *testing.T) {
	bus := newTestEventBus(t)
	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus: bus,
		OneShot:  true,
	})
	assert.ErrorIs(t, cs.Run(context.Background()), chainsync.ErrNoClient)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	// The event bus keeps a persistent async worker pool
	defer goleak.VerifyNone(
		t,
		goleak.IgnoreTopFunction(
			"github.com/blinklabs-io/proofhound/event.(*EventBus).asyncWorker",
		),
	)

	bus := newTestEventBus(t)
	client := newFakeLogClient(10)

	cs := chainsync.NewChainSync(chainsync.ChainSyncConfig{
		EventBus:        bus,
		Client:          client,
		ContractAddress: testContractAddr,
		PollInterval:    time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- cs.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := testutil.RequireReceive(
		t,
		doneCh,
		5*time.Second,
		"Run did not stop after context cancellation",
	)
	require.NoError(t, err)
}
