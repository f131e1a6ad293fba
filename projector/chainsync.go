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
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/blinklabs-io/proofhound/abi"
	"github.com/blinklabs-io/proofhound/chainsync"
	"github.com/blinklabs-io/proofhound/challenge"
	"github.com/blinklabs-io/proofhound/database"
	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/blinklabs-io/proofhound/event"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// Size of a data leaf in bytes. Piece sizes are multiples of the leaf
	// size, so the leaf count division is exact
	leafSize = 32

	// Upper bound on challenges materialized for a single proof. Protects
	// against a garbage challenge count in an otherwise valid log
	maxChallengesPerProof = 1 << 16
)

// logSubscriber connects the projector to the event bus as a direct
// subscriber: log events are applied inline on the publishing goroutine,
// so delivery is lossless and the database commit rate throttles the chain
// poller. Deliver never returns an error; a failed log is logged and
// skipped rather than disconnecting the pipeline
type logSubscriber struct {
	p *Projector
}

func (s *logSubscriber) Deliver(evt event.Event) error {
	s.p.handleEventChainLog(evt)
	return nil
}

func (s *logSubscriber) Close() {}

func (p *Projector) handleEventChainLog(evt event.Event) {
	p.chainLogMutex.Lock()
	defer p.chainLogMutex.Unlock()
	e, ok := evt.Data.(chainsync.ChainLogEvent)
	if !ok {
		p.config.Logger.Error(
			"unexpected payload for chain log event",
			"type", fmt.Sprintf("%T", evt.Data),
		)
		return
	}
	if err := p.processLog(e.Log, e.TxInput); err != nil {
		p.config.Logger.Error(
			"failed to process log",
			"block_number", e.Log.BlockNumber,
			"log_index", e.Log.Index,
			"error", err,
		)
	}
}

// processLog applies a single contract log. The payload archive, the entity
// updates, and the cursor advance commit as one transaction. Logs at or
// before the cursor are skipped, so a refetched batch applies exactly once
func (p *Projector) processLog(tmpLog ethtypes.Log, txInput []byte) error {
	if p.cursorCovers(tmpLog) {
		return nil
	}
	err := p.applyLogTxn(tmpLog, txInput, true)
	if err != nil {
		// A failed handler skips the event rather than halting projection.
		// The retry without the handler rolls back any partial entity
		// updates but still archives the payload and advances the cursor,
		// preserving the event for a later replay
		p.config.Logger.Error(
			"failed to apply event",
			"block_number", tmpLog.BlockNumber,
			"log_index", tmpLog.Index,
			"error", err,
		)
		p.metrics.handlerErrors.Inc()
		err = p.applyLogTxn(tmpLog, txInput, false)
	}
	if err != nil {
		return err
	}
	p.cursor = &chainsync.Cursor{
		BlockNumber: tmpLog.BlockNumber,
		LogIndex:    safeUintToUint32(tmpLog.Index),
	}
	p.metrics.logsProcessed.Inc()
	p.metrics.cursorBlock.Set(float64(tmpLog.BlockNumber))
	return nil
}

// applyLogTxn archives the raw payload, optionally dispatches the event
// handler, and advances the persisted cursor in a single transaction
func (p *Projector) applyLogTxn(
	tmpLog ethtypes.Log,
	txInput []byte,
	handle bool,
) error {
	txn := p.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		if err := p.db.SetLogPayload(
			payloadFromLog(tmpLog, txInput),
			txn,
		); err != nil {
			return fmt.Errorf("failed to archive log payload: %w", err)
		}
		if handle {
			if err := p.applyLog(txn, tmpLog, txInput); err != nil {
				return err
			}
		}
		cursor := &models.SyncCursor{
			BlockNumber: tmpLog.BlockNumber,
			BlockHash:   tmpLog.BlockHash.Bytes(),
			LogIndex:    safeUintToUint32(tmpLog.Index),
		}
		if err := p.db.SetSyncCursor(cursor, txn); err != nil {
			return fmt.Errorf("failed to advance sync cursor: %w", err)
		}
		return nil
	})
}

// cursorCovers reports whether the log is at or before the sync cursor.
// The chain poller refetches the cursor block on restart, and a retried
// batch republishes logs that were already applied
func (p *Projector) cursorCovers(tmpLog ethtypes.Log) bool {
	if p.cursor == nil {
		return false
	}
	if tmpLog.BlockNumber != p.cursor.BlockNumber {
		return tmpLog.BlockNumber < p.cursor.BlockNumber
	}
	return safeUintToUint32(tmpLog.Index) <= p.cursor.LogIndex
}

func (p *Projector) applyLog(
	txn *database.Txn,
	tmpLog ethtypes.Log,
	txInput []byte,
) error {
	if len(tmpLog.Topics) == 0 {
		return nil
	}
	topic := tmpLog.Topics[0]
	name, known := topicNames[topic]
	if !known {
		p.config.Logger.Debug(
			"ignoring unknown event topic",
			"topic", topic.String(),
			"block_number", tmpLog.BlockNumber,
		)
		return nil
	}
	p.metrics.eventsTotal.WithLabelValues(name).Inc()
	switch topic {
	case DataSetCreatedTopic:
		return p.handleDataSetCreated(txn, tmpLog)
	case PieceAddedTopic:
		return p.handlePieceAdded(txn, tmpLog)
	case PieceRemovalScheduledTopic:
		return p.handlePieceRemovalScheduled(txn, tmpLog)
	case NextProvingPeriodTopic:
		return p.handleNextProvingPeriod(txn, tmpLog)
	case PossessionProvenTopic:
		return p.handlePossessionProven(txn, tmpLog)
	case FaultRecordTopic:
		return p.handleFaultRecord(txn, tmpLog)
	case DataSetDeletedTopic:
		return p.handleDataSetDeleted(txn, tmpLog)
	case StorageProviderChangedTopic:
		return p.handleStorageProviderChanged(txn, tmpLog)
	case ProviderRegisteredTopic:
		return p.handleProviderRegistered(txn, tmpLog, txInput)
	}
	return nil
}

// DataSetCreated carries the service extra data as its payload: metadata
// string, payer address, CDN flag, and payer signature
func (p *Projector) handleDataSetCreated(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	provider := topicAddress(tmpLog, 2)
	extra := abi.DecodeExtraData(tmpLog.Data)
	dataSet, err := p.getOrCreateDataSet(txn, setId)
	if err != nil {
		return err
	}
	dataSet.StorageProvider = provider.Bytes()
	dataSet.Payer = extra.Payer.Bytes()
	dataSet.Metadata = extra.Metadata
	dataSet.WithCDN = extra.WithCDN
	dataSet.Signature = extra.Signature
	dataSet.AddedBlock = tmpLog.BlockNumber
	return p.db.SetDataSet(dataSet, txn)
}

// PieceAdded weights the new piece in the selection tree and rolls its size
// into the data set totals. The piece size arrives in the third topic, and
// the payload carries the piece extra data (signature and metadata)
func (p *Projector) handlePieceAdded(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	pieceId := topicUint64(tmpLog, 2)
	rawSize := topicBigInt(tmpLog, 3)
	extra := abi.DecodePieceExtraData(tmpLog.Data)
	leafCount := new(big.Int).Div(rawSize, big.NewInt(leafSize)).Uint64()
	piece, err := p.db.GetPiece(setId, pieceId, txn)
	if err != nil {
		if !errors.Is(err, models.ErrPieceNotFound) {
			return err
		}
		piece = &models.Piece{
			SetId:   setId,
			PieceId: pieceId,
		}
	}
	piece.RawSize = types.BigInt{Int: rawSize}
	piece.LeafCount = leafCount
	piece.Signature = extra.Signature
	piece.Metadata = extra.Metadata
	piece.AddedBlock = tmpLog.BlockNumber
	if err := p.db.SetPiece(piece, txn); err != nil {
		return err
	}
	index := p.sumTreeIndex(txn)
	if err := index.Inc(
		setId,
		pieceId,
		new(big.Int).SetUint64(leafCount),
	); err != nil {
		return err
	}
	dataSet, err := p.getOrCreateDataSet(txn, setId)
	if err != nil {
		return err
	}
	dataSet.LeafCount += leafCount
	dataSet.TotalDataSize = addBigInt(dataSet.TotalDataSize, rawSize)
	if pieceId+1 > dataSet.NextPieceId {
		dataSet.NextPieceId = pieceId + 1
	}
	return p.db.SetDataSet(dataSet, txn)
}

// PieceRemovalScheduled only marks the piece. Its weight stays in the
// selection tree until the next proving period rollover applies the removal
func (p *Projector) handlePieceRemovalScheduled(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	pieceId := topicUint64(tmpLog, 2)
	piece, err := p.db.GetPiece(setId, pieceId, txn)
	if err != nil {
		if !errors.Is(err, models.ErrPieceNotFound) {
			return err
		}
		piece = &models.Piece{
			SetId:   setId,
			PieceId: pieceId,
		}
	}
	piece.RemovalScheduled = true
	return p.db.SetPiece(piece, txn)
}

// NextProvingPeriod commits the challenge parameters for the next period and
// applies the piece removals scheduled during the current one. Removed piece
// weights decay out of the selection tree at the new challenge epoch
func (p *Projector) handleNextProvingPeriod(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	challengeEpoch := abi.ToUint256(tmpLog.Data, 0).Uint64()
	leafCount := abi.ToUint256(tmpLog.Data, abi.WordSize).Uint64()
	dataSet, err := p.getOrCreateDataSet(txn, setId)
	if err != nil {
		return err
	}
	removals, err := p.db.GetScheduledRemovals(setId, txn)
	if err != nil {
		return err
	}
	index := p.sumTreeIndex(txn)
	for i := range removals {
		piece := &removals[i]
		if err := index.Dec(
			setId,
			piece.PieceId,
			new(big.Int).SetUint64(piece.LeafCount),
			challengeEpoch,
		); err != nil {
			return err
		}
		piece.RemovalScheduled = false
		piece.Removed = true
		piece.RemovedBlock = tmpLog.BlockNumber
		if err := p.db.SetPiece(piece, txn); err != nil {
			return err
		}
		if dataSet.LeafCount >= piece.LeafCount {
			dataSet.LeafCount -= piece.LeafCount
		} else {
			dataSet.LeafCount = 0
		}
		if piece.RawSize.Int != nil {
			dataSet.TotalDataSize = subBigInt(
				dataSet.TotalDataSize,
				piece.RawSize.Int,
			)
		}
	}
	dataSet.NextChallengeEpoch = challengeEpoch
	dataSet.ChallengeRange = leafCount
	return p.db.SetDataSet(dataSet, txn)
}

// PossessionProven records a submitted proof and materializes its challenge
// set. Each proof index derives a leaf via the seeded generator bounded by
// the committed challenge range, and the selection tree maps the leaf back
// to its owning piece
func (p *Projector) handlePossessionProven(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	seed := abi.LeftPad32(abi.ToUint256(tmpLog.Data, 0).Bytes())
	challengeCount := abi.ToUint256(tmpLog.Data, abi.WordSize).Uint64()
	if challengeCount > maxChallengesPerProof {
		p.config.Logger.Warn(
			"clamping challenge count",
			"set_id", setId,
			"challenge_count", challengeCount,
		)
		challengeCount = maxChallengesPerProof
	}
	var challengeRange, pieceBound uint64
	dataSet, err := p.db.GetDataSet(setId, txn)
	if err != nil && !errors.Is(err, models.ErrDataSetNotFound) {
		return err
	}
	if dataSet != nil {
		challengeRange = dataSet.ChallengeRange
		pieceBound = dataSet.NextPieceId
	}
	index := p.sumTreeIndex(txn)
	proof := &models.Proof{
		SetId:          setId,
		Seed:           seed,
		ChallengeCount: challengeCount,
		TxHash:         tmpLog.TxHash.Bytes(),
		BlockNumber:    tmpLog.BlockNumber,
	}
	for i := uint64(0); i < challengeCount; i++ {
		leafIndex := challenge.GenerateIndex(seed, setId, i, challengeRange)
		tmpChallenge := models.Challenge{
			SetId:          setId,
			ProofIndex:     i,
			ChallengeIndex: leafIndex,
		}
		selection, err := index.Select(
			setId,
			new(big.Int).SetUint64(leafIndex),
			pieceBound,
		)
		if err != nil {
			return err
		}
		if selection != nil {
			tmpChallenge.PieceId = selection.Leaf
			tmpChallenge.Offset = types.BigInt{Int: selection.Offset}
			tmpChallenge.Found = true
		}
		proof.Challenges = append(proof.Challenges, tmpChallenge)
	}
	return p.db.SetProof(proof, txn)
}

func (p *Projector) handleFaultRecord(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	fault := &models.Fault{
		SetId:          topicUint64(tmpLog, 1),
		PeriodsFaulted: types.BigInt{Int: abi.ToUint256(tmpLog.Data, 0)},
		Deadline: types.BigInt{
			Int: abi.ToUint256(tmpLog.Data, abi.WordSize),
		},
		BlockNumber: tmpLog.BlockNumber,
	}
	return p.db.SetFault(fault, txn)
}

// DataSetDeleted marks the set inactive. Rows are retained for history, and
// list queries filter deleted sets by default
func (p *Projector) handleDataSetDeleted(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	dataSet, err := p.getOrCreateDataSet(txn, setId)
	if err != nil {
		return err
	}
	dataSet.Deleted = true
	dataSet.DeletedBlock = tmpLog.BlockNumber
	return p.db.SetDataSet(dataSet, txn)
}

func (p *Projector) handleStorageProviderChanged(
	txn *database.Txn,
	tmpLog ethtypes.Log,
) error {
	setId := topicUint64(tmpLog, 1)
	newProvider := topicAddress(tmpLog, 3)
	dataSet, err := p.getOrCreateDataSet(txn, setId)
	if err != nil {
		return err
	}
	dataSet.StorageProvider = newProvider.Bytes()
	return p.db.SetDataSet(dataSet, txn)
}

// ProviderRegistered carries only the provider address in its topics; the
// service URLs live in the registration call input
func (p *Projector) handleProviderRegistered(
	txn *database.Txn,
	tmpLog ethtypes.Log,
	txInput []byte,
) error {
	address := topicAddress(tmpLog, 1)
	provider, err := p.db.GetProvider(address.Bytes(), txn)
	if err != nil {
		if !errors.Is(err, models.ErrProviderNotFound) {
			return err
		}
		provider = &models.Provider{
			Address: address.Bytes(),
		}
	}
	provider.AddedBlock = tmpLog.BlockNumber
	if bytes.HasPrefix(txInput, addProviderSelector) {
		call := abi.DecodeAddProviderCall(txInput)
		provider.ServiceURL = call.ServiceURL
		provider.RetrievalURL = call.RetrievalURL
	} else {
		// Registration through a wrapper call. Record the address and
		// leave the URLs for a later direct registration
		p.config.Logger.Debug(
			"registration input selector mismatch",
			"address", address.Hex(),
		)
	}
	return p.db.SetProvider(provider, txn)
}

// getOrCreateDataSet fetches a data set row, creating a skeleton when the
// set has not been seen. The creation event can predate the polled block
// range, so later events tolerate a missing row
func (p *Projector) getOrCreateDataSet(
	txn *database.Txn,
	setId uint64,
) (*models.DataSet, error) {
	dataSet, err := p.db.GetDataSet(setId, txn)
	if err != nil {
		if !errors.Is(err, models.ErrDataSetNotFound) {
			return nil, err
		}
		dataSet = &models.DataSet{
			SetId: setId,
		}
	}
	return dataSet, nil
}

// topicBigInt reads the indexed word at the given topic position. Missing
// topics read as zero
func topicBigInt(tmpLog ethtypes.Log, idx int) *big.Int {
	if idx < 0 || idx >= len(tmpLog.Topics) {
		return new(big.Int)
	}
	return abi.ToUint256(tmpLog.Topics[idx].Bytes(), 0)
}

func topicUint64(tmpLog ethtypes.Log, idx int) uint64 {
	return topicBigInt(tmpLog, idx).Uint64()
}

// topicAddress reads the address right-aligned in the word at the given
// topic position
func topicAddress(tmpLog ethtypes.Log, idx int) common.Address {
	if idx < 0 || idx >= len(tmpLog.Topics) {
		return common.Address{}
	}
	return common.BytesToAddress(tmpLog.Topics[idx].Bytes())
}

// payloadFromLog converts a live log into its archive form
func payloadFromLog(
	tmpLog ethtypes.Log,
	txInput []byte,
) *database.LogPayload {
	topics := make([][]byte, 0, len(tmpLog.Topics))
	for _, topic := range tmpLog.Topics {
		topics = append(topics, topic.Bytes())
	}
	return &database.LogPayload{
		Address:     tmpLog.Address.Bytes(),
		Topics:      topics,
		Data:        tmpLog.Data,
		TxHash:      tmpLog.TxHash.Bytes(),
		TxInput:     txInput,
		BlockHash:   tmpLog.BlockHash.Bytes(),
		BlockNumber: tmpLog.BlockNumber,
		LogIndex:    safeUintToUint32(tmpLog.Index),
	}
}

// logFromPayload is the inverse of payloadFromLog, used during replay
func logFromPayload(payload *database.LogPayload) ethtypes.Log {
	topics := make([]common.Hash, 0, len(payload.Topics))
	for _, topic := range payload.Topics {
		topics = append(topics, common.BytesToHash(topic))
	}
	return ethtypes.Log{
		Address:     common.BytesToAddress(payload.Address),
		Topics:      topics,
		Data:        payload.Data,
		BlockNumber: payload.BlockNumber,
		TxHash:      common.BytesToHash(payload.TxHash),
		BlockHash:   common.BytesToHash(payload.BlockHash),
		Index:       uint(payload.LogIndex),
	}
}

func addBigInt(a types.BigInt, delta *big.Int) types.BigInt {
	sum := new(big.Int)
	if a.Int != nil {
		sum.Set(a.Int)
	}
	sum.Add(sum, delta)
	return types.BigInt{Int: sum}
}

// subBigInt subtracts delta, clamping at zero. A removal larger than the
// tracked total indicates missed history, not a negative size
func subBigInt(a types.BigInt, delta *big.Int) types.BigInt {
	sum := new(big.Int)
	if a.Int != nil {
		sum.Set(a.Int)
	}
	sum.Sub(sum, delta)
	if sum.Sign() < 0 {
		sum.SetInt64(0)
	}
	return types.BigInt{Int: sum}
}

func safeUintToUint32(v uint) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	// #nosec G115: bounds checked above
	return uint32(v)
}
