// Copyright 2026 Blink Labs Software
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

package database

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/fxamacker/cbor/v2"
)

const (
	// blobIteratorBatchSize controls how many payload keys are fetched per
	// batch from the blob iterator. This avoids loading the entire archive
	// into memory while keeping I/O efficient.
	blobIteratorBatchSize = 1000
)

// blobLogEntry holds a payload key discovered during batch scanning.
type blobLogEntry struct {
	key         []byte
	blockNumber uint64
	logIndex    uint32
}

// BlobLogIterator iterates archived log payloads from the blob store in
// event order. The blob store keys are formatted as "lg" +
// big-endian(block number) + big-endian(log index), so forward iteration
// naturally yields payloads in block and log index order.
//
// The iterator fetches payload keys in batches to avoid loading the entire
// archive index into memory, and retrieves payload content on demand for
// each call to Next.
type BlobLogIterator struct {
	db          *Database
	startBlock  uint64
	endBlock    uint64
	hasEndBlock bool

	// internal state
	mu           sync.Mutex
	batch        []blobLogEntry
	batchIdx     int
	currentBlock uint64
	exhausted    bool
	closed       bool

	// resumeKey is the blob key to seek past when fetching the next batch.
	// nil means start from the beginning (or from startBlock).
	resumeKey []byte
}

// LogPayloadsFromBlock returns an iterator that yields archived log payloads
// starting from startBlock, continuing through all subsequent payloads in
// the blob store.
func (d *Database) LogPayloadsFromBlock(startBlock uint64) *BlobLogIterator {
	return &BlobLogIterator{
		db:         d,
		startBlock: startBlock,
	}
}

// LogPayloadsInRange returns an iterator for a specific block range
// [start, end]. Both endpoints are inclusive.
func (d *Database) LogPayloadsInRange(
	startBlock, endBlock uint64,
) *BlobLogIterator {
	return &BlobLogIterator{
		db:          d,
		startBlock:  startBlock,
		endBlock:    endBlock,
		hasEndBlock: true,
	}
}

// Next returns the next archived log payload. When iteration is complete,
// it returns (nil, nil). Payloads whose content cannot be fetched from the
// blob store are skipped with a warning log.
func (it *BlobLogIterator) Next() (*LogPayload, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil
	}

	for {
		// Refill batch if needed
		if it.batchIdx >= len(it.batch) {
			if it.exhausted {
				return nil, nil
			}
			if err := it.fetchBatch(); err != nil {
				return nil, err
			}
			if len(it.batch) == 0 {
				it.exhausted = true
				return nil, nil
			}
		}

		entry := it.batch[it.batchIdx]
		it.batchIdx++
		it.currentBlock = entry.blockNumber

		payload, fetchErr := it.fetchPayload(entry.key)
		if fetchErr != nil {
			if errors.Is(fetchErr, types.ErrBlobKeyNotFound) {
				it.db.logger.Warn(
					"blob iterator: skipping payload with missing content",
					"block_number", entry.blockNumber,
					"log_index", entry.logIndex,
					"error", fetchErr,
				)
				continue
			}
			return nil, fmt.Errorf(
				"fetching payload at block %d log %d: %w",
				entry.blockNumber, entry.logIndex, fetchErr,
			)
		}

		return payload, nil
	}
}

// Progress returns the current block being iterated and the end block.
// If no end block was specified (iterate to archive head), end returns 0.
func (it *BlobLogIterator) Progress() (current, end uint64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.currentBlock, it.endBlock
}

// Close releases any resources held by the iterator. It is safe to call
// Close multiple times.
func (it *BlobLogIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch retrieves the next batch of payload keys from the blob store.
// Must be called with it.mu held.
func (it *BlobLogIterator) fetchBatch() error {
	blob := it.db.Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	iterOpts := types.BlobIteratorOptions{
		Prefix: []byte(types.LogBlobKeyPrefix),
	}
	blobIter := blob.NewIterator(txn, iterOpts)
	if blobIter == nil {
		return errors.New("blob iterator is nil")
	}
	defer blobIter.Close()

	// Determine seek position
	var seekKey []byte
	if it.resumeKey != nil {
		// Seek past the last key we processed
		seekKey = it.resumeKey
	} else {
		// Start from the configured start block
		seekKey = types.LogBlobBlockPrefix(it.startBlock)
	}

	// Build end prefix for range limiting.
	// When endBlock is max uint64, all blocks are in range so we
	// skip the prefix check to avoid overflow on endBlock+1.
	var endPrefix []byte
	if it.hasEndBlock && it.endBlock < ^uint64(0) {
		endPrefix = types.LogBlobBlockPrefix(it.endBlock + 1)
	}

	batch := make([]blobLogEntry, 0, blobIteratorBatchSize)
	prefix := []byte(types.LogBlobKeyPrefix)

	resuming := it.resumeKey != nil

	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		if item == nil {
			continue
		}
		key := item.Key()
		if key == nil {
			continue
		}

		// When resuming, skip the exact key we left off at.
		// If resumeKey was deleted (compaction), Seek lands on the
		// next key which should be included, so we only continue
		// when there is an exact match.
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}

		// Check end range
		if endPrefix != nil && bytes.Compare(key, endPrefix) >= 0 {
			break
		}

		// Parse block number and log index from key
		blockNumber, logIndex, parseErr := types.ParseLogBlobKey(key)
		if parseErr != nil {
			it.db.logger.Warn(
				"blob iterator: skipping unparseable key",
				"error", parseErr,
			)
			continue
		}

		entry := blobLogEntry{
			key:         make([]byte, len(key)),
			blockNumber: blockNumber,
			logIndex:    logIndex,
		}
		copy(entry.key, key)

		batch = append(batch, entry)
		if len(batch) >= blobIteratorBatchSize {
			break
		}
	}

	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("scanning blob keys: %w", err)
	}

	it.batch = batch
	it.batchIdx = 0

	if len(batch) > 0 {
		it.resumeKey = batch[len(batch)-1].key
	}

	// If we got fewer than a full batch, we've exhausted the range
	if len(batch) < blobIteratorBatchSize {
		it.exhausted = true
	}

	return nil
}

// fetchPayload retrieves and decodes the payload content for a key.
// Must be called with it.mu held.
func (it *BlobLogIterator) fetchPayload(key []byte) (*LogPayload, error) {
	blob := it.db.Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	payloadBytes, err := blob.Get(txn, key)
	if err != nil {
		return nil, err
	}
	ret := &LogPayload{}
	if err := cbor.Unmarshal(payloadBytes, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
