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
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates an in-memory Database instance for testing.
func newTestDB(t *testing.T) *Database {
	t.Helper()
	config := &Config{
		DataDir: "", // In-memory
	}
	db, err := New(config)
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "failed to close test database")
	})
	return db
}

// randomTxHash generates a random 32-byte hash for testing.
func randomTxHash(t *testing.T) []byte {
	t.Helper()
	hash := make([]byte, 32)
	_, err := rand.Read(hash)
	require.NoError(t, err)
	return hash
}

// insertTestPayload archives a log payload for testing.
func insertTestPayload(
	t *testing.T,
	db *Database,
	blockNumber uint64,
	logIndex uint32,
	data []byte,
) {
	t.Helper()
	err := db.SetLogPayload(&LogPayload{
		TxHash:      randomTxHash(t),
		Data:        data,
		BlockNumber: blockNumber,
		LogIndex:    logIndex,
	}, nil)
	require.NoError(
		t, err,
		"failed to insert test payload at block %d", blockNumber,
	)
}

func TestBlobLogIterator_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	iter := db.LogPayloadsFromBlock(0)
	defer iter.Close()

	result, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, result, "result should be nil for empty database")
}

// collectIterBlocks drains a BlobLogIterator via Next and returns all
// yielded block numbers. Each result's Data is also checked for non-nil.
func collectIterBlocks(
	t *testing.T, iter *BlobLogIterator,
) []uint64 {
	t.Helper()
	var blocks []uint64
	for {
		result, err := iter.Next()
		require.NoError(t, err)
		if result == nil {
			break
		}
		assert.NotNil(
			t, result.Data,
			"data should not be nil for block %d", result.BlockNumber,
		)
		blocks = append(blocks, result.BlockNumber)
	}
	return blocks
}

func TestBlobLogIterator_BlockRanges(t *testing.T) {
	seedBlocks := []uint64{10, 20, 30, 40, 50}

	tests := []struct {
		name     string
		start    uint64
		end      *uint64 // nil = LogPayloadsFromBlock, non-nil = LogPayloadsInRange
		expected []uint64
	}{
		{
			name:     "LogPayloadsFromBlock/all",
			start:    0,
			expected: []uint64{10, 20, 30, 40, 50},
		},
		{
			name:     "LogPayloadsFromBlock/mid_range",
			start:    25,
			expected: []uint64{30, 40, 50},
		},
		{
			name:     "LogPayloadsInRange/inclusive",
			start:    20,
			end:      ptr(uint64(40)),
			expected: []uint64{20, 30, 40},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			for _, blockNumber := range seedBlocks {
				insertTestPayload(
					t, db, blockNumber, 0,
					[]byte{0x82, 0x01},
				)
			}

			var iter *BlobLogIterator
			if tc.end != nil {
				iter = db.LogPayloadsInRange(tc.start, *tc.end)
			} else {
				iter = db.LogPayloadsFromBlock(tc.start)
			}
			defer iter.Close()

			collected := collectIterBlocks(t, iter)
			assert.Equal(t, tc.expected, collected)
		})
	}
}

// ptr returns a pointer to the given value.
func ptr[T any](v T) *T { return &v }

func TestBlobLogIterator_LogIndexOrder(t *testing.T) {
	db := newTestDB(t)

	// Insert out of order within a block
	insertTestPayload(t, db, 100, 2, []byte{0x03})
	insertTestPayload(t, db, 100, 0, []byte{0x01})
	insertTestPayload(t, db, 100, 1, []byte{0x02})
	insertTestPayload(t, db, 101, 0, []byte{0x04})

	iter := db.LogPayloadsFromBlock(0)
	defer iter.Close()

	var indexes []uint32
	for {
		result, err := iter.Next()
		require.NoError(t, err)
		if result == nil {
			break
		}
		indexes = append(indexes, result.LogIndex)
	}
	assert.Equal(t, []uint32{0, 1, 2, 0}, indexes)
}

func TestBlobLogIterator_Progress(t *testing.T) {
	db := newTestDB(t)

	for _, blockNumber := range []uint64{100, 200, 300} {
		insertTestPayload(t, db, blockNumber, 0, []byte{0x82, 0x01})
	}

	iter := db.LogPayloadsInRange(0, 500)
	defer iter.Close()

	// Before any iteration, current should be 0
	current, end := iter.Progress()
	assert.Equal(t, uint64(0), current, "initial current block should be 0")
	assert.Equal(t, uint64(500), end, "end block should match constructor")

	// After iterating one payload
	result, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(100), result.BlockNumber)

	current, end = iter.Progress()
	assert.Equal(
		t, uint64(100), current,
		"current should track last yielded block",
	)
	assert.Equal(t, uint64(500), end, "end should remain unchanged")
}

func TestBlobLogIterator_CloseMultipleTimes(t *testing.T) {
	db := newTestDB(t)

	iter := db.LogPayloadsFromBlock(0)

	// Close multiple times, should not panic
	iter.Close()
	iter.Close()
	iter.Close()

	// Next after close should return nil
	result, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBlobLogIterator_CloseWhileIterating(t *testing.T) {
	db := newTestDB(t)

	for _, blockNumber := range []uint64{10, 20, 30, 40, 50} {
		insertTestPayload(t, db, blockNumber, 0, []byte{0x82, 0x01})
	}

	iter := db.LogPayloadsFromBlock(0)

	// Read one payload
	result, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(10), result.BlockNumber)

	// Close mid-iteration
	iter.Close()

	// Subsequent reads should return nil
	result, err = iter.Next()
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBlobLogIterator_PayloadContent(t *testing.T) {
	db := newTestDB(t)

	expectedData := []byte{0x83, 0x01, 0x02, 0x03}
	txHash := randomTxHash(t)
	err := db.SetLogPayload(&LogPayload{
		Address:     []byte{0x0a},
		Topics:      [][]byte{{0x0b}, {0x0c}},
		Data:        expectedData,
		TxHash:      txHash,
		BlockNumber: 42,
		LogIndex:    7,
	}, nil)
	require.NoError(t, err)

	iter := db.LogPayloadsFromBlock(0)
	defer iter.Close()

	result, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(42), result.BlockNumber)
	assert.Equal(t, uint32(7), result.LogIndex)
	assert.Equal(t, txHash, result.TxHash)
	assert.Equal(t, expectedData, result.Data)
	assert.Equal(t, [][]byte{{0x0b}, {0x0c}}, result.Topics)
}

func TestBlobLogIterator_EmptyRange(t *testing.T) {
	db := newTestDB(t)

	// Insert payloads outside the requested range
	insertTestPayload(t, db, 10, 0, []byte{0x82, 0x01})
	insertTestPayload(t, db, 50, 0, []byte{0x82, 0x01})

	// Request range with no payloads
	iter := db.LogPayloadsInRange(20, 40)
	defer iter.Close()

	result, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBlobLogIterator_MultiBatchResume(t *testing.T) {
	db := newTestDB(t)

	// Insert more payloads than blobIteratorBatchSize (1000) to
	// exercise the resume-key carry-over between batches.
	const numPayloads = 1050
	expectedBlocks := make([]uint64, numPayloads)
	for i := range numPayloads {
		blockNumber := uint64(i + 1)
		expectedBlocks[i] = blockNumber
		insertTestPayload(
			t, db, blockNumber, 0, []byte{0x82, byte(i % 256)},
		)
	}

	iter := db.LogPayloadsFromBlock(0)
	defer iter.Close()

	var collected []uint64
	for {
		result, err := iter.Next()
		require.NoError(t, err)
		if result == nil {
			break
		}
		collected = append(collected, result.BlockNumber)
	}

	require.Len(
		t, collected, numPayloads,
		"should iterate all payloads across multiple batches",
	)
	assert.Equal(
		t, expectedBlocks, collected,
		"payloads should be in ascending block order across batches",
	)
}

func TestBlobLogIterator_MaxEndBlock(t *testing.T) {
	db := newTestDB(t)

	insertTestPayload(t, db, 100, 0, []byte{0x82, 0x01})

	// Using max uint64 as endBlock must not overflow
	iter := db.LogPayloadsInRange(0, ^uint64(0))
	defer iter.Close()

	result, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, result, "payload should be found with max endBlock")
	assert.Equal(t, uint64(100), result.BlockNumber)

	result, err = iter.Next()
	require.NoError(t, err)
	assert.Nil(t, result)
}
