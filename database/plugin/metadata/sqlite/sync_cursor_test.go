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

package sqlite

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCursor(t *testing.T) {
	store := setupTestStore(t)

	// No cursor before any events are processed
	cursor, err := store.GetSyncCursor(nil)
	require.NoError(t, err)
	assert.Nil(t, cursor)

	hash1 := bytes.Repeat([]byte{0x11}, 32)
	require.NoError(t, store.SetSyncCursor(&models.SyncCursor{
		BlockNumber: 100,
		BlockHash:   hash1,
		LogIndex:    3,
	}, nil))

	cursor, err = store.GetSyncCursor(nil)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, uint64(100), cursor.BlockNumber)
	assert.Equal(t, hash1, cursor.BlockHash)
	assert.Equal(t, uint32(3), cursor.LogIndex)

	// Advancing the cursor updates the same row
	hash2 := bytes.Repeat([]byte{0x22}, 32)
	require.NoError(t, store.SetSyncCursor(&models.SyncCursor{
		BlockNumber: 200,
		BlockHash:   hash2,
	}, nil))

	cursor, err = store.GetSyncCursor(nil)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, uint64(200), cursor.BlockNumber)
	assert.Equal(t, hash2, cursor.BlockHash)
	assert.Equal(t, uint32(0), cursor.LogIndex)

	var count int64
	result := store.DB().Model(&models.SyncCursor{}).Count(&count)
	require.NoError(t, result.Error)
	assert.Equal(t, int64(1), count)
}
