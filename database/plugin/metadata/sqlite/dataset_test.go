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
	"testing"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataSet(t *testing.T) {
	store := setupTestStore(t)

	// Initially no data set
	dataSet, err := store.GetDataSet(42, nil)
	require.NoError(t, err)
	assert.Nil(t, dataSet)

	err = store.SetDataSet(&models.DataSet{
		SetId:              42,
		StorageProvider:    []byte{0x01, 0x02, 0x03},
		Payer:              []byte{0x04, 0x05, 0x06},
		LeafCount:          128,
		ChallengeRange:     64,
		NextChallengeEpoch: 2000,
		AddedBlock:         1000,
		WithCDN:            true,
	}, nil)
	require.NoError(t, err)

	dataSet, err = store.GetDataSet(42, nil)
	require.NoError(t, err)
	require.NotNil(t, dataSet)
	assert.Equal(t, uint64(42), dataSet.SetId)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, dataSet.StorageProvider)
	assert.Equal(t, []byte{0x04, 0x05, 0x06}, dataSet.Payer)
	assert.Equal(t, uint64(128), dataSet.LeafCount)
	assert.Equal(t, uint64(64), dataSet.ChallengeRange)
	assert.Equal(t, uint64(2000), dataSet.NextChallengeEpoch)
	assert.Equal(t, uint64(1000), dataSet.AddedBlock)
	assert.True(t, dataSet.WithCDN)
	assert.False(t, dataSet.Deleted)
}

func TestSetDataSetUpdate(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SetDataSet(&models.DataSet{
		SetId:     50,
		LeafCount: 10,
	}, nil))

	// Update through fetch-modify-store
	dataSet, err := store.GetDataSet(50, nil)
	require.NoError(t, err)
	require.NotNil(t, dataSet)
	dataSet.LeafCount = 20
	require.NoError(t, store.SetDataSet(dataSet, nil))

	updated, err := store.GetDataSet(50, nil)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, uint64(20), updated.LeafCount)
	assert.Equal(t, dataSet.ID, updated.ID)

	// Upsert on set ID without a row ID
	require.NoError(t, store.SetDataSet(&models.DataSet{
		SetId:     50,
		LeafCount: 30,
	}, nil))
	updated, err = store.GetDataSet(50, nil)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, uint64(30), updated.LeafCount)

	// Still a single row for the set ID
	var count int64
	result := store.DB().Model(&models.DataSet{}).Count(&count)
	require.NoError(t, result.Error)
	assert.Equal(t, int64(1), count)
}

func TestGetDataSets(t *testing.T) {
	store := setupTestStore(t)

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, store.SetDataSet(&models.DataSet{
			SetId:   i,
			Deleted: i == 3,
		}, nil))
	}

	// Deleted sets excluded by default
	dataSets, err := store.GetDataSets(false, false, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, dataSets, 4)
	for _, dataSet := range dataSets {
		assert.NotEqual(t, uint64(3), dataSet.SetId)
	}

	// Include deleted
	dataSets, err = store.GetDataSets(true, false, 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, dataSets, 5)

	// Descending order
	dataSets, err = store.GetDataSets(true, true, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, dataSets, 5)
	assert.Equal(t, uint64(5), dataSets[0].SetId)
	assert.Equal(t, uint64(1), dataSets[4].SetId)

	// Pagination
	dataSets, err = store.GetDataSets(true, false, 2, 2, nil)
	require.NoError(t, err)
	require.Len(t, dataSets, 2)
	assert.Equal(t, uint64(3), dataSets[0].SetId)
	assert.Equal(t, uint64(4), dataSets[1].SetId)

	// Counts follow the deleted filter
	count, err := store.CountDataSets(false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	count, err = store.CountDataSets(true, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}
