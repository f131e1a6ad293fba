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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"math/big"
	"testing"

	"github.com/blinklabs-io/proofhound/database"
	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *StoreAdapter {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir: "",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return NewStoreAdapter(db)
}

func TestNewStoreAdapterNil(t *testing.T) {
	assert.Panics(t, func() {
		NewStoreAdapter(nil)
	})
}

func TestStoreAdapterDataSets(t *testing.T) {
	adapter := newTestAdapter(t)

	for _, dataSet := range []models.DataSet{
		{SetId: 1, LeafCount: 4, AddedBlock: 100},
		{SetId: 2, Deleted: true, DeletedBlock: 150},
		{SetId: 3, LeafCount: 8, AddedBlock: 120},
	} {
		err := adapter.db.SetDataSet(&dataSet, nil)
		require.NoError(t, err)
	}

	dataSet, err := adapter.DataSet(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), dataSet.LeafCount)

	_, err = adapter.DataSet(99)
	assert.ErrorIs(t, err, models.ErrDataSetNotFound)

	dataSets, err := adapter.DataSets(false, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, dataSets, 2)
	assert.Equal(t, uint64(1), dataSets[0].SetId)
	assert.Equal(t, uint64(3), dataSets[1].SetId)

	dataSets, err = adapter.DataSets(true, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, dataSets, 3)
	assert.Equal(t, uint64(3), dataSets[0].SetId)

	total, err := adapter.CountDataSets(false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = adapter.CountDataSets(true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestStoreAdapterPieces(t *testing.T) {
	adapter := newTestAdapter(t)

	for _, piece := range []models.Piece{
		{
			SetId:   5,
			PieceId: 1,
			RawSize: types.BigInt{Int: big.NewInt(1024)},
		},
		{SetId: 5, PieceId: 2, Removed: true},
		{SetId: 5, PieceId: 3},
		{SetId: 6, PieceId: 1},
	} {
		err := adapter.db.SetPiece(&piece, nil)
		require.NoError(t, err)
	}

	piece, err := adapter.Piece(5, 1)
	require.NoError(t, err)
	assert.Equal(t, "1024", piece.RawSize.String())

	_, err = adapter.Piece(5, 99)
	assert.ErrorIs(t, err, models.ErrPieceNotFound)

	pieces, err := adapter.Pieces(5, false, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, uint64(1), pieces[0].PieceId)
	assert.Equal(t, uint64(3), pieces[1].PieceId)

	pieces, err = adapter.Pieces(5, true, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	assert.Equal(t, uint64(3), pieces[0].PieceId)

	total, err := adapter.CountPieces(5, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = adapter.CountPieces(5, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestStoreAdapterProofs(t *testing.T) {
	adapter := newTestAdapter(t)

	for _, proof := range []models.Proof{
		{
			SetId:          7,
			Seed:           []byte{0x01},
			ChallengeCount: 1,
			BlockNumber:    300,
			Challenges: []models.Challenge{
				{
					SetId:      7,
					ProofIndex: 0,
					PieceId:    2,
					Offset: types.BigInt{
						Int: big.NewInt(55),
					},
					Found: true,
				},
			},
		},
		{SetId: 7, Seed: []byte{0x02}, BlockNumber: 310},
	} {
		err := adapter.db.SetProof(&proof, nil)
		require.NoError(t, err)
	}

	proofs, err := adapter.Proofs(7, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, proofs, 2)
	assert.Equal(t, uint64(300), proofs[0].BlockNumber)
	require.Len(t, proofs[0].Challenges, 1)
	assert.Equal(t, uint64(2), proofs[0].Challenges[0].PieceId)

	proofs, err = adapter.Proofs(7, true, 0, 10)
	require.NoError(t, err)
	require.Len(t, proofs, 2)
	assert.Equal(t, uint64(310), proofs[0].BlockNumber)

	total, err := adapter.CountProofs(7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestStoreAdapterProviders(t *testing.T) {
	adapter := newTestAdapter(t)

	err := adapter.db.SetProvider(&models.Provider{
		Address:    testProviderAddr,
		ServiceURL: "https://sp.example.com",
		AddedBlock: 50,
	}, nil)
	require.NoError(t, err)

	provider, err := adapter.Provider(testProviderAddr)
	require.NoError(t, err)
	assert.Equal(t, "https://sp.example.com", provider.ServiceURL)

	_, err = adapter.Provider(testPayerAddr)
	assert.ErrorIs(t, err, models.ErrProviderNotFound)

	providers, err := adapter.Providers(false, 0, 10)
	require.NoError(t, err)
	require.Len(t, providers, 1)

	total, err := adapter.CountProviders()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestStoreAdapterFaults(t *testing.T) {
	adapter := newTestAdapter(t)

	for _, fault := range []models.Fault{
		{
			SetId: 8,
			PeriodsFaulted: types.BigInt{
				Int: big.NewInt(2),
			},
			BlockNumber: 400,
		},
		{SetId: 8, BlockNumber: 410},
	} {
		err := adapter.db.SetFault(&fault, nil)
		require.NoError(t, err)
	}

	faults, err := adapter.Faults(8, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, faults, 2)
	assert.Equal(t, uint64(400), faults[0].BlockNumber)

	total, err := adapter.CountFaults(8)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestStoreAdapterSyncCursor(t *testing.T) {
	adapter := newTestAdapter(t)

	// No cursor before any events have been processed
	cursor, err := adapter.SyncCursor()
	require.NoError(t, err)
	assert.Nil(t, cursor)

	err = adapter.db.SetSyncCursor(&models.SyncCursor{
		BlockNumber: 500,
		BlockHash:   []byte{0xaa, 0xbb},
		LogIndex:    3,
	}, nil)
	require.NoError(t, err)

	cursor, err = adapter.SyncCursor()
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, uint64(500), cursor.BlockNumber)
	assert.Equal(t, uint32(3), cursor.LogIndex)
}
