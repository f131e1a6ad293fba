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
	"math/big"
	"testing"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProofWithChallenges(t *testing.T) {
	store := setupTestStore(t)

	proof := &models.Proof{
		SetId:          20,
		Seed:           []byte{0x01, 0x02, 0x03, 0x04},
		ChallengeCount: 2,
		BlockNumber:    1500,
		TxHash:         []byte{0xde, 0xad, 0xbe, 0xef},
		Challenges: []models.Challenge{
			{
				SetId:          20,
				ProofIndex:     0,
				ChallengeIndex: 17,
				PieceId:        1,
				Offset:         types.BigInt{Int: big.NewInt(5)},
				Found:          true,
			},
			{
				SetId:          20,
				ProofIndex:     1,
				ChallengeIndex: 99,
				Found:          false,
			},
		},
	}
	require.NoError(t, store.SetProof(proof, nil))
	require.NotZero(t, proof.ID)

	// Challenges are stored and preloaded with the proof
	fetched, err := store.GetProof(proof.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, uint64(20), fetched.SetId)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, fetched.Seed)
	assert.Equal(t, uint64(2), fetched.ChallengeCount)
	require.Len(t, fetched.Challenges, 2)
	assert.Equal(t, uint64(17), fetched.Challenges[0].ChallengeIndex)
	assert.Equal(t, uint64(1), fetched.Challenges[0].PieceId)
	assert.Equal(t, "5", fetched.Challenges[0].Offset.String())
	assert.True(t, fetched.Challenges[0].Found)
	assert.False(t, fetched.Challenges[1].Found)
}

func TestGetProofMissing(t *testing.T) {
	store := setupTestStore(t)

	proof, err := store.GetProof(12345, nil)
	require.NoError(t, err)
	assert.Nil(t, proof)
}

func TestGetProofs(t *testing.T) {
	store := setupTestStore(t)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, store.SetProof(&models.Proof{
			SetId:          21,
			BlockNumber:    1000 + i,
			ChallengeCount: 1,
			Challenges: []models.Challenge{
				{SetId: 21, ChallengeIndex: i},
			},
		}, nil))
	}
	// A proof for another set should not show up
	require.NoError(t, store.SetProof(&models.Proof{
		SetId:       22,
		BlockNumber: 2000,
	}, nil))

	// Recording order
	proofs, err := store.GetProofs(21, false, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, proofs, 3)
	assert.Equal(t, uint64(1001), proofs[0].BlockNumber)
	assert.Equal(t, uint64(1003), proofs[2].BlockNumber)
	require.Len(t, proofs[0].Challenges, 1)

	// Most recent first
	proofs, err = store.GetProofs(21, true, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, proofs, 3)
	assert.Equal(t, uint64(1003), proofs[0].BlockNumber)

	// Pagination
	proofs, err = store.GetProofs(21, false, 1, 1, nil)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Equal(t, uint64(1002), proofs[0].BlockNumber)

	// Counts exclude other sets
	count, err := store.CountProofs(21, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
