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

func TestFaults(t *testing.T) {
	store := setupTestStore(t)

	// Initially no faults
	faults, err := store.GetFaults(30, false, 0, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, faults)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.SetFault(&models.Fault{
			SetId:          30,
			PeriodsFaulted: types.BigInt{Int: big.NewInt(i)},
			Deadline:       types.BigInt{Int: big.NewInt(5000 + i)},
			BlockNumber:    uint64(4000 + i),
		}, nil))
	}
	// A fault for another set should not show up
	require.NoError(t, store.SetFault(&models.Fault{
		SetId:       31,
		BlockNumber: 4100,
	}, nil))

	// Recording order
	faults, err = store.GetFaults(30, false, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, faults, 3)
	assert.Equal(t, uint64(4001), faults[0].BlockNumber)
	assert.Equal(t, "1", faults[0].PeriodsFaulted.String())
	assert.Equal(t, "5001", faults[0].Deadline.String())
	assert.Equal(t, uint64(4003), faults[2].BlockNumber)

	// Most recent first
	faults, err = store.GetFaults(30, true, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, faults, 3)
	assert.Equal(t, uint64(4003), faults[0].BlockNumber)

	// Pagination
	faults, err = store.GetFaults(30, false, 1, 1, nil)
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, uint64(4002), faults[0].BlockNumber)

	// Counts exclude other sets
	count, err := store.CountFaults(30, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	count, err = store.CountFaults(31, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
