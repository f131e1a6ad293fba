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

func TestGetProvider(t *testing.T) {
	store := setupTestStore(t)

	address := bytes.Repeat([]byte{0xaa}, 20)

	// Initially no provider
	provider, err := store.GetProvider(address, nil)
	require.NoError(t, err)
	assert.Nil(t, provider)

	err = store.SetProvider(&models.Provider{
		Address:      address,
		ServiceURL:   "https://provider.example.com",
		RetrievalURL: "https://retrieve.example.com",
		AddedBlock:   321,
	}, nil)
	require.NoError(t, err)

	provider, err = store.GetProvider(address, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, address, provider.Address)
	assert.Equal(t, "https://provider.example.com", provider.ServiceURL)
	assert.Equal(t, "https://retrieve.example.com", provider.RetrievalURL)
	assert.Equal(t, uint64(321), provider.AddedBlock)
}

func TestSetProviderUpdate(t *testing.T) {
	store := setupTestStore(t)

	address := bytes.Repeat([]byte{0xbb}, 20)
	require.NoError(t, store.SetProvider(&models.Provider{
		Address:    address,
		ServiceURL: "https://old.example.com",
	}, nil))

	// Re-registration replaces the existing record
	require.NoError(t, store.SetProvider(&models.Provider{
		Address:    address,
		ServiceURL: "https://new.example.com",
	}, nil))

	provider, err := store.GetProvider(address, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, "https://new.example.com", provider.ServiceURL)

	var count int64
	result := store.DB().Model(&models.Provider{}).Count(&count)
	require.NoError(t, result.Error)
	assert.Equal(t, int64(1), count)
}

func TestGetProviders(t *testing.T) {
	store := setupTestStore(t)

	for i := byte(1); i <= 3; i++ {
		require.NoError(t, store.SetProvider(&models.Provider{
			Address:    bytes.Repeat([]byte{i}, 20),
			AddedBlock: uint64(i) * 100,
		}, nil))
	}

	providers, err := store.GetProviders(false, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	// Registration order is preserved
	assert.Equal(t, bytes.Repeat([]byte{1}, 20), providers[0].Address)
	assert.Equal(t, bytes.Repeat([]byte{3}, 20), providers[2].Address)

	// Descending order
	providers, err = store.GetProviders(true, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, bytes.Repeat([]byte{3}, 20), providers[0].Address)

	// Pagination
	providers, err = store.GetProviders(false, 1, 1, nil)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, bytes.Repeat([]byte{2}, 20), providers[0].Address)

	count, err := store.CountProviders(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
