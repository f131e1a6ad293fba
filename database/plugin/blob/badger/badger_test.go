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

package badger

import (
	"testing"

	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

// otherTxn implements types.Txn but is not backed by this store
type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestNewDefaults(t *testing.T) {
	store := setupTestStore(t)

	assert.Equal(t, uint64(DefaultBlockCacheSize), store.blockCacheSize)
	assert.Equal(t, uint64(DefaultIndexCacheSize), store.indexCacheSize)
	assert.Equal(t, int64(DefaultValueLogFileSize), store.valueLogFileSize)
	assert.Equal(t, int64(DefaultMemTableSize), store.memTableSize)
	assert.Equal(t, int64(DefaultValueThreshold), store.valueThreshold)
	assert.NotNil(t, store.DB())
	// GC is not started for in-memory databases
	assert.Nil(t, store.gcTicker)
}

func TestBlobRoundtrip(t *testing.T) {
	store := setupTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key1"), []byte("value1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err := store.Get(txn, []byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("key1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("key1"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestGetMissingKey(t *testing.T) {
	store := setupTestStore(t)

	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("missing"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestValidateTxn(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(nil, []byte("key"))
	assert.ErrorIs(t, err, types.ErrNilTxn)

	_, err = store.Get(otherTxn{}, []byte("key"))
	assert.ErrorIs(t, err, types.ErrTxnWrongType)

	other, err := New()
	require.NoError(t, err)
	defer other.Close() //nolint:errcheck
	txn := other.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different store")

	// A finished transaction is rejected
	finished := store.NewTransaction(false)
	require.NoError(t, finished.Rollback())
	_, err = store.Get(finished, []byte("key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finished")
}

func TestCommitTimestamp(t *testing.T) {
	store := setupTestStore(t)

	// No timestamp stored yet
	_, err := store.GetCommitTimestamp()
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1723741000123, txn))
	require.NoError(t, txn.Commit())

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1723741000123), ts)

	// A nil transaction is rejected
	assert.ErrorIs(
		t,
		store.SetCommitTimestamp(1, nil),
		types.ErrNilTxn,
	)
}

func TestIterator(t *testing.T) {
	store := setupTestStore(t)

	txn := store.NewTransaction(true)
	for _, key := range []string{"log_1", "log_2", "log_3", "other_1"} {
		require.NoError(t, store.Set(txn, []byte(key), []byte("v")))
	}
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	iter := store.NewIterator(
		txn,
		types.BlobIteratorOptions{Prefix: []byte("log_")},
	)
	defer iter.Close()

	var keys []string
	for iter.Rewind(); iter.ValidForPrefix([]byte("log_")); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []string{"log_1", "log_2", "log_3"}, keys)
}

func TestIteratorFromInvalidTxn(t *testing.T) {
	store := setupTestStore(t)

	iter := store.NewIterator(nil, types.BlobIteratorOptions{})
	defer iter.Close()
	assert.False(t, iter.Valid())
	assert.ErrorIs(t, iter.Err(), types.ErrNilTxn)
}
