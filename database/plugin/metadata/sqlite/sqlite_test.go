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
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewWithOptions()
	require.NoError(t, err)
	require.NoError(t, store.Start())
	require.NoError(t, store.DB().AutoMigrate(models.MigrateModels...))
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

// bogusTxn implements types.Txn but is not backed by this store
type bogusTxn struct{}

func (bogusTxn) Commit() error   { return nil }
func (bogusTxn) Rollback() error { return nil }

// wrapperTxn mimics a composite transaction that exposes its metadata
// transaction handle
type wrapperTxn struct {
	db *gorm.DB
}

func (w *wrapperTxn) Commit() error         { return w.db.Commit().Error }
func (w *wrapperTxn) Rollback() error       { return w.db.Rollback().Error }
func (w *wrapperTxn) MetadataTxn() *gorm.DB { return w.db }

func TestCommitTimestamp(t *testing.T) {
	store := setupTestStore(t)

	// No timestamp stored yet
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	require.NoError(t, store.SetCommitTimestamp(1234567890, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), ts)

	// Update in place
	require.NoError(t, store.SetCommitTimestamp(1234567891, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567891), ts)

	// A single row holds the timestamp
	var count int64
	result := store.DB().Model(&CommitTimestamp{}).Count(&count)
	require.NoError(t, result.Error)
	assert.Equal(t, int64(1), count)
}

func TestTransactionCommit(t *testing.T) {
	store := setupTestStore(t)

	txn := store.Transaction()
	require.NoError(
		t,
		store.SetDataSet(&models.DataSet{SetId: 800}, txn),
	)
	require.NoError(t, txn.Commit())

	dataSet, err := store.GetDataSet(800, nil)
	require.NoError(t, err)
	require.NotNil(t, dataSet)
	assert.Equal(t, uint64(800), dataSet.SetId)
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestStore(t)

	txn := store.Transaction()
	require.NoError(
		t,
		store.SetDataSet(&models.DataSet{SetId: 801}, txn),
	)
	require.NoError(t, txn.Rollback())

	dataSet, err := store.GetDataSet(801, nil)
	require.NoError(t, err)
	assert.Nil(t, dataSet)
}

func TestTransactionFinishedIsNoop(t *testing.T) {
	store := setupTestStore(t)

	txn := store.Transaction()
	require.NoError(t, txn.Commit())
	// Commit and rollback after finish are no-ops
	assert.NoError(t, txn.Commit())
	assert.NoError(t, txn.Rollback())
}

func TestWrongTransactionType(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDataSet(1, bogusTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)

	err = store.SetDataSet(&models.DataSet{SetId: 1}, bogusTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestProviderTransactionUnwrap(t *testing.T) {
	store := setupTestStore(t)

	wtxn := &wrapperTxn{db: store.DB().Begin()}
	require.NoError(
		t,
		store.SetDataSet(&models.DataSet{SetId: 802}, wtxn),
	)
	require.NoError(t, wtxn.Commit())

	dataSet, err := store.GetDataSet(802, nil)
	require.NoError(t, err)
	require.NotNil(t, dataSet)
}

func TestBeginTxnFailedBeginSurfacesError(t *testing.T) {
	store := setupTestStore(t)

	// Closing the underlying handle makes Begin fail
	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	txn, err := store.BeginTxn()
	assert.Error(t, err)
	require.NotNil(t, txn)
	// The begin error is carried into later operations
	_, err = store.GetDataSet(1, txn)
	assert.Error(t, err)
}
