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

package mysql

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherTxn struct{}

func (o *otherTxn) Commit() error   { return nil }
func (o *otherTxn) Rollback() error { return nil }

func TestNewWithOptionsDefaults(t *testing.T) {
	store, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", store.host)
	assert.Equal(t, uint(3306), store.port)
	assert.Equal(t, "root", store.user)
	assert.Equal(t, "mysql", store.database)
	assert.Equal(t, "UTC", store.timeZone)
	assert.NotNil(t, store.logger)
	// Connection is not opened until Start()
	assert.Nil(t, store.DB())
}

func TestFailedTxnCarriesBeginError(t *testing.T) {
	beginErr := errors.New("connection refused")
	txn := newFailedMysqlTxn(beginErr)
	store, err := NewWithOptions()
	require.NoError(t, err)
	_, err = store.resolveDB(txn)
	assert.ErrorIs(t, err, beginErr)
	// Commit surfaces the begin error as well
	assert.ErrorIs(t, txn.Commit(), beginErr)
}

func TestResolveDBWrongTxnType(t *testing.T) {
	store, err := NewWithOptions()
	require.NoError(t, err)
	_, err = store.resolveDB(&otherTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)
	_, err = store.GetDataSet(1, &otherTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestFinishedTxnIsNoop(t *testing.T) {
	txn := newMysqlTxn(nil)
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())
}

func TestCloseWithoutStart(t *testing.T) {
	store, err := NewWithOptions()
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestParseMysqlDatabaseFromDSN(t *testing.T) {
	testDefs := []struct {
		dsn        string
		database   string
		expectedOk bool
	}{
		{
			dsn:        "root:secret@tcp(localhost:3306)/proofhound?parseTime=true",
			database:   "proofhound",
			expectedOk: true,
		},
		{
			dsn:        "root@tcp(localhost:3306)/proofhound",
			database:   "proofhound",
			expectedOk: true,
		},
		{
			dsn:        "root@tcp(localhost:3306)/",
			database:   "",
			expectedOk: false,
		},
		{
			dsn:        "root@localhost",
			database:   "",
			expectedOk: false,
		},
	}
	for _, testDef := range testDefs {
		database, ok := parseMysqlDatabaseFromDSN(testDef.dsn)
		assert.Equal(t, testDef.expectedOk, ok, "dsn: %s", testDef.dsn)
		assert.Equal(t, testDef.database, database, "dsn: %s", testDef.dsn)
	}
}

func TestStripDatabaseFromDSN(t *testing.T) {
	testDefs := []struct {
		dsn        string
		stripped   string
		expectedOk bool
	}{
		{
			dsn:        "root:secret@tcp(localhost:3306)/proofhound?parseTime=true",
			stripped:   "root:secret@tcp(localhost:3306)/?parseTime=true",
			expectedOk: true,
		},
		{
			dsn:        "root@tcp(localhost:3306)/proofhound",
			stripped:   "root@tcp(localhost:3306)/",
			expectedOk: true,
		},
		{
			dsn:        "root@localhost",
			stripped:   "",
			expectedOk: false,
		},
	}
	for _, testDef := range testDefs {
		stripped, ok := stripDatabaseFromDSN(testDef.dsn)
		assert.Equal(t, testDef.expectedOk, ok, "dsn: %s", testDef.dsn)
		assert.Equal(t, testDef.stripped, stripped, "dsn: %s", testDef.dsn)
	}
}
