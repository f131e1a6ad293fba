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

package gcs

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &Store{}
	WithLogger(logger)(s)
	assert.Same(t, logger, s.logger)
}

func TestWithPromRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := &Store{}
	WithPromRegistry(reg)(s)
	assert.Same(t, reg, s.promRegistry)
}

func TestWithBucket(t *testing.T) {
	s := &Store{}
	WithBucket("test-bucket")(s)
	assert.Equal(t, "test-bucket", s.bucketName)
}

func TestWithCredentialsFile(t *testing.T) {
	s := &Store{}
	WithCredentialsFile("/tmp/credentials.json")(s)
	assert.Equal(t, "/tmp/credentials.json", s.credentialsFile)
}

func TestWithTimeout(t *testing.T) {
	s := &Store{}
	WithTimeout(30 * time.Second)(s)
	assert.Equal(t, 30*time.Second, s.timeout)
}

func TestTxnValidation(t *testing.T) {
	store, err := NewWithOptions(WithBucket("test-bucket"))
	require.NoError(t, err)

	// The client is not created until Start(), so any transaction use
	// reports the store as unavailable
	txn := store.NewTransaction(true)
	_, err = store.Get(txn, []byte("key"))
	assert.ErrorIs(t, err, types.ErrBlobStoreUnavailable)

	_, err = store.Get(nil, []byte("key"))
	assert.ErrorIs(t, err, types.ErrNilTxn)

	// A finished transaction is rejected even before client checks
	require.NoError(t, txn.Commit())
	err = store.Set(txn, []byte("key"), []byte("val"))
	require.Error(t, err)
}
