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

package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestConnectionOptions(t *testing.T) {
	s := &Store{}
	for _, opt := range []StoreOption{
		WithHost("db.local"),
		WithPort(5433),
		WithUser("indexer"),
		WithPassword("secret"),
		WithDatabase("proofhound"),
		WithSSLMode("require"),
		WithTimeZone("UTC"),
	} {
		opt(s)
	}

	assert.Equal(t, "db.local", s.host)
	assert.Equal(t, uint(5433), s.port)
	assert.Equal(t, "indexer", s.user)
	assert.Equal(t, "secret", s.password)
	assert.Equal(t, "proofhound", s.database)
	assert.Equal(t, "require", s.sslMode)
	assert.Equal(t, "UTC", s.timeZone)
}

func TestWithDSN(t *testing.T) {
	dsn := "host=localhost user=postgres dbname=proofhound port=5432"
	s := &Store{}
	WithDSN(dsn)(s)
	assert.Equal(t, dsn, s.dsn)
}

func TestWithMaxConnections(t *testing.T) {
	s := &Store{}
	WithMaxConnections(25)(s)
	assert.Equal(t, 25, s.maxConnections)
}

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

func TestBuildDSNRendersAllParts(t *testing.T) {
	s, err := NewWithOptions(
		WithHost("db.local"),
		WithUser("indexer"),
		WithPassword("secret"),
		WithDatabase("proofhound"),
	)
	assert.NoError(t, err)
	dsn := s.buildDSN()
	assert.Contains(t, dsn, "host=db.local")
	assert.Contains(t, dsn, "user=indexer")
	assert.Contains(t, dsn, "dbname=proofhound")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "TimeZone=UTC")
}
