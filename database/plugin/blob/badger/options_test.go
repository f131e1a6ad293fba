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
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestWithDataDir(t *testing.T) {
	s := &Store{}
	WithDataDir("/tmp/test")(s)
	assert.Equal(t, "/tmp/test", s.dataDir)
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

func TestSizingOptions(t *testing.T) {
	s := &Store{}
	WithBlockCacheSize(123456789)(s)
	WithIndexCacheSize(987654321)(s)
	WithValueLogFileSize(1073741824)(s)
	WithMemTableSize(33554432)(s)
	WithValueThreshold(1024)(s)

	assert.Equal(t, uint64(123456789), s.blockCacheSize)
	assert.Equal(t, uint64(987654321), s.indexCacheSize)
	assert.Equal(t, int64(1073741824), s.valueLogFileSize)
	assert.Equal(t, int64(33554432), s.memTableSize)
	assert.Equal(t, int64(1024), s.valueThreshold)
}

func TestWithGc(t *testing.T) {
	s := &Store{}
	WithGc(true)(s)
	assert.True(t, s.gcEnabled)
	WithGc(false)(s)
	assert.False(t, s.gcEnabled)
}
