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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreOption configures a Store before it is opened by New()
type StoreOption func(*Store)

// WithLogger sets the logger used for store log output
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry sets the prometheus registry used for metrics
func WithPromRegistry(registry prometheus.Registerer) StoreOption {
	return func(s *Store) {
		s.promRegistry = registry
	}
}

// WithDataDir sets the directory used for storage. An empty value selects
// an in-memory database
func WithDataDir(dataDir string) StoreOption {
	return func(s *Store) {
		s.dataDir = dataDir
	}
}

// WithBlockCacheSize sets the block cache size in bytes
func WithBlockCacheSize(size uint64) StoreOption {
	return func(s *Store) {
		s.blockCacheSize = size
	}
}

// WithIndexCacheSize sets the index cache size in bytes
func WithIndexCacheSize(size uint64) StoreOption {
	return func(s *Store) {
		s.indexCacheSize = size
	}
}

// WithGc controls whether value log garbage collection runs. It has no
// effect on in-memory databases
func WithGc(enabled bool) StoreOption {
	return func(s *Store) {
		s.gcEnabled = enabled
	}
}

// WithValueLogFileSize sets the value log file size in bytes
func WithValueLogFileSize(size int64) StoreOption {
	return func(s *Store) {
		s.valueLogFileSize = size
	}
}

// WithMemTableSize sets the memtable size in bytes
func WithMemTableSize(size int64) StoreOption {
	return func(s *Store) {
		s.memTableSize = size
	}
}

// WithValueThreshold sets the size above which values are stored in the
// value log instead of the LSM tree
func WithValueThreshold(threshold int64) StoreOption {
	return func(s *Store) {
		s.valueThreshold = threshold
	}
}
