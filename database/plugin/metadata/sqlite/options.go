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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxConnections is the connection pool size used when no explicit
// limit is configured
const DefaultMaxConnections = 10

// StoreOption configures a Store before Start()
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

// WithDataDir sets the directory used for the database file. An empty
// value selects an in-memory database
func WithDataDir(dataDir string) StoreOption {
	return func(s *Store) {
		s.dataDir = dataDir
	}
}

// WithMaxConnections limits the size of the underlying connection pool
func WithMaxConnections(maxConnections int) StoreOption {
	return func(s *Store) {
		s.maxConnections = maxConnections
	}
}
