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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxConnections is the connection pool size used when no explicit
// limit is configured
const DefaultMaxConnections = 100

// StoreOption configures a Store before Start()
type StoreOption func(*Store)

// WithLogger sets the logger used for store log output
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry sets the prometheus registry used for store metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) StoreOption {
	return func(s *Store) {
		s.promRegistry = registry
	}
}

// WithHost sets the MySQL host
func WithHost(host string) StoreOption {
	return func(s *Store) {
		s.host = host
	}
}

// WithPort sets the MySQL port
func WithPort(port uint) StoreOption {
	return func(s *Store) {
		s.port = port
	}
}

// WithUser sets the MySQL user
func WithUser(user string) StoreOption {
	return func(s *Store) {
		s.user = user
	}
}

// WithPassword sets the MySQL password
func WithPassword(password string) StoreOption {
	return func(s *Store) {
		s.password = password
	}
}

// WithDatabase sets the MySQL database name
func WithDatabase(database string) StoreOption {
	return func(s *Store) {
		s.database = database
	}
}

// WithSSLMode sets the MySQL TLS option, mapped to tls= in the DSN
func WithSSLMode(sslMode string) StoreOption {
	return func(s *Store) {
		s.sslMode = sslMode
	}
}

// WithTimeZone sets the MySQL time zone location
func WithTimeZone(timeZone string) StoreOption {
	return func(s *Store) {
		s.timeZone = timeZone
	}
}

// WithDSN sets a full MySQL DSN, taking precedence over the individual
// connection options
func WithDSN(dsn string) StoreOption {
	return func(s *Store) {
		s.dsn = dsn
	}
}

// WithMaxConnections limits the size of the underlying connection pool
func WithMaxConnections(maxConnections int) StoreOption {
	return func(s *Store) {
		s.maxConnections = maxConnections
	}
}
