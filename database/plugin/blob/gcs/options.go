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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

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

// WithBucket sets the GCS bucket name
func WithBucket(bucket string) StoreOption {
	return func(s *Store) {
		s.bucketName = bucket
	}
}

// WithCredentialsFile sets the path to a service account credentials JSON
// file. When empty, application default credentials are used
func WithCredentialsFile(credentialsFile string) StoreOption {
	return func(s *Store) {
		s.credentialsFile = credentialsFile
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.timeout = timeout
	}
}
