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

package proofhound

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// runMode constants for operational mode configuration
const (
	runModeServe = "serve"
	runModeLoad  = "load"
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	rpcURL           string
	apiListenAddress string
	runMode          string
	contractAddress  common.Address
	startBlock       uint64
	confirmations    uint64
	batchSize        uint64
	sumTreeMaxHeight uint
	pollInterval     time.Duration
	shutdownTimeout  time.Duration
	intersectTip     bool
	tracing          bool
	tracingStdout    bool
}

// isLoadMode returns true when running a one-shot backfill
func (c *Config) isLoadMode() bool {
	return c.runMode == runModeLoad
}

func (i *Indexer) configValidate() error {
	if i.config.rpcURL == "" {
		return errors.New("no RPC URL defined")
	}
	if _, err := url.Parse(i.config.rpcURL); err != nil {
		return fmt.Errorf("invalid RPC URL: %w", err)
	}
	if i.config.contractAddress == (common.Address{}) {
		return errors.New("no verifier contract address defined")
	}
	switch i.config.runMode {
	case "", runModeServe, runModeLoad:
	default:
		return fmt.Errorf("unknown run mode: %s", i.config.runMode)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the indexer config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new indexer config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithRPCURL specifies the EVM RPC endpoint to poll for contract logs
func WithRPCURL(rpcURL string) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcURL = rpcURL
	}
}

// WithContractAddress specifies the address of the verifier contract whose
// logs are indexed
func WithContractAddress(address common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.contractAddress = address
	}
}

// WithStartBlock specifies the block to start polling from when no sync
// cursor exists. The default is to start at block zero
func WithStartBlock(block uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.startBlock = block
	}
}

// WithConfirmations specifies how many blocks behind the chain head logs are
// considered final. The default is to index unconfirmed logs
func WithConfirmations(confirmations uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.confirmations = confirmations
	}
}

// WithPollInterval specifies how often to poll for new blocks once caught up
// to the confirmed chain head
func WithPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

// WithBatchSize specifies the maximum number of blocks per log filter call
func WithBatchSize(batchSize uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.batchSize = batchSize
	}
}

// WithIntersectTip specifies whether to start polling at the confirmed chain
// head, skipping the historical backfill. The default is to start at the
// configured start block
func WithIntersectTip(intersectTip bool) ConfigOptionFunc {
	return func(c *Config) {
		c.intersectTip = intersectTip
	}
}

// WithSumTreeMaxHeight overrides the maximum height of the per-dataset
// selection trees
func WithSumTreeMaxHeight(height uint) ConfigOptionFunc {
	return func(c *Config) {
		c.sumTreeMaxHeight = height
	}
}

// WithAPIListenAddress specifies the listen address for the REST API server.
// An empty string disables the server. The default is empty (disabled)
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithRunMode sets the operational mode ("serve" or "load"). "load" performs
// a one-shot backfill to the confirmed chain head and exits
func WithRunMode(mode string) ConfigOptionFunc {
	return func(c *Config) {
		c.runMode = mode
	}
}
