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

package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/proofhound"
	"github.com/blinklabs-io/proofhound/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "indexer")

	opts, shutdownTimeout, err := indexerOptions(cfg, logger)
	if err != nil {
		return err
	}
	opts = append(
		opts,
		proofhound.WithAPIListenAddress(cfg.ApiListenAddress),
		// Enable metrics with default prometheus registry
		proofhound.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	idx, err := proofhound.New(proofhound.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component",
		"indexer",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "indexer",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run indexer in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := idx.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")

		// Shutdown metrics server
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}

		// Shutdown indexer
		if err := idx.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		if err == nil {
			logger.Info("indexer stopped")
			// Graceful cleanup
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
			if err := idx.Stop(); err != nil {
				logger.Error("shutdown errors occurred", "error", err)
				return err
			}
			return nil
		}
		logger.Error("indexer error", "error", err)
		signalCtxStop()

		// Shutdown indexer resources
		if stopErr := idx.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}

		// Cleanup on error
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("metrics server shutdown error", "error", shutdownErr)
		}

		return err
	}
}

// Load runs a one-shot backfill to the confirmed chain head and exits
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts, _, err := indexerOptions(cfg, logger)
	if err != nil {
		return err
	}
	// No API or metrics listeners during a batch load
	opts = append(opts, proofhound.WithRunMode(string(config.RunModeLoad)))
	idx, err := proofhound.New(proofhound.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Allow interrupting the backfill
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	logger.Info("backfilling logs to the confirmed chain head")
	runErr := idx.Run(signalCtx)
	if stopErr := idx.Stop(); stopErr != nil {
		logger.Error("shutdown errors occurred", "error", stopErr)
		if runErr == nil {
			return stopErr
		}
	}
	if runErr != nil {
		return runErr
	}
	if signalCtx.Err() != nil {
		logger.Info("backfill interrupted")
	} else {
		logger.Info("backfill complete")
	}
	return nil
}

// indexerOptions translates file/env config into indexer config options
func indexerOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]proofhound.ConfigOptionFunc, time.Duration, error) {
	// Parse shutdown timeout
	shutdownTimeout := 30 * time.Second // Default timeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	// Parse poll interval
	var pollInterval time.Duration
	if cfg.PollInterval != "" {
		var err error
		pollInterval, err = time.ParseDuration(cfg.PollInterval)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid poll interval: %w", err)
		}
	}
	if cfg.ContractAddress == "" {
		return nil, 0, fmt.Errorf("no contract address configured")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, 0, fmt.Errorf(
			"invalid contract address: %s",
			cfg.ContractAddress,
		)
	}
	opts := []proofhound.ConfigOptionFunc{
		proofhound.WithIntersectTip(cfg.IntersectTip),
		proofhound.WithLogger(logger),
		proofhound.WithDatabasePath(cfg.DatabasePath),
		proofhound.WithBlobPlugin(cfg.BlobPlugin),
		proofhound.WithMetadataPlugin(cfg.MetadataPlugin),
		proofhound.WithRPCURL(cfg.RpcUrl),
		proofhound.WithContractAddress(
			common.HexToAddress(cfg.ContractAddress),
		),
		proofhound.WithStartBlock(cfg.StartBlock),
		proofhound.WithConfirmations(cfg.Confirmations),
		proofhound.WithBatchSize(cfg.BatchSize),
		proofhound.WithPollInterval(pollInterval),
		proofhound.WithSumTreeMaxHeight(cfg.SumTreeMaxHeight),
		proofhound.WithRunMode(string(cfg.RunMode)),
		proofhound.WithShutdownTimeout(shutdownTimeout),
		proofhound.WithTracing(cfg.Tracing),
		proofhound.WithTracingStdout(cfg.TracingStdout),
	}
	return opts, shutdownTimeout, nil
}
