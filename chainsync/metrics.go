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

package chainsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type chainSyncMetrics struct {
	chainHead       prometheus.Gauge   // Latest block reported by the RPC
	processedHead   prometheus.Gauge   // Highest fully processed block
	blocksProcessed prometheus.Counter // Total blocks scanned for logs
	logsEmitted     prometheus.Counter // Total logs published on the event bus
	rpcErrors       prometheus.Counter // Failed RPC calls
}

func (c *ChainSync) initMetrics() {
	promautoFactory := promauto.With(c.config.PromRegistry)
	c.metrics = &chainSyncMetrics{}
	c.metrics.chainHead = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "proofhound_chainsync_chain_head_block",
		Help: "latest block number reported by the RPC endpoint",
	})
	c.metrics.processedHead = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "proofhound_chainsync_processed_head_block",
		Help: "highest block number fully processed for logs",
	})
	c.metrics.blocksProcessed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "proofhound_chainsync_blocks_processed_total",
			Help: "number of blocks scanned for contract logs",
		},
	)
	c.metrics.logsEmitted = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "proofhound_chainsync_logs_emitted_total",
			Help: "number of contract logs published on the event bus",
		},
	)
	c.metrics.rpcErrors = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "proofhound_chainsync_rpc_errors_total",
			Help: "number of failed RPC calls",
		},
	)
}
