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

package projector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type projectorMetrics struct {
	cursorBlock   prometheus.Gauge
	logsProcessed prometheus.Counter
	handlerErrors prometheus.Counter
	eventsTotal   *prometheus.CounterVec
}

func (m *projectorMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.cursorBlock = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "proofhound_projector_cursor_block",
		Help: "block number of the last fully processed log",
	})
	m.logsProcessed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "proofhound_projector_logs_processed_total",
		Help: "total number of contract logs applied to the store",
	})
	m.handlerErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "proofhound_projector_handler_errors_total",
		Help: "total number of event handler failures",
	})
	m.eventsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofhound_projector_events_total",
			Help: "total number of recognized contract events by name",
		},
		[]string{"event"},
	)
}
