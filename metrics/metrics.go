// Copyright 2025 BrightClass
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

// Package metrics exposes Prometheus instrumentation for the AI core.
// Collectors are registered on the default registry and served from the
// gateway's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolExecutions counts tool invocations by tool id and outcome
	// (success, denied, invalid_params, error).
	ToolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicore_tool_executions_total",
		Help: "Tool executions by tool id and outcome.",
	}, []string{"tool", "outcome"})

	// ToolExecutionDuration observes tool execution latency.
	ToolExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aicore_tool_execution_seconds",
		Help:    "Tool execution latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	// RelayTurns counts streamed relay turns by terminal state
	// (done, error, cancelled).
	RelayTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicore_relay_turns_total",
		Help: "Relay turns by terminal state.",
	}, []string{"state"})

	// RelayConnections tracks currently open relay connections.
	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aicore_relay_connections",
		Help: "Currently open relay connections.",
	})

	// QuotaDenials counts quota deny decisions by feature.
	QuotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicore_quota_denials_total",
		Help: "Quota deny decisions by feature.",
	}, []string{"feature"})

	// RedactionsApplied counts PII replacements made before prompts
	// leave the trust boundary.
	RedactionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicore_redactions_total",
		Help: "PII replacements applied to outbound prompts.",
	})
)
