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

package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"brightclass/aicore/metrics"
	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
)

// recentExecutionCap bounds the in-memory execution history kept for stats.
const recentExecutionCap = 50

// ExecutionRecord is one entry in the recent-execution history.
type ExecutionRecord struct {
	ToolID    string        `json:"tool_id"`
	SubjectID string        `json:"subject_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// Stats summarizes registry contents and execution outcomes.
type Stats struct {
	TotalTools       int               `json:"total_tools"`
	ToolsByCategory  map[Category]int  `json:"tools_by_category"`
	ToolsByRisk      map[RiskLevel]int `json:"tools_by_risk"`
	RecentExecutions []ExecutionRecord `json:"recent_executions"`
	SuccessRate      float64           `json:"success_rate"`
}

// Registry is the process-wide catalog of callable tools. Tools are
// registered at startup; the map is treated as immutable during steady
// state, and only the execution counters and history mutate per call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	executionCount atomic.Int64
	successCount   atomic.Int64

	historyMu sync.Mutex
	history   []ExecutionRecord

	log *logger.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   logger.New("tools"),
	}
}

// Register adds a tool to the catalog. Re-registering an existing id
// overwrites the previous tool with a warning; registration is never
// fatal.
func (r *Registry) Register(tool Tool) {
	def := tool.Definition()

	r.mu.Lock()
	_, exists := r.tools[def.ID]
	r.tools[def.ID] = tool
	r.mu.Unlock()

	if exists {
		r.log.Warn("", "", "Tool re-registered, previous definition overwritten", map[string]interface{}{
			"tool_id": def.ID,
		})
	}
}

// Available returns the tools the given role and tier may execute,
// sorted by id.
func (r *Registry) Available(role types.Role, tier types.Tier) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Tool
	for _, tool := range r.tools {
		def := tool.Definition()
		if !def.AllowsRole(role) {
			continue
		}
		if def.RequiredTier != "" && !tier.AtLeast(def.RequiredTier) {
			continue
		}
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition().ID < out[j].Definition().ID
	})
	return out
}

// ModelDefinitions returns the model-facing schemas for every tool the
// caller may execute.
func (r *Registry) ModelDefinitions(role types.Role, tier types.Tier) []ModelToolDefinition {
	available := r.Available(role, tier)
	defs := make([]ModelToolDefinition, 0, len(available))
	for _, tool := range available {
		defs = append(defs, modelDefinition(tool.Definition()))
	}
	return defs
}

// Execute runs one tool invocation through the full authorization and
// validation pipeline. Every failure mode is returned as a Result, never
// propagated as an error or panic.
//
// Pipeline order, each step short-circuiting: unknown tool, guest block,
// role check, tier rank check, parameter validation, execution.
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]any, ec ExecutionContext) Result {
	r.mu.RLock()
	tool, ok := r.tools[toolID]
	r.mu.RUnlock()

	if !ok {
		return r.failBefore(toolID, ec, "invalid_tool", fmt.Sprintf("unknown tool %q", toolID))
	}

	def := tool.Definition()

	// Guests may never execute tools, regardless of risk level.
	if ec.Guest {
		return r.failBefore(toolID, ec, "denied", "guests may not execute tools")
	}

	if !def.AllowsRole(ec.Role) {
		return r.failBefore(toolID, ec, "denied",
			fmt.Sprintf("role %q may not execute %q (allowed: %v)", ec.Role, toolID, def.AllowedRoles))
	}

	if def.RequiredTier != "" && !ec.Tier.AtLeast(def.RequiredTier) {
		return r.failBefore(toolID, ec, "denied",
			fmt.Sprintf("tool %q requires the %s tier or above; upgrade from %s to use it",
				toolID, def.RequiredTier, ec.Tier))
	}

	if err := validateParams(def.Params, params); err != nil {
		return r.failBefore(toolID, ec, "invalid_params", err.Error())
	}

	start := time.Now()
	data, err := r.invoke(ctx, tool, params, ec)
	elapsed := time.Since(start)

	metrics.ToolExecutionDuration.WithLabelValues(toolID).Observe(elapsed.Seconds())
	r.executionCount.Add(1)

	result := Result{
		Metadata: Metadata{ToolID: toolID, RequestID: ec.RequestID, ExecutionTime: elapsed},
	}

	if err != nil {
		result.Error = err.Error()
		metrics.ToolExecutions.WithLabelValues(toolID, "error").Inc()
		r.log.ErrorWithErr(ec.OrgID, ec.RequestID, "Tool execution failed", err, map[string]interface{}{
			"tool_id":    toolID,
			"subject_id": ec.SubjectID,
		})
	} else {
		result.Success = true
		result.Data = data
		r.successCount.Add(1)
		metrics.ToolExecutions.WithLabelValues(toolID, "success").Inc()
	}

	r.record(ExecutionRecord{
		ToolID:    toolID,
		SubjectID: ec.SubjectID,
		Success:   result.Success,
		Error:     result.Error,
		Duration:  elapsed,
		At:        start,
	})

	return result
}

// invoke runs the tool, converting a panic into an error so a misbehaving
// tool cannot take down the hosting process.
func (r *Registry) invoke(ctx context.Context, tool Tool, params map[string]any, ec ExecutionContext) (data any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return tool.Execute(ctx, params, ec)
}

// failBefore builds the result for failures decided before execution.
// Pre-execution failures have no side effects and do not touch the
// execution counters.
func (r *Registry) failBefore(toolID string, ec ExecutionContext, outcome, message string) Result {
	metrics.ToolExecutions.WithLabelValues(toolID, outcome).Inc()
	r.log.Warn(ec.OrgID, ec.RequestID, "Tool invocation rejected", map[string]interface{}{
		"tool_id": toolID,
		"outcome": outcome,
		"reason":  message,
	})
	return Result{
		Error:    message,
		Metadata: Metadata{ToolID: toolID, RequestID: ec.RequestID},
	}
}

// record appends to the bounded recent-execution history.
func (r *Registry) record(rec ExecutionRecord) {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()
	r.history = append(r.history, rec)
	if len(r.history) > recentExecutionCap {
		r.history = r.history[len(r.history)-recentExecutionCap:]
	}
}

// Stats returns registry contents and execution outcomes. SuccessRate is
// 0 when nothing has executed yet.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	stats := Stats{
		TotalTools:      len(r.tools),
		ToolsByCategory: make(map[Category]int),
		ToolsByRisk:     make(map[RiskLevel]int),
	}
	for _, tool := range r.tools {
		def := tool.Definition()
		stats.ToolsByCategory[def.Category]++
		stats.ToolsByRisk[def.Risk]++
	}
	r.mu.RUnlock()

	r.historyMu.Lock()
	stats.RecentExecutions = append([]ExecutionRecord(nil), r.history...)
	r.historyMu.Unlock()

	executions := r.executionCount.Load()
	if executions > 0 {
		stats.SuccessRate = float64(r.successCount.Load()) / float64(executions)
	}
	return stats
}
