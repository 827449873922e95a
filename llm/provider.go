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

// Package llm defines the unified interface the AI core uses to talk to
// upstream large-language-model providers, plus the tier-based model
// selection rule. The specific vendor wire protocol lives behind the
// Provider interface; only the shape of streamed content deltas matters
// to the rest of the core.
package llm

import (
	"context"
	"time"
)

// CompletionRequest encapsulates one completion call to a provider.
type CompletionRequest struct {
	// Prompt is the (already redacted) user input.
	Prompt string `json:"prompt"`

	// SystemPrompt optionally sets model behavior.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens limits the response length; 0 uses provider defaults.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness. Negative means "provider default";
	// 0.0 is a valid deterministic setting.
	Temperature float64 `json:"temperature,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`

	// Tools are the model-facing tool schemas the model may call.
	Tools []any `json:"tools,omitempty"`
}

// CompletionResponse is the final aggregated result of a completion.
type CompletionResponse struct {
	Content    string        `json:"content"`
	Model      string        `json:"model"`
	StopReason string        `json:"stop_reason"`
	Usage      UsageStats    `json:"usage"`
	Latency    time.Duration `json:"latency"`
}

// UsageStats contains token usage for one completion.
type UsageStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StreamChunk is one incremental event from a streaming completion.
type StreamChunk struct {
	// Content is the text fragment for content deltas.
	Content string

	// Done marks the final chunk of the stream.
	Done bool
}

// StreamHandler is called for each chunk, in upstream emission order.
// Returning an error aborts the stream.
type StreamHandler func(chunk StreamChunk) error

// Provider is the unified interface for upstream model backends.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier used for routing and logging.
	Name() string

	// Complete generates a completion. The context carries cancellation.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// SupportsStreaming indicates if the provider also implements
	// StreamingProvider.
	SupportsStreaming() bool
}

// StreamingProvider extends Provider with incremental output.
type StreamingProvider interface {
	Provider

	// CompleteStream generates a streaming completion, invoking handler
	// per chunk, and returns the final aggregated response. Cancelling
	// the context aborts the upstream call.
	CompleteStream(ctx context.Context, req CompletionRequest, handler StreamHandler) (*CompletionResponse, error)
}
