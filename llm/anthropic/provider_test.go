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

package anthropic

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brightclass/aicore/llm"
)

// mockHTTPClient returns a canned response for every request.
type mockHTTPClient struct {
	resp    *http.Response
	err     error
	lastReq *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func newProviderWithClient(t *testing.T, client HTTPClient) *Provider {
	t.Helper()
	p, err := NewProvider(Config{APIKey: "test-key"})
	require.NoError(t, err)
	p.client = client
	return p
}

func httpResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)
}

func TestCompleteParsesResponse(t *testing.T) {
	body := `{
		"id": "msg_1", "type": "message", "role": "assistant",
		"model": "claude-3-5-haiku-20241022", "stop_reason": "end_turn",
		"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "world"}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`
	client := &mockHTTPClient{resp: httpResponse(http.StatusOK, body)}
	p := newProviderWithClient(t, client)

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "test-key", client.lastReq.Header.Get("x-api-key"))
	assert.Equal(t, DefaultAPIVersion, client.lastReq.Header.Get("anthropic-version"))
}

func TestCompleteStreamOrdering(t *testing.T) {
	sse := strings.Join([]string{
		`data: {"type":"message_start","message":{"id":"msg_1","model":"claude-3-5-haiku-20241022","usage":{"input_tokens":4}}}`,
		``,
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"one "}}`,
		``,
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"two "}}`,
		``,
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"three"}}`,
		``,
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}`,
		``,
		`data: {"type":"message_stop"}`,
		``,
	}, "\n")

	client := &mockHTTPClient{resp: httpResponse(http.StatusOK, sse)}
	p := newProviderWithClient(t, client)

	var chunks []string
	sawDone := false
	resp, err := p.CompleteStream(context.Background(), llm.CompletionRequest{Prompt: "count"}, func(chunk llm.StreamChunk) error {
		if chunk.Done {
			sawDone = true
			return nil
		}
		chunks = append(chunks, chunk.Content)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"one ", "two ", "three"}, chunks, "delta order must match upstream emission order")
	assert.True(t, sawDone)
	assert.Equal(t, "one two three", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestCompleteStreamHandlerErrorAborts(t *testing.T) {
	sse := `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"x"}}` + "\n"
	client := &mockHTTPClient{resp: httpResponse(http.StatusOK, sse)}
	p := newProviderWithClient(t, client)

	_, err := p.CompleteStream(context.Background(), llm.CompletionRequest{Prompt: "x"}, func(chunk llm.StreamChunk) error {
		return assert.AnError
	})
	assert.Error(t, err)
}

func TestCompleteAPIError(t *testing.T) {
	body := `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`
	client := &mockHTTPClient{resp: httpResponse(http.StatusTooManyRequests, body)}
	p := newProviderWithClient(t, client)

	_, err := p.Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimitError())
	assert.False(t, apiErr.IsAuthError())
}

func TestCompleteServerErrorMarksUnhealthy(t *testing.T) {
	client := &mockHTTPClient{resp: httpResponse(http.StatusServiceUnavailable, `{}`)}
	p := newProviderWithClient(t, client)

	_, err := p.Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.False(t, p.IsHealthy())
}
