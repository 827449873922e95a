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

package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brightclass/aicore/auth"
	"brightclass/aicore/llm"
	"brightclass/aicore/redact"
)

var testSecret = []byte("relay-test-secret")

func signToken(t *testing.T, tier string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "teacher-1",
		"org_id": "org-1",
		"role":   "teacher",
		"tier":   tier,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

// scriptedProvider replays fixed chunks in order.
type scriptedProvider struct {
	chunks []string

	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastModel  string
}

func (p *scriptedProvider) Name() string            { return "scripted" }
func (p *scriptedProvider) SupportsStreaming() bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.CompleteStream(ctx, req, func(llm.StreamChunk) error { return nil })
}

func (p *scriptedProvider) CompleteStream(ctx context.Context, req llm.CompletionRequest, handler llm.StreamHandler) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.lastPrompt = req.Prompt
	p.lastModel = req.Model
	p.mu.Unlock()

	for _, c := range p.chunks {
		if err := handler(llm.StreamChunk{Content: c}); err != nil {
			return nil, err
		}
	}
	if err := handler(llm.StreamChunk{Done: true}); err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{
		Content: strings.Join(p.chunks, ""),
		Model:   req.Model,
	}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// blockingProvider emits one chunk, signals started, then waits for
// cancellation.
type blockingProvider struct {
	started chan struct{}
}

func (p *blockingProvider) Name() string            { return "blocking" }
func (p *blockingProvider) SupportsStreaming() bool { return true }

func (p *blockingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("streaming only")
}

func (p *blockingProvider) CompleteStream(ctx context.Context, req llm.CompletionRequest, handler llm.StreamHandler) (*llm.CompletionResponse, error) {
	if err := handler(llm.StreamChunk{Content: "partial "}); err != nil {
		return nil, err
	}
	close(p.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func startRelay(t *testing.T, provider llm.StreamingProvider) *httptest.Server {
	t.Helper()
	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)

	r := New(Config{
		Verifier: verifier,
		Provider: provider,
		Redactor: redact.New(),
	})
	srv := httptest.NewServer(http.HandlerFunc(r.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestUpgradeRequiresBearerToken(t *testing.T) {
	srv := startRelay(t, &scriptedProvider{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpgradeRejectsInvalidToken(t *testing.T) {
	srv := startRelay(t, &scriptedProvider{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{"Authorization": []string{"Bearer not-a-token"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTurnStreamsDeltasInOrder(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"The ", "quick ", "fox"}}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":        "assistant",
		"service_type": "homework",
		"payload":      map[string]interface{}{"prompt": "Explain fractions"},
	}))

	assert.Equal(t, EventStart, readEvent(t, conn).Type)
	for _, want := range []string{"The ", "quick ", "fox"} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventDelta, ev.Type)
		assert.Equal(t, want, ev.Text)
	}
	assert.Equal(t, EventDone, readEvent(t, conn).Type)
}

func TestConnectionStaysOpenBetweenTurns(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"answer"}}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	for turn := 0; turn < 2; turn++ {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"scope":   "assistant",
			"payload": map[string]interface{}{"prompt": "hello"},
		}))
		assert.Equal(t, EventStart, readEvent(t, conn).Type)
		assert.Equal(t, EventDelta, readEvent(t, conn).Type)
		assert.Equal(t, EventDone, readEvent(t, conn).Type)
	}
	assert.Equal(t, 2, provider.callCount())
}

func TestMissingPromptClosesWithoutUpstreamCall(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"never"}}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":        "assistant",
		"service_type": "homework",
		"payload":      map[string]interface{}{},
	}))

	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Contains(t, ev.Message, "prompt")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var next Event
	assert.Error(t, conn.ReadJSON(&next), "connection should be closed after the error event")
	assert.Equal(t, 0, provider.callCount())
}

func TestMissingScopeClosesWithoutUpstreamCall(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"never"}}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"payload": map[string]interface{}{"prompt": "hi"},
	}))

	assert.Equal(t, EventError, readEvent(t, conn).Type)
	assert.Equal(t, 0, provider.callCount())
}

func TestPromptRedactedBeforeUpstream(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"ok"}}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":   "assistant",
		"payload": map[string]interface{}{"prompt": "Email the parent at jane.doe@example.com today"},
	}))

	assert.Equal(t, EventStart, readEvent(t, conn).Type)
	assert.Equal(t, EventDelta, readEvent(t, conn).Type)
	assert.Equal(t, EventDone, readEvent(t, conn).Type)

	provider.mu.Lock()
	prompt := provider.lastPrompt
	provider.mu.Unlock()
	assert.NotContains(t, prompt, "jane.doe@example.com")
	assert.Contains(t, prompt, "[REDACTED]")
}

func TestModelSelectedByTier(t *testing.T) {
	cases := []struct {
		tier  string
		model string
	}{
		{"basic", llm.ModelEconomy},
		{"premium", llm.ModelEconomy},
		{"pro", llm.ModelPremium},
		{"enterprise", llm.ModelPremium},
	}
	for _, tc := range cases {
		t.Run(tc.tier, func(t *testing.T) {
			provider := &scriptedProvider{chunks: []string{"ok"}}
			srv := startRelay(t, provider)
			conn := dial(t, srv, signToken(t, tc.tier))

			require.NoError(t, conn.WriteJSON(map[string]interface{}{
				"scope":   "assistant",
				"payload": map[string]interface{}{"prompt": "hi"},
			}))
			assert.Equal(t, EventStart, readEvent(t, conn).Type)
			assert.Equal(t, EventDelta, readEvent(t, conn).Type)
			assert.Equal(t, EventDone, readEvent(t, conn).Type)

			provider.mu.Lock()
			model := provider.lastModel
			provider.mu.Unlock()
			assert.Equal(t, tc.model, model)
		})
	}
}

func TestCancelAbortsInFlightTurn(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{})}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":   "assistant",
		"payload": map[string]interface{}{"prompt": "long question"},
	}))

	assert.Equal(t, EventStart, readEvent(t, conn).Type)
	assert.Equal(t, EventDelta, readEvent(t, conn).Type)

	select {
	case <-provider.started:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream call never started")
	}

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "cancel"}))

	ev := readEvent(t, conn)
	assert.Equal(t, EventCancelled, ev.Type, "expected cancelled, got %+v", ev)

	// No further deltas after the cancelled event.
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var stray Event
	err := conn.ReadJSON(&stray)
	if err == nil {
		assert.NotEqual(t, EventDelta, stray.Type)
	}
}

func TestSecondRequestDuringTurnRejected(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{})}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	request := map[string]interface{}{
		"scope":   "assistant",
		"payload": map[string]interface{}{"prompt": "first"},
	}
	require.NoError(t, conn.WriteJSON(request))

	assert.Equal(t, EventStart, readEvent(t, conn).Type)
	assert.Equal(t, EventDelta, readEvent(t, conn).Type)
	<-provider.started

	require.NoError(t, conn.WriteJSON(request))

	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Contains(t, ev.Message, "already in progress")

	// The first turn is still live and can be cancelled cleanly.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "cancel"}))
	assert.Equal(t, EventCancelled, readEvent(t, conn).Type)
}

func TestUpstreamFailureReportsErrorEvent(t *testing.T) {
	provider := &failingProvider{}
	srv := startRelay(t, provider)
	conn := dial(t, srv, signToken(t, "basic"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":   "assistant",
		"payload": map[string]interface{}{"prompt": "hi"},
	}))

	assert.Equal(t, EventStart, readEvent(t, conn).Type)
	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)

	// Connection survives an upstream failure.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"scope":   "assistant",
		"payload": map[string]interface{}{"prompt": "again"},
	}))
	assert.Equal(t, EventStart, readEvent(t, conn).Type)
}

type failingProvider struct{}

func (p *failingProvider) Name() string            { return "failing" }
func (p *failingProvider) SupportsStreaming() bool { return true }

func (p *failingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("upstream unavailable")
}

func (p *failingProvider) CompleteStream(ctx context.Context, req llm.CompletionRequest, handler llm.StreamHandler) (*llm.CompletionResponse, error) {
	return nil, errors.New("upstream unavailable")
}
