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
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"brightclass/aicore/llm"
	"brightclass/aicore/metrics"
	"brightclass/aicore/shared/types"
)

// session owns one websocket connection. The read loop runs on the
// calling goroutine; each turn streams on its own goroutine so a cancel
// message can be read while the upstream call is in flight. At most one
// turn is active at a time; a request arriving mid-turn is rejected
// with an error event, never queued.
type session struct {
	relay *Relay
	conn  *websocket.Conn
	id    types.Identity

	// writeMu serializes outbound frames so delta ordering within a
	// turn is exactly the upstream emission order.
	writeMu sync.Mutex

	// mu guards the active turn's cancel handle. Non-nil means a turn
	// is streaming.
	mu     sync.Mutex
	cancel context.CancelFunc
}

func newSession(r *Relay, conn *websocket.Conn, id types.Identity) *session {
	return &session{relay: r, conn: conn, id: id}
}

// run is the connection read loop. It returns when the client
// disconnects or a protocol error closes the socket; any in-flight turn
// is cancelled on the way out.
func (s *session) run() {
	ctx, cancelConn := context.WithCancel(context.Background())
	defer cancelConn()
	defer s.cancelActive()
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendEvent(Event{Type: EventError, Message: "malformed message"})
			return
		}

		if msg.Type == messageTypeCancel {
			s.cancelActive()
			continue
		}

		if msg.Scope == "" || msg.Payload.Prompt == "" {
			s.sendEvent(Event{Type: EventError, Message: "scope and payload.prompt are required"})
			return
		}

		turnCtx, ok := s.beginTurn(ctx)
		if !ok {
			s.sendEvent(Event{Type: EventError, Message: "a turn is already in progress on this connection"})
			metrics.RelayTurns.WithLabelValues("rejected").Inc()
			continue
		}

		go s.streamTurn(turnCtx, msg)
	}
}

// streamTurn runs one quota check, redaction, upstream call and event
// stream. It always releases the turn slot before returning.
func (s *session) streamTurn(ctx context.Context, msg inboundMessage) {
	defer s.endTurn()

	requestID := uuid.New().String()
	feature := featureForService(msg.ServiceType)
	log := s.relay.log

	if s.relay.quotas != nil {
		decision := s.relay.quotas.CanUse(ctx, s.id, feature, 1)
		if !decision.Allowed {
			metrics.QuotaDenials.WithLabelValues(string(feature)).Inc()
			metrics.RelayTurns.WithLabelValues("denied").Inc()
			log.Warn(s.id.OrgID, requestID, "Turn denied by quota", map[string]interface{}{
				"subject_id": s.id.SubjectID,
				"feature":    string(feature),
				"reason":     decision.Reason,
			})
			s.sendEvent(Event{Type: EventError, Message: "quota exceeded for " + string(feature)})
			return
		}
	}

	prompt, redactions := s.relay.redactor.Redact(msg.Payload.Prompt)
	if redactions > 0 {
		metrics.RedactionsApplied.Add(float64(redactions))
		log.Info(s.id.OrgID, requestID, "Redacted prompt before upstream call", map[string]interface{}{
			"redactions": redactions,
		})
	}

	model := llm.ModelForTier(s.id.Tier)

	if err := s.sendEvent(Event{Type: EventStart}); err != nil {
		metrics.RelayTurns.WithLabelValues("error").Inc()
		return
	}

	start := time.Now()
	resp, err := s.relay.provider.CompleteStream(ctx, llm.CompletionRequest{
		Prompt: prompt,
		Model:  model,
	}, func(chunk llm.StreamChunk) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if chunk.Done || chunk.Content == "" {
			return nil
		}
		return s.sendEvent(Event{Type: EventDelta, Text: chunk.Content})
	})

	switch {
	case ctx.Err() != nil:
		s.sendEvent(Event{Type: EventCancelled})
		metrics.RelayTurns.WithLabelValues("cancelled").Inc()
		log.Info(s.id.OrgID, requestID, "Turn cancelled", map[string]interface{}{
			"subject_id": s.id.SubjectID,
		})
	case err != nil:
		s.sendEvent(Event{Type: EventError, Message: "upstream model call failed"})
		metrics.RelayTurns.WithLabelValues("error").Inc()
		log.ErrorWithErr(s.id.OrgID, requestID, "Upstream model call failed", err, map[string]interface{}{
			"model": model,
		})
	default:
		s.sendEvent(Event{Type: EventDone})
		metrics.RelayTurns.WithLabelValues("done").Inc()
		log.InfoWithDuration(s.id.OrgID, requestID, "Turn completed",
			float64(time.Since(start).Milliseconds()), map[string]interface{}{
				"subject_id": s.id.SubjectID,
				"feature":    string(feature),
				"model":      model,
			})
		go s.relay.recordUsage(s.id, feature, resp)
	}
}

// beginTurn claims the connection's single turn slot. It fails when a
// turn is already streaming.
func (s *session) beginTurn(parent context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, true
}

// endTurn releases the turn slot and any upstream resources still held.
func (s *session) endTurn() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// cancelActive aborts the in-flight turn, if any. The turn goroutine
// observes the cancellation and emits the cancelled event itself.
func (s *session) cancelActive() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *session) sendEvent(ev Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(ev)
}
