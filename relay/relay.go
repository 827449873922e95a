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
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"brightclass/aicore/auth"
	"brightclass/aicore/llm"
	"brightclass/aicore/metrics"
	"brightclass/aicore/quota"
	"brightclass/aicore/redact"
	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
	"brightclass/aicore/usage"
)

const (
	maxMessageSize = 64 * 1024
	writeTimeout   = 10 * time.Second
)

// Config holds the relay's collaborators. Verifier, Provider and
// Redactor are required; Quotas and Recorder are optional and skipped
// when nil.
type Config struct {
	Verifier *auth.Verifier
	Provider llm.StreamingProvider
	Redactor *redact.Redactor
	Quotas   *quota.Manager
	Recorder *usage.Recorder
}

// Relay accepts websocket connections and streams model output back to
// clients turn by turn. Connections are independent; the only state
// shared between them is the read-only configuration here.
type Relay struct {
	verifier *auth.Verifier
	provider llm.StreamingProvider
	redactor *redact.Redactor
	quotas   *quota.Manager
	recorder *usage.Recorder
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// New creates a Relay from its collaborators.
func New(cfg Config) *Relay {
	return &Relay{
		verifier: cfg.Verifier,
		provider: cfg.Provider,
		redactor: cfg.Redactor,
		quotas:   cfg.Quotas,
		recorder: cfg.Recorder,
		log:      logger.New("relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket authenticates the upgrade request and runs the
// connection's session until the client disconnects. Missing or invalid
// credentials are rejected with 401 before the upgrade, so no model
// cost is ever incurred for an unauthenticated caller.
func (r *Relay) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	id, err := r.verifier.VerifyRequest(req)
	if err != nil {
		r.log.Warn("", "", "Rejected websocket upgrade", map[string]interface{}{
			"remote": req.RemoteAddr,
			"reason": err.Error(),
		})
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.ErrorWithErr(id.OrgID, "", "Websocket upgrade failed", err, nil)
		return
	}

	metrics.RelayConnections.Inc()
	defer metrics.RelayConnections.Dec()

	r.log.Info(id.OrgID, "", "Relay connection opened", map[string]interface{}{
		"subject_id": id.SubjectID,
		"tier":       string(id.Tier),
	})

	s := newSession(r, conn, id)
	s.run()

	r.log.Info(id.OrgID, "", "Relay connection closed", map[string]interface{}{
		"subject_id": id.SubjectID,
	})
}

// featureForService maps an inbound service_type to the quota feature
// it consumes. Unrecognized service types bill as homework help, the
// general-assistant bucket.
func featureForService(serviceType string) types.QuotaFeature {
	switch serviceType {
	case "lesson_planning", "lesson_generation":
		return types.FeatureLessonGeneration
	case "grading", "grading_assistance":
		return types.FeatureGradingAssistance
	case "transcription":
		return types.FeatureTranscription
	default:
		return types.FeatureHomeworkHelp
	}
}

// recordUsage persists a completed call. Best-effort: the turn has
// already finished from the client's point of view.
func (r *Relay) recordUsage(id types.Identity, feature types.QuotaFeature, resp *llm.CompletionResponse) {
	if r.recorder == nil || resp == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = r.recorder.RecordAICall(ctx, usage.AICallEvent{
		OrgID:            id.OrgID,
		SubjectID:        id.SubjectID,
		Feature:          feature,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		LatencyMs:        resp.Latency.Milliseconds(),
	})
}
