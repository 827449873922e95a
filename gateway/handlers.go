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

package gateway

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"brightclass/aicore/auth"
	"brightclass/aicore/quota"
	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
	"brightclass/aicore/tools"
)

type server struct {
	log      *logger.Logger
	db       *sql.DB
	verifier *auth.Verifier
	quotas   *quota.Manager
	registry *tools.Registry
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "brightclass-ai-gateway",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// identify authenticates the request or writes a 401.
func (s *server) identify(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	id, err := s.verifier.VerifyRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return types.Identity{}, false
	}
	return id, true
}

func (s *server) listToolsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identify(w, r)
	if !ok {
		return
	}

	available := s.registry.Available(id.Role, id.Tier)
	defs := make([]tools.Definition, 0, len(available))
	for _, tool := range available {
		defs = append(defs, tool.Definition())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": defs})
}

type executeToolRequest struct {
	Params map[string]interface{} `json:"params"`
}

func (s *server) executeToolHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identify(w, r)
	if !ok {
		return
	}

	var req executeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	toolID := mux.Vars(r)["id"]
	result := s.registry.Execute(r.Context(), toolID, req.Params, tools.ExecutionContext{
		Identity:  id,
		RequestID: uuid.New().String(),
	})

	code := http.StatusOK
	if !result.Success {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, result)
}

func (s *server) toolStatsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identify(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

func (s *server) quotaStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identify(w, r)
	if !ok {
		return
	}

	limits := s.quotas.EffectiveLimits(r.Context(), id)
	features := types.AllFeatures()
	statuses := make(map[string]quota.Status, len(features))
	for _, feature := range features {
		statuses[string(feature)] = s.quotas.Status(r.Context(), id, feature)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limits":   limits,
		"features": statuses,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
