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

// Package usage records completed AI calls so the quota manager's monthly
// counters stay current. Recording is best-effort: failures are logged
// and never block a response.
package usage

import (
	"context"
	"database/sql"
	"time"

	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
)

// Recorder writes usage events to the database.
type Recorder struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// NewRecorder creates a usage recorder over a database handle.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{
		db:  db,
		log: logger.New("usage"),
		now: time.Now,
	}
}

// AICallEvent represents one completed AI call to be recorded.
type AICallEvent struct {
	OrgID            string
	SubjectID        string
	Feature          types.QuotaFeature
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMs        int64
}

// RecordAICall appends a usage row for the caller's current month. The
// quota store sums these rows per (subject, feature, month).
func (r *Recorder) RecordAICall(ctx context.Context, event AICallEvent) error {
	month := r.now().UTC().Format("2006-01")

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feature_usage (
			org_id, subject_id, feature, month, count,
			model, prompt_tokens, completion_tokens, latency_ms
		) VALUES ($1, $2, $3, $4, 1, $5, $6, $7, $8)
	`, event.OrgID, event.SubjectID, string(event.Feature), month,
		event.Model, event.PromptTokens, event.CompletionTokens, event.LatencyMs)

	if err != nil {
		r.log.ErrorWithErr(event.OrgID, "", "Failed to record AI call", err, map[string]interface{}{
			"subject_id": event.SubjectID,
			"feature":    string(event.Feature),
		})
	}

	return err
}
