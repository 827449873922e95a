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
	"database/sql"
	"fmt"

	"brightclass/aicore/llm"
	"brightclass/aicore/shared/types"
)

// RegisterBuiltins registers the built-in school tools. db backs the
// data-query tools; provider backs the generation tools.
func RegisterBuiltins(r *Registry, db *sql.DB, provider llm.Provider) {
	r.Register(&studentProgressTool{db: db})
	r.Register(&attendanceSummaryTool{db: db})
	r.Register(&lessonOutlineTool{provider: provider})
}

// studentProgressTool returns a learner's recent subject averages, scoped
// to the caller's organization so one school can never query another's
// learners.
type studentProgressTool struct {
	db *sql.DB
}

func (t *studentProgressTool) Definition() Definition {
	return Definition{
		ID:          "student_progress",
		Description: "Look up a student's recent marks and subject averages.",
		Category:    CategoryAcademic,
		Risk:        RiskMedium,
		AllowedRoles: []types.Role{
			types.RoleTeacher, types.RolePrincipal, types.RoleAdmin,
		},
		Params: []ParamSpec{
			{Name: "student_id", Type: ParamString, Required: true, MaxLength: 64},
			{Name: "subject", Type: ParamString, Enum: []string{
				"mathematics", "science", "languages", "social_studies",
			}},
		},
	}
}

type subjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Entries int     `json:"entries"`
}

func (t *studentProgressTool) Execute(ctx context.Context, params map[string]any, ec ExecutionContext) (any, error) {
	studentID := params["student_id"].(string)

	query := `
		SELECT subject, AVG(mark), COUNT(*)
		FROM student_marks
		WHERE org_id = $1 AND student_id = $2`
	args := []any{ec.OrgID, studentID}

	if subject, ok := params["subject"].(string); ok {
		query += ` AND subject = $3`
		args = append(args, subject)
	}
	query += ` GROUP BY subject ORDER BY subject`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query marks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var averages []subjectAverage
	for rows.Next() {
		var avg subjectAverage
		if err := rows.Scan(&avg.Subject, &avg.Average, &avg.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan mark row: %w", err)
		}
		averages = append(averages, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read marks: %w", err)
	}

	return map[string]any{
		"student_id": studentID,
		"subjects":   averages,
	}, nil
}

// attendanceSummaryTool aggregates attendance for one class and month.
type attendanceSummaryTool struct {
	db *sql.DB
}

func (t *attendanceSummaryTool) Definition() Definition {
	return Definition{
		ID:          "attendance_summary",
		Description: "Summarise attendance for a class over one month.",
		Category:    CategoryAdministration,
		Risk:        RiskLow,
		AllowedRoles: []types.Role{
			types.RoleTeacher, types.RolePrincipal, types.RoleAdmin,
		},
		Params: []ParamSpec{
			{Name: "class_id", Type: ParamString, Required: true, MaxLength: 64},
			{Name: "month", Type: ParamString, Required: true, Pattern: `^\d{4}-\d{2}$`},
		},
	}
}

func (t *attendanceSummaryTool) Execute(ctx context.Context, params map[string]any, ec ExecutionContext) (any, error) {
	classID := params["class_id"].(string)
	month := params["month"].(string)

	var present, absent, late int
	err := t.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance
		WHERE org_id = $1 AND class_id = $2 AND to_char(day, 'YYYY-MM') = $3
	`, ec.OrgID, classID, month).Scan(&present, &absent, &late)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise attendance: %w", err)
	}

	return map[string]any{
		"class_id": classID,
		"month":    month,
		"present":  present,
		"absent":   absent,
		"late":     late,
	}, nil
}

// lessonOutlineTool drafts a lesson outline with the upstream model.
// Premium feature: gated to the premium tier and above.
type lessonOutlineTool struct {
	provider llm.Provider
}

func (t *lessonOutlineTool) Definition() Definition {
	min, max := 1.0, 12.0
	return Definition{
		ID:          "lesson_outline",
		Description: "Draft a lesson outline for a topic and grade level.",
		Category:    CategoryAcademic,
		Risk:        RiskLow,
		AllowedRoles: []types.Role{
			types.RoleTeacher, types.RolePrincipal, types.RoleAdmin,
		},
		RequiredTier: types.TierPremium,
		Params: []ParamSpec{
			{Name: "topic", Type: ParamString, Required: true, MaxLength: 200},
			{Name: "grade", Type: ParamNumber, Required: true, Min: &min, Max: &max},
		},
	}
}

func (t *lessonOutlineTool) Execute(ctx context.Context, params map[string]any, ec ExecutionContext) (any, error) {
	topic := params["topic"].(string)
	grade, _ := toNumber(params["grade"])

	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You are a curriculum assistant. Produce a concise lesson outline with objectives, activities, and an assessment idea.",
		Prompt:       fmt.Sprintf("Draft a lesson outline on %q for grade %d.", topic, int(grade)),
		Model:        llm.ModelForTier(ec.Tier),
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	return map[string]any{
		"topic":   topic,
		"grade":   int(grade),
		"outline": resp.Content,
		"model":   resp.Model,
	}, nil
}
