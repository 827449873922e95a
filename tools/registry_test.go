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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brightclass/aicore/shared/types"
)

// spyTool records whether Execute was invoked.
type spyTool struct {
	def      Definition
	called   bool
	result   any
	err      error
	panicMsg string
}

func (s *spyTool) Definition() Definition { return s.def }

func (s *spyTool) Execute(ctx context.Context, params map[string]any, ec ExecutionContext) (any, error) {
	s.called = true
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.result, s.err
}

func basicTool(id string) *spyTool {
	return &spyTool{
		def: Definition{
			ID:           id,
			Category:     CategoryAcademic,
			Risk:         RiskLow,
			AllowedRoles: []types.Role{types.RoleTeacher},
		},
		result: "ok",
	}
}

func teacherCtx(tier types.Tier) ExecutionContext {
	return ExecutionContext{
		Identity: types.Identity{
			SubjectID: "teacher-1",
			OrgID:     "org-1",
			Role:      types.RoleTeacher,
			Tier:      tier,
		},
		RequestID: "req-1",
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "nope", nil, teacherCtx(types.TierBasic))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
}

func TestExecuteGuestAlwaysDenied(t *testing.T) {
	r := NewRegistry()
	for _, risk := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		tool := basicTool("tool_" + string(risk))
		tool.def.Risk = risk
		r.Register(tool)
	}

	ec := teacherCtx(types.TierEnterprise)
	ec.Guest = true

	for _, id := range []string{"tool_low", "tool_medium", "tool_high"} {
		result := r.Execute(context.Background(), id, nil, ec)
		assert.False(t, result.Success, "guest must be denied for %s", id)
		assert.Contains(t, result.Error, "guests")
	}
}

func TestExecuteRoleDenied(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("teachers_only")
	r.Register(tool)

	ec := teacherCtx(types.TierBasic)
	ec.Role = types.RoleStudent

	result := r.Execute(context.Background(), "teachers_only", nil, ec)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "teacher", "denial must name the required roles")
	assert.False(t, tool.called)
}

func TestExecuteTierDenied(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("premium_tool")
	tool.def.RequiredTier = types.TierPremium
	r.Register(tool)

	// starter is below premium: denied with an upgrade hint.
	result := r.Execute(context.Background(), "premium_tool", nil, teacherCtx(types.TierStarter))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "upgrade")
	assert.False(t, tool.called)

	// premium and above are not denied for tier reasons.
	for _, tier := range []types.Tier{types.TierPremium, types.TierPro, types.TierEnterprise} {
		result = r.Execute(context.Background(), "premium_tool", nil, teacherCtx(tier))
		assert.True(t, result.Success, "tier %s should pass", tier)
	}
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("needs_param")
	tool.def.Params = []ParamSpec{{Name: "student_id", Type: ParamString, Required: true}}
	r.Register(tool)

	result := r.Execute(context.Background(), "needs_param", map[string]any{}, teacherCtx(types.TierBasic))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "student_id")
	assert.False(t, tool.called, "execute must never run on validation failure")
}

func TestParamValidation(t *testing.T) {
	min, max := 1.0, 12.0
	specs := []ParamSpec{
		{Name: "name", Type: ParamString, Required: true, MaxLength: 5},
		{Name: "grade", Type: ParamNumber, Min: &min, Max: &max},
		{Name: "active", Type: ParamBoolean},
		{Name: "tags", Type: ParamArray},
		{Name: "meta", Type: ParamObject},
		{Name: "subject", Type: ParamString, Enum: []string{"math", "science"}},
		{Name: "month", Type: ParamString, Pattern: `^\d{4}-\d{2}$`},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"valid minimal", map[string]any{"name": "amy"}, ""},
		{"wrong type", map[string]any{"name": 7}, "type string"},
		{"too long", map[string]any{"name": "abcdefgh"}, "max length"},
		{"below min", map[string]any{"name": "a", "grade": 0.0}, "minimum"},
		{"above max", map[string]any{"name": "a", "grade": 13.0}, "maximum"},
		{"int accepted as number", map[string]any{"name": "a", "grade": 7}, ""},
		{"bool ok", map[string]any{"name": "a", "active": true}, ""},
		{"array is not object", map[string]any{"name": "a", "meta": []any{"x"}}, "type object"},
		{"object is not array", map[string]any{"name": "a", "tags": map[string]any{}}, "type array"},
		{"array ok", map[string]any{"name": "a", "tags": []any{"x"}}, ""},
		{"enum member", map[string]any{"name": "a", "subject": "math"}, ""},
		{"enum violation", map[string]any{"name": "a", "subject": "art"}, "one of"},
		{"pattern match", map[string]any{"name": "a", "month": "2026-08"}, ""},
		{"pattern violation", map[string]any{"name": "a", "month": "aug-26"}, "pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateParams(specs, tt.params)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExecuteCapturesToolError(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("flaky")
	tool.err = errors.New("backend exploded")
	r.Register(tool)

	result := r.Execute(context.Background(), "flaky", nil, teacherCtx(types.TierBasic))
	assert.False(t, result.Success)
	assert.Equal(t, "backend exploded", result.Error)
}

func TestExecuteCapturesPanic(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("bomb")
	tool.panicMsg = "boom"
	r.Register(tool)

	result := r.Execute(context.Background(), "bomb", nil, teacherCtx(types.TierBasic))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestStatsSuccessRate(t *testing.T) {
	r := NewRegistry()
	r.Register(basicTool("good"))

	assert.Equal(t, 0.0, r.Stats().SuccessRate, "success rate must be 0 before any executions")

	ec := teacherCtx(types.TierBasic)
	for i := 0; i < 4; i++ {
		result := r.Execute(context.Background(), "good", nil, ec)
		require.True(t, result.Success)
	}

	stats := r.Stats()
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.Len(t, stats.RecentExecutions, 4)

	// Pre-execution denials do not dilute the rate.
	ec.Guest = true
	r.Execute(context.Background(), "good", nil, ec)
	assert.Equal(t, 1.0, r.Stats().SuccessRate)
}

func TestStatsCounts(t *testing.T) {
	r := NewRegistry()
	a := basicTool("a")
	a.def.Category = CategoryAcademic
	a.def.Risk = RiskLow
	b := basicTool("b")
	b.def.Category = CategoryAdministration
	b.def.Risk = RiskHigh
	r.Register(a)
	r.Register(b)

	stats := r.Stats()
	assert.Equal(t, 2, stats.TotalTools)
	assert.Equal(t, 1, stats.ToolsByCategory[CategoryAcademic])
	assert.Equal(t, 1, stats.ToolsByCategory[CategoryAdministration])
	assert.Equal(t, 1, stats.ToolsByRisk[RiskHigh])
}

func TestReRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	first := basicTool("dup")
	second := basicTool("dup")
	second.result = "second"

	r.Register(first)
	r.Register(second)

	result := r.Execute(context.Background(), "dup", nil, teacherCtx(types.TierBasic))
	require.True(t, result.Success)
	assert.Equal(t, "second", result.Data)
	assert.Equal(t, 1, r.Stats().TotalTools)
}

func TestAvailableFiltersRoleAndTier(t *testing.T) {
	r := NewRegistry()
	open := basicTool("a_open")
	gated := basicTool("b_gated")
	gated.def.RequiredTier = types.TierPro
	studentsOnly := basicTool("c_students")
	studentsOnly.def.AllowedRoles = []types.Role{types.RoleStudent}
	r.Register(open)
	r.Register(gated)
	r.Register(studentsOnly)

	available := r.Available(types.RoleTeacher, types.TierBasic)
	require.Len(t, available, 1)
	assert.Equal(t, "a_open", available[0].Definition().ID)

	available = r.Available(types.RoleTeacher, types.TierPro)
	require.Len(t, available, 2)
	assert.Equal(t, "a_open", available[0].Definition().ID)
	assert.Equal(t, "b_gated", available[1].Definition().ID)
}

func TestModelDefinitions(t *testing.T) {
	r := NewRegistry()
	tool := basicTool("outline")
	tool.def.Description = "Draft an outline."
	tool.def.Params = []ParamSpec{
		{Name: "topic", Type: ParamString, Required: true},
		{Name: "subject", Type: ParamString, Enum: []string{"math"}},
	}
	r.Register(tool)

	defs := r.ModelDefinitions(types.RoleTeacher, types.TierBasic)
	require.Len(t, defs, 1)
	assert.Equal(t, "outline", defs[0].Name)
	assert.Equal(t, "object", defs[0].InputSchema.Type)
	assert.Equal(t, []string{"topic"}, defs[0].InputSchema.Required)
	assert.Equal(t, "string", defs[0].InputSchema.Properties["topic"].Type)
	assert.Equal(t, []string{"math"}, defs[0].InputSchema.Properties["subject"].Enum)
}
