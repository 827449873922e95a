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
	"regexp"
	"time"

	"brightclass/aicore/shared/types"
)

// Category groups tools for stats and discovery.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryAdministration Category = "administration"
	CategoryCommunication  Category = "communication"
)

// RiskLevel tags a tool with the blast radius of a bad invocation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParamType is the declared type of a tool parameter. Arrays and plain
// objects are distinct types.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ParamSpec declares one tool parameter and its validation rules.
type ParamSpec struct {
	Name      string    `json:"name"`
	Type      ParamType `json:"type"`
	Required  bool      `json:"required"`
	Enum      []string  `json:"enum,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	MaxLength int       `json:"max_length,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
}

// Definition is the static description of a tool: identity, authorization
// requirements, and parameter schema.
type Definition struct {
	ID           string       `json:"id"`
	Description  string       `json:"description"`
	Category     Category     `json:"category"`
	Risk         RiskLevel    `json:"risk_level"`
	AllowedRoles []types.Role `json:"allowed_roles"`
	// RequiredTier is the minimum tier rank; empty means any tier.
	RequiredTier types.Tier  `json:"required_tier,omitempty"`
	Params       []ParamSpec `json:"parameters"`
}

// AllowsRole reports whether the role may invoke the tool.
func (d Definition) AllowsRole(role types.Role) bool {
	for _, r := range d.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Tool is a structured function the model may invoke. Implementations must
// be safe for concurrent use and must respect context cancellation.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, params map[string]any, ec ExecutionContext) (any, error)
}

// ExecutionContext carries the authorization facts under which a tool
// runs. It is constructed fresh per call from the authenticated session
// and never persisted.
type ExecutionContext struct {
	types.Identity
	RequestID string
}

// Metadata describes one execution for observability.
type Metadata struct {
	ToolID        string        `json:"tool_id"`
	RequestID     string        `json:"request_id,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Result is the outcome of one tool execution. Execution failures are
// captured here rather than propagated, so one misbehaving tool never
// crashes the caller's session.
type Result struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Data     any      `json:"data,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// ModelToolDefinition is the schema shape handed to the upstream model so
// it can decide to call the tool.
type ModelToolDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema ModelInputSchema `json:"input_schema"`
}

// ModelInputSchema is a JSON-schema object describing tool input.
type ModelInputSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]ModelProperty `json:"properties"`
	Required   []string                 `json:"required,omitempty"`
}

// ModelProperty describes one input property.
type ModelProperty struct {
	Type string   `json:"type"`
	Enum []string `json:"enum,omitempty"`
}

// modelDefinition builds the model-facing schema from a Definition.
func modelDefinition(d Definition) ModelToolDefinition {
	props := make(map[string]ModelProperty, len(d.Params))
	var required []string
	for _, p := range d.Params {
		props[p.Name] = ModelProperty{Type: string(p.Type), Enum: p.Enum}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return ModelToolDefinition{
		Name:        d.ID,
		Description: d.Description,
		InputSchema: ModelInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

// validateParams checks supplied parameters against the declared specs.
// The first violation aborts with a descriptive error; nothing executes
// on a validation failure.
func validateParams(specs []ParamSpec, params map[string]any) error {
	for _, spec := range specs {
		value, present := params[spec.Name]
		if !present {
			if spec.Required {
				return fmt.Errorf("missing required parameter %q", spec.Name)
			}
			continue
		}

		if err := checkType(spec, value); err != nil {
			return err
		}

		if s, ok := value.(string); ok {
			if len(spec.Enum) > 0 && !inEnum(spec.Enum, s) {
				return fmt.Errorf("parameter %q must be one of %v, got %q", spec.Name, spec.Enum, s)
			}
			if spec.MaxLength > 0 && len(s) > spec.MaxLength {
				return fmt.Errorf("parameter %q exceeds max length %d", spec.Name, spec.MaxLength)
			}
			if spec.Pattern != "" {
				re, err := regexp.Compile(spec.Pattern)
				if err != nil {
					return fmt.Errorf("parameter %q has invalid pattern: %v", spec.Name, err)
				}
				if !re.MatchString(s) {
					return fmt.Errorf("parameter %q does not match pattern %q", spec.Name, spec.Pattern)
				}
			}
		}

		if n, ok := toNumber(value); ok {
			if spec.Min != nil && n < *spec.Min {
				return fmt.Errorf("parameter %q below minimum %v", spec.Name, *spec.Min)
			}
			if spec.Max != nil && n > *spec.Max {
				return fmt.Errorf("parameter %q above maximum %v", spec.Name, *spec.Max)
			}
		}
	}
	return nil
}

// checkType verifies the dynamic type of value against the declared
// ParamType. Arrays are distinguished from plain objects.
func checkType(spec ParamSpec, value any) error {
	ok := false
	switch spec.Type {
	case ParamString:
		_, ok = value.(string)
	case ParamNumber:
		_, ok = toNumber(value)
	case ParamBoolean:
		_, ok = value.(bool)
	case ParamArray:
		_, ok = value.([]any)
	case ParamObject:
		_, ok = value.(map[string]any)
	default:
		return fmt.Errorf("parameter %q declares unknown type %q", spec.Name, spec.Type)
	}
	if !ok {
		return fmt.Errorf("parameter %q must be of type %s", spec.Name, spec.Type)
	}
	return nil
}

// toNumber normalizes JSON and Go numeric types to float64.
func toNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func inEnum(enum []string, value string) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}
