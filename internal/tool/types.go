// Package tool holds the canonical catalog of action kinds the planner may
// invoke, their parameter schemas, and the validator that checks a
// planner-proposed Action's shape before a Step is created.
package tool

import (
	"sort"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
)

// ParamSpec describes one parameter of a tool's schema.
type ParamSpec struct {
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// ExecutionMeta describes how invoking a tool behaves at runtime.
type ExecutionMeta struct {
	InvokesExecutor   bool `json:"invokesExecutor"`
	ExpectedLatencyMs int  `json:"expectedLatencyMs"`
}

// Definition is the catalog entry for one action kind: its name,
// human-readable description, parameter schema, execution metadata, and
// any safety notes surfaced to the planner prompt.
type Definition struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Schema      map[string]ParamSpec `json:"schema"`
	Execution   ExecutionMeta        `json:"execution"`
	SafetyNotes []string             `json:"safetyNotes,omitempty"`
}

// ValidationResult is the outcome of validating an Action's shape against
// its Definition's schema.
type ValidationResult struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues,omitempty"`
}

// requiredParams returns the parameter names marked required in the schema,
// sorted for deterministic issue-message ordering.
func (d Definition) requiredParams() []string {
	var req []string
	for name, spec := range d.Schema {
		if spec.Required {
			req = append(req, name)
		}
	}
	sort.Strings(req)
	return req
}

// paramPresent reports whether action.Params carries a non-null value for
// name. A present-but-nil value (explicit JSON null) counts as absent, per
// spec.md §4.A.
func paramPresent(action agentcore.Action, name string) bool {
	v, ok := action.Params[name]
	return ok && v != nil
}
