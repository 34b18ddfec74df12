// Package executor implements the Executor contract: performing a
// validated Action against the external world and reporting a structured
// Observation. This package holds the default (always-terminal-error)
// executor and the safety-policy enforcement shared by any real executor
// registered in its place.
package executor

import (
	"context"
	"fmt"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/policy"
)

// Request carries everything an Executor needs to perform one Action.
type Request struct {
	Task   agentcore.Task
	Step   agentcore.Step
	Action agentcore.Action
}

// Result is the Executor's structured report of performing an Action.
type Result struct {
	Observation  agentcore.Observation
	DidTerminate bool
	Summary      string
}

// Executor is the sole external contract the Orchestrator depends on to
// perform a validated Action. Implementations must not panic; any Go error
// returned is treated by the Orchestrator as ExecutorError.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// DefaultExecutor is used when the Runtime has no executor registered. It
// returns a terminal error observation for every action so tasks do not
// spin waiting on an executor that was never wired up.
type DefaultExecutor struct{}

// Execute implements Executor.
func (DefaultExecutor) Execute(_ context.Context, req Request) (Result, error) {
	return Result{
		Observation: agentcore.Observation{
			Result:  agentcore.ObservationError,
			Message: fmt.Sprintf("no executor registered to perform action %q", req.Action.Type),
		},
		DidTerminate: true,
	}, nil
}

// CheckSafety enforces the blocked-origin and restricted-selector policy
// boundaries on an action before a concrete Executor performs it. Returns
// a terminal error Result and true when the action is disallowed, and a
// zero Result and false when the action passes.
func CheckSafety(p policy.Policy, action agentcore.Action) (Result, bool) {
	switch action.Type {
	case "navigate":
		if url, ok := action.Params["url"].(string); ok && p.IsBlockedOrigin(url) {
			return Result{
				Observation: agentcore.Observation{
					Result:  agentcore.ObservationError,
					Message: fmt.Sprintf("navigation to %q blocked by safety policy", url),
				},
				DidTerminate: true,
			}, true
		}
	case "click", "type":
		if selector, ok := action.Params["selector"].(string); ok && p.IsRestrictedSelector(selector) {
			return Result{
				Observation: agentcore.Observation{
					Result:  agentcore.ObservationError,
					Message: fmt.Sprintf("selector %q is restricted by safety policy", selector),
				},
				DidTerminate: true,
			}, true
		}
	}
	return Result{}, false
}
