// Package orchestrator implements the per-task perceive-plan-act loop: it
// asks the Planner for the next step, validates the proposed action
// against the ToolRegistry, executes it, and updates task/step state,
// emitting lifecycle events at every transition. Grounded on the
// Prep/Exec/Post staging and iteration-cap idiom of a generic flow engine,
// generalized here into one fixed loop instead of a reusable framework.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/executor"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/memory"
	"github.com/pocketomega/pocket-omega/internal/policy"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

const recentMemoryForPrompt = 16

// Orchestrator runs the perceive-plan-act loop for a single task. It holds
// no per-task state of its own: Task/Step mutation is the Runtime store's
// job, reached here only through the TaskStore capability interface so the
// orchestrator package never imports the runtime package (see the cyclic
// graph note this design resolves).
type Orchestrator struct {
	planner  llm.Planner
	executor executor.Executor
	registry *tool.Registry
	memory   *memory.Store
	policy   policy.Policy
	emitter  agentcore.Emitter
	store    TaskStore
}

// TaskStore is the subset of Runtime storage operations the Orchestrator
// needs to mutate a task's visible state. Implemented by runtime.Runtime;
// declared here (consumer side) to avoid an orchestrator->runtime import.
type TaskStore interface {
	MutateTask(taskID string, fn func(*agentcore.Task)) (agentcore.Task, bool)
}

// New constructs an Orchestrator. All dependencies are passed explicitly
// (constructor-time capability handles) rather than looked up from globals.
func New(planner llm.Planner, exec executor.Executor, registry *tool.Registry, mem *memory.Store, pol policy.Policy, emitter agentcore.Emitter, store TaskStore) *Orchestrator {
	return &Orchestrator{
		planner:  planner,
		executor: exec,
		registry: registry,
		memory:   mem,
		policy:   pol,
		emitter:  emitter,
		store:    store,
	}
}

// Run executes the full perceive-plan-act loop for taskID up to
// policy.MaxSteps iterations. It never returns a Go error to the caller in
// the steady-state case: all failures are folded into a terminal `failed`
// transition on the task, so the Runtime scheduler can release capacity
// unconditionally. A non-nil error return indicates taskID was not found
// in the store, which the Runtime treats as a programming error.
func (o *Orchestrator) Run(ctx context.Context, taskID string) error {
	task, ok := o.store.MutateTask(taskID, func(t *agentcore.Task) {
		t.Status = agentcore.TaskRunning
		t.UpdatedAt = time.Now()
	})
	if !ok {
		return fmt.Errorf("orchestrator: task %q not found", taskID)
	}
	o.emit(agentcore.EventTaskStarted, agentcore.TaskIDPayload{TaskID: taskID})

	for stepCount := 0; stepCount < o.policy.MaxSteps; stepCount++ {
		task, ok = o.store.MutateTask(taskID, func(*agentcore.Task) {})
		if !ok {
			return fmt.Errorf("orchestrator: task %q disappeared mid-run", taskID)
		}

		plan, err := o.plan(ctx, task, stepCount)
		if err != nil {
			o.fail(taskID, err.Error())
			return nil
		}

		if plan.Caution != "" {
			o.memory.Remember(taskID, agentcore.MemoryEntry{
				Type:      agentcore.MemoryThought,
				Content:   "Safety note: " + plan.Caution,
				Timestamp: time.Now(),
			})
		}

		if plan.Finish != nil {
			o.finish(taskID, *plan.Finish)
			return nil
		}

		if plan.Action == nil {
			o.fail(taskID, "planner returned neither action nor finish")
			return nil
		}

		validation := o.registry.Validate(*plan.Action)
		if !validation.OK {
			o.fail(taskID, fmt.Sprintf("invalid action: %v", validation.Issues))
			return nil
		}

		step := o.createStep(taskID, *plan.Action, plan.Thought)

		o.memory.Remember(taskID, agentcore.MemoryEntry{
			Type:      agentcore.MemoryAction,
			Content:   fmt.Sprintf("%s %v", plan.Action.Type, plan.Action.Params),
			Timestamp: time.Now(),
		})
		o.emit(agentcore.EventStepExecuting, agentcore.StepPayload{TaskID: taskID, Step: step})

		result, execErr := o.execute(ctx, task, step, *plan.Action)
		if execErr != nil {
			o.recordErrorObservation(taskID, execErr)
			o.emit(agentcore.EventTaskError, agentcore.TaskFailedPayload{TaskID: taskID, Error: execErr.Error()})
			o.fail(taskID, execErr.Error())
			return nil
		}

		step = o.finalizeStep(taskID, step.ID, result.Observation)

		if result.DidTerminate {
			summary := result.Summary
			if summary == "" {
				summary = o.memory.Summarise(task, result.Observation)
			}
			if result.Observation.Result == agentcore.ObservationSuccess {
				o.finish(taskID, agentcore.Finish{Status: agentcore.FinishSuccess, Summary: summary})
			} else {
				o.finish(taskID, agentcore.Finish{Status: agentcore.FinishFailed, Summary: summary})
			}
			return nil
		}
	}

	obs := agentcore.Observation{Result: agentcore.ObservationError, Message: "Max step count reached without completion."}
	summary := o.memory.Summarise(task, obs)
	o.finish(taskID, agentcore.Finish{Status: agentcore.FinishFailed, Summary: summary})
	return nil
}

func (o *Orchestrator) plan(ctx context.Context, task agentcore.Task, stepCount int) (agentcore.PlanOutput, error) {
	o.emit(agentcore.EventPlanningStarted, agentcore.TaskIDPayload{TaskID: task.ID})

	recent := o.memory.GetRecent(task.ID, recentMemoryForPrompt)
	req := llm.Request{
		Task:                task,
		RecentMemory:        recent,
		Tools:               o.registry.List(),
		StepCount:           stepCount,
		BlockedOrigins:      o.policy.BlockedOrigins,
		RestrictedSelectors: o.policy.RestrictedSelectors,
	}

	plan, err := o.planner.Plan(ctx, req)
	if err != nil {
		return agentcore.PlanOutput{}, err
	}

	o.memory.Remember(task.ID, agentcore.MemoryEntry{
		Type:      agentcore.MemoryThought,
		Content:   plan.Thought,
		Timestamp: time.Now(),
	})
	o.emit(agentcore.EventPlanningFinished, agentcore.PlanningFinishedPayload{
		TaskID:  task.ID,
		Thought: plan.Thought,
		Action:  plan.Action,
		Finish:  plan.Finish,
	})
	return plan, nil
}

func (o *Orchestrator) execute(ctx context.Context, task agentcore.Task, step agentcore.Step, action agentcore.Action) (executor.Result, error) {
	if result, blocked := executor.CheckSafety(o.policy, action); blocked {
		return result, nil
	}
	return o.executor.Execute(ctx, executor.Request{Task: task, Step: step, Action: action})
}

func (o *Orchestrator) createStep(taskID string, action agentcore.Action, thought string) agentcore.Step {
	now := time.Now()
	step := agentcore.Step{
		ID:           uuid.NewString(),
		Status:       agentcore.StepRunning,
		Action:       action,
		ModelThought: thought,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.store.MutateTask(taskID, func(t *agentcore.Task) {
		step.Index = len(t.Steps)
		t.Steps = append(t.Steps, step)
		t.UpdatedAt = now
	})
	o.emit(agentcore.EventStepCreated, agentcore.StepPayload{TaskID: taskID, Step: step})
	return step
}

func (o *Orchestrator) finalizeStep(taskID, stepID string, observation agentcore.Observation) agentcore.Step {
	var finalized agentcore.Step
	now := time.Now()
	o.store.MutateTask(taskID, func(t *agentcore.Task) {
		for i := range t.Steps {
			if t.Steps[i].ID == stepID {
				if observation.Result == agentcore.ObservationSuccess {
					t.Steps[i].Status = agentcore.StepSucceeded
				} else {
					t.Steps[i].Status = agentcore.StepFailed
				}
				t.Steps[i].Observation = &observation
				t.Steps[i].UpdatedAt = now
				finalized = t.Steps[i]
				break
			}
		}
		t.UpdatedAt = now
	})

	prefix := "SUCCESS: "
	if observation.Result != agentcore.ObservationSuccess {
		prefix = "ERROR: "
	}
	o.memory.Remember(taskID, agentcore.MemoryEntry{
		Type:      agentcore.MemoryObservation,
		Content:   prefix + observation.Message,
		Timestamp: now,
		Metadata:  observation.Data,
	})
	o.emit(agentcore.EventStepUpdated, agentcore.StepPayload{TaskID: taskID, Step: finalized})
	return finalized
}

func (o *Orchestrator) recordErrorObservation(taskID string, err error) {
	o.memory.Remember(taskID, agentcore.MemoryEntry{
		Type:      agentcore.MemoryObservation,
		Content:   "ERROR: " + err.Error(),
		Timestamp: time.Now(),
	})
}

// finish transitions task to its terminal state per the finish outcome and
// emits the matching completion event.
func (o *Orchestrator) finish(taskID string, f agentcore.Finish) {
	now := time.Now()
	if f.Status == agentcore.FinishSuccess {
		o.store.MutateTask(taskID, func(t *agentcore.Task) {
			t.Status = agentcore.TaskSucceeded
			t.Summary = f.Summary
			t.UpdatedAt = now
		})
		o.memory.Remember(taskID, agentcore.MemoryEntry{Type: agentcore.MemorySummary, Content: f.Summary, Timestamp: now})
		o.emit(agentcore.EventTaskCompleted, agentcore.TaskCompletedPayload{TaskID: taskID, Summary: f.Summary})
		return
	}

	o.store.MutateTask(taskID, func(t *agentcore.Task) {
		t.Status = agentcore.TaskFailed
		t.LastError = f.Summary
		t.Summary = f.Summary
		t.UpdatedAt = now
	})
	o.memory.Remember(taskID, agentcore.MemoryEntry{Type: agentcore.MemorySummary, Content: f.Summary, Timestamp: now})
	o.emit(agentcore.EventTaskFailed, agentcore.TaskFailedPayload{TaskID: taskID, Error: f.Summary})
}

// fail is a convenience wrapper around finish for in-loop errors that do
// not originate from a planner-declared finish.
func (o *Orchestrator) fail(taskID, message string) {
	o.finish(taskID, agentcore.Finish{Status: agentcore.FinishFailed, Summary: message})
}

func (o *Orchestrator) emit(eventType string, payload any) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(agentcore.Event{Type: eventType, Payload: payload})
}
