// Package runtime owns the task store, the FIFO pending queue, and the
// bounded-parallelism scheduler that spawns an Orchestrator per running
// task, following a mutex-guarded-map-plus-defensive-copy-on-read
// discipline.
package runtime

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/executor"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/memory"
	"github.com/pocketomega/pocket-omega/internal/policy"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// Orchestrator is the subset of orchestrator.Orchestrator the Runtime
// depends on to run a task to completion. Declared on the consumer side to
// keep the runtime<->orchestrator wiring to a single direction at the
// type-signature level even though main constructs both concretely.
type Orchestrator interface {
	Run(ctx context.Context, taskID string) error
}

// OrchestratorFactory builds a fresh Orchestrator bound to this Runtime's
// store, for each task run. Runtime owns the executor and planner and
// passes them through on every call, so registerExecutor takes effect on
// the next scheduled task without reconstructing the Runtime.
type OrchestratorFactory func(rt *Runtime) Orchestrator

// Runtime is the task store, FIFO queue, and bounded-parallelism
// scheduler. It is the sole mutator of Task state visible to external
// observers (see agentcore.Task ownership note).
type Runtime struct {
	mu     sync.Mutex
	tasks  map[string]*agentcore.Task
	queue  []string
	active map[string]bool

	pol      policy.Policy
	planner  llm.Planner
	exec     executor.Executor
	registry *tool.Registry
	memory   *memory.Store
	emitter  agentcore.Emitter

	newOrchestrator OrchestratorFactory
}

// Config bundles the Runtime's constructor-time dependencies.
type Config struct {
	Policy    policy.Policy
	Planner   llm.Planner
	Registry  *tool.Registry
	Memory    *memory.Store
	Emitter   agentcore.Emitter
	NewOrchestrator OrchestratorFactory
}

// New constructs a Runtime with the default executor registered; call
// RegisterExecutor to replace it.
func New(cfg Config) *Runtime {
	return &Runtime{
		tasks:           make(map[string]*agentcore.Task),
		active:          make(map[string]bool),
		pol:             cfg.Policy,
		planner:         cfg.Planner,
		exec:            executor.DefaultExecutor{},
		registry:        cfg.Registry,
		memory:          cfg.Memory,
		emitter:         cfg.Emitter,
		newOrchestrator: cfg.NewOrchestrator,
	}
}

// CreateTask validates goal, assigns a fresh id, enqueues the task, and
// attempts to drain the queue. Rejects an empty/whitespace goal with
// KindValidation, and rejects if no Planner is configured with KindConfig.
func (r *Runtime) CreateTask(goal string, taskCtx *agentcore.TaskContext) (agentcore.Task, error) {
	if strings.TrimSpace(goal) == "" {
		return agentcore.Task{}, agentcore.NewError(agentcore.KindValidation, "goal must not be empty")
	}
	if r.planner == nil {
		return agentcore.Task{}, agentcore.NewError(agentcore.KindConfig, "planner is not configured")
	}

	now := time.Now()
	task := &agentcore.Task{
		ID:        uuid.NewString(),
		Goal:      goal,
		Status:    agentcore.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
		Context:   taskCtx,
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.queue = append(r.queue, task.ID)
	snapshot := cloneTask(task)
	r.mu.Unlock()

	r.emit(agentcore.EventTaskCreated, agentcore.TaskPayload{TaskID: task.ID, Task: snapshot})
	r.drain()
	return snapshot, nil
}

// GetTask returns a defensive copy of the task, or false if unknown.
func (r *Runtime) GetTask(id string) (agentcore.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return agentcore.Task{}, false
	}
	return cloneTask(t), true
}

// ListTasks returns all tasks, reverse-chronological by CreatedAt.
func (r *Runtime) ListTasks() []agentcore.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]agentcore.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UpdateTaskContext shallow-merges patch into the task's context and emits
// task-updated.
func (r *Runtime) UpdateTaskContext(id string, patch agentcore.TaskContext) (agentcore.Task, bool) {
	snapshot, ok := r.MutateTask(id, func(t *agentcore.Task) {
		if t.Context == nil {
			t.Context = &agentcore.TaskContext{}
		}
		if patch.URL != "" {
			t.Context.URL = patch.URL
		}
		if patch.Title != "" {
			t.Context.Title = patch.Title
		}
		if patch.Description != "" {
			t.Context.Description = patch.Description
		}
		if patch.HTMLExcerpt != "" {
			t.Context.HTMLExcerpt = patch.HTMLExcerpt
		}
	})
	if !ok {
		return agentcore.Task{}, false
	}
	r.emit(agentcore.EventTaskUpdated, agentcore.TaskPayload{TaskID: id, Task: snapshot})
	return snapshot, true
}

// RegisterExecutor replaces the executor used by subsequently scheduled
// tasks.
func (r *Runtime) RegisterExecutor(exec executor.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exec = exec
}

// MutateTask applies fn to the task under the store's lock and returns a
// defensive copy, implementing orchestrator.TaskStore. fn must not retain
// the pointer passed to it beyond the call.
func (r *Runtime) MutateTask(taskID string, fn func(*agentcore.Task)) (agentcore.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return agentcore.Task{}, false
	}
	fn(t)
	return cloneTask(t), true
}

// cloneTask deep-copies the parts of a Task that are themselves reference
// types (Steps, each Step's Observation, and Context) so a caller holding a
// returned Task never aliases the store's backing arrays. A shallow `*t`
// copy would still share Steps' backing array with the live task, letting a
// concurrent in-place mutation (e.g. the orchestrator finalizing a step)
// race with a handed-out snapshot being read or serialized elsewhere.
func cloneTask(t *agentcore.Task) agentcore.Task {
	cp := *t

	if t.Steps != nil {
		cp.Steps = make([]agentcore.Step, len(t.Steps))
		for i, step := range t.Steps {
			if step.Observation != nil {
				obs := *step.Observation
				step.Observation = &obs
			}
			cp.Steps[i] = step
		}
	}

	if t.Context != nil {
		ctx := *t.Context
		cp.Context = &ctx
	}

	return cp
}

// Executor returns the currently registered executor, for orchestrator
// construction.
func (r *Runtime) Executor() executor.Executor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exec
}

// Planner returns the configured planner, for orchestrator construction.
func (r *Runtime) Planner() llm.Planner { return r.planner }

// Registry returns the tool registry, for orchestrator construction.
func (r *Runtime) Registry() *tool.Registry { return r.registry }

// Memory returns the memory store, for orchestrator construction.
func (r *Runtime) Memory() *memory.Store { return r.memory }

// Policy returns the safety policy, for orchestrator construction.
func (r *Runtime) Policy() policy.Policy { return r.pol }

// drain pops queued tasks into active execution while capacity allows,
// maintaining strict FIFO order. Called on every enqueue and on every task
// completion.
func (r *Runtime) drain() {
	for {
		r.mu.Lock()
		if len(r.active) >= r.pol.MaxParallelTasks || len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		taskID := r.queue[0]
		r.queue = r.queue[1:]
		r.active[taskID] = true
		r.mu.Unlock()

		go r.runTask(taskID)
	}
}

// runTask spawns an Orchestrator for taskID and guarantees capacity is
// released and the task reaches a terminal state even if the Orchestrator
// panics or returns an error.
func (r *Runtime) runTask(taskID string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Runtime] orchestrator panic on task %s: %v", taskID, rec)
			r.forceFail(taskID, "internal error: orchestrator panicked")
		}
		r.mu.Lock()
		delete(r.active, taskID)
		r.mu.Unlock()
		r.drain()
	}()

	orc := r.newOrchestrator(r)
	if err := orc.Run(context.Background(), taskID); err != nil {
		log.Printf("[Runtime] orchestrator error on task %s: %v", taskID, err)
		r.forceFail(taskID, err.Error())
	}
}

// forceFail is used only when the Orchestrator itself failed to reach a
// terminal transition (panic, or Run returning a programming-error style
// Go error). Ordinary task failures are handled entirely inside the
// Orchestrator's own finish/fail logic.
func (r *Runtime) forceFail(taskID, message string) {
	snapshot, ok := r.MutateTask(taskID, func(t *agentcore.Task) {
		if t.Status == agentcore.TaskSucceeded || t.Status == agentcore.TaskFailed {
			return
		}
		t.Status = agentcore.TaskFailed
		t.LastError = message
		t.UpdatedAt = time.Now()
	})
	if ok && snapshot.Status == agentcore.TaskFailed {
		r.emit(agentcore.EventTaskFailed, agentcore.TaskFailedPayload{TaskID: taskID, Error: message})
	}
}

func (r *Runtime) emit(eventType string, payload any) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(agentcore.Event{Type: eventType, Payload: payload})
}
