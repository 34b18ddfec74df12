package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/memory"
	"github.com/pocketomega/pocket-omega/internal/policy"
)

// fakeOrchestrator lets tests control exactly when a task's Run finishes,
// so scheduler behavior (FIFO order, parallelism cap) can be observed
// deterministically.
type fakeOrchestrator struct {
	rt       *Runtime
	release  <-chan struct{}
	started  chan<- string
	behavior func(rt *Runtime, taskID string)
}

func (f *fakeOrchestrator) Run(_ context.Context, taskID string) error {
	if f.started != nil {
		f.started <- taskID
	}
	if f.release != nil {
		<-f.release
	}
	if f.behavior != nil {
		f.behavior(f.rt, taskID)
	} else {
		f.rt.MutateTask(taskID, func(t *agentcore.Task) {
			t.Status = agentcore.TaskSucceeded
			t.Summary = "done"
		})
	}
	return nil
}

func newTestRuntime(t *testing.T, maxParallel int, factory OrchestratorFactory) *Runtime {
	t.Helper()
	rt := New(Config{
		Policy:          policy.Policy{MaxSteps: 10, MaxParallelTasks: maxParallel, MaxWaitMs: 1000},
		Planner:         fakePlanner{},
		Registry:        nil,
		Memory:          memory.NewStore(),
		Emitter:         nil,
		NewOrchestrator: factory,
	})
	return rt
}

type fakePlanner struct{}

func (fakePlanner) Plan(ctx context.Context, req llm.Request) (agentcore.PlanOutput, error) {
	return agentcore.PlanOutput{}, nil
}

func TestCreateTaskRejectsEmptyGoal(t *testing.T) {
	rt := newTestRuntime(t, 1, func(rt *Runtime) Orchestrator { return &fakeOrchestrator{rt: rt} })
	_, err := rt.CreateTask("   ", nil)
	if err == nil {
		t.Fatal("expected error for empty goal")
	}
}

func TestCreateTaskRejectsNoPlanner(t *testing.T) {
	rt := New(Config{
		Policy:          policy.Policy{MaxSteps: 10, MaxParallelTasks: 1},
		Memory:          memory.NewStore(),
		NewOrchestrator: func(rt *Runtime) Orchestrator { return &fakeOrchestrator{rt: rt} },
	})
	_, err := rt.CreateTask("do something", nil)
	if err == nil {
		t.Fatal("expected error when planner is unconfigured")
	}
}

func TestParallelismCapRespected(t *testing.T) {
	var running int32
	var maxObserved int32
	release := make(chan struct{})

	factory := func(rt *Runtime) Orchestrator {
		return &fakeOrchestrator{
			rt:      rt,
			release: release,
			behavior: func(rt *Runtime, taskID string) {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				rt.MutateTask(taskID, func(t *agentcore.Task) { t.Status = agentcore.TaskSucceeded })
			},
		}
	}

	rt := newTestRuntime(t, 2, factory)
	for i := 0; i < 5; i++ {
		if _, err := rt.CreateTask("goal", nil); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		allDone := true
		for _, task := range rt.ListTasks() {
			if task.Status != agentcore.TaskSucceeded {
				allDone = false
			}
		}
		if allDone {
			break
		}
		select {
		case <-deadline:
			t.Fatal("tasks did not complete in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if atomic.LoadInt32(&maxObserved) > 2 {
		t.Errorf("observed %d concurrent tasks, want <= 2", maxObserved)
	}
}

func TestFIFOOrderPreserved(t *testing.T) {
	var mu sync.Mutex
	var order []string
	release := make(chan struct{})

	factory := func(rt *Runtime) Orchestrator {
		return &fakeOrchestrator{
			rt:      rt,
			release: release,
			behavior: func(rt *Runtime, taskID string) {
				mu.Lock()
				order = append(order, taskID)
				mu.Unlock()
				rt.MutateTask(taskID, func(t *agentcore.Task) { t.Status = agentcore.TaskSucceeded })
			},
		}
	}

	rt := newTestRuntime(t, 1, factory)
	var ids []string
	for i := 0; i < 3; i++ {
		task, err := rt.CreateTask("goal", nil)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		ids = append(ids, task.ID)
	}
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := len(order) == len(ids)
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("tasks did not complete in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range ids {
		if order[i] != id {
			t.Errorf("order[%d] = %s, want %s (FIFO violated)", i, order[i], id)
		}
	}
}

func TestListTasksReverseChronological(t *testing.T) {
	rt := newTestRuntime(t, 1, func(rt *Runtime) Orchestrator {
		return &fakeOrchestrator{rt: rt, release: closedChan()}
	})
	for i := 0; i < 3; i++ {
		if _, err := rt.CreateTask("goal", nil); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for {
		all := rt.ListTasks()
		done := true
		for _, task := range all {
			if task.Status != agentcore.TaskSucceeded {
				done = false
			}
		}
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("tasks did not complete in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	tasks := rt.ListTasks()
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].CreatedAt.Before(tasks[i].CreatedAt) {
			t.Errorf("ListTasks not reverse-chronological at index %d", i)
		}
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestForceFailOnOrchestratorPanic(t *testing.T) {
	factory := func(rt *Runtime) Orchestrator {
		return panicOrchestrator{}
	}
	rt := newTestRuntime(t, 1, factory)
	task, err := rt.CreateTask("goal", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, _ := rt.GetTask(task.ID)
		if got.Status == agentcore.TaskFailed {
			if got.LastError == "" {
				t.Error("expected lastError to be set on forced failure")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("task did not fail in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type panicOrchestrator struct{}

func (panicOrchestrator) Run(_ context.Context, _ string) error {
	panic("boom")
}
