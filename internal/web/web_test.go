package web

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/eventhub"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

type fakeRuntime struct {
	tasks      map[string]agentcore.Task
	createErr  error
	createdTask agentcore.Task
}

func (f *fakeRuntime) CreateTask(goal string, taskCtx *agentcore.TaskContext) (agentcore.Task, error) {
	if f.createErr != nil {
		return agentcore.Task{}, f.createErr
	}
	return f.createdTask, nil
}

func (f *fakeRuntime) GetTask(id string) (agentcore.Task, bool) {
	t, ok := f.tasks[id]
	return t, ok
}

func (f *fakeRuntime) ListTasks() []agentcore.Task {
	out := make([]agentcore.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out
}

func (f *fakeRuntime) UpdateTaskContext(id string, patch agentcore.TaskContext) (agentcore.Task, bool) {
	t, ok := f.tasks[id]
	if !ok {
		return agentcore.Task{}, false
	}
	return t, true
}

type fakeTools struct{ defs []tool.Definition }

func (f fakeTools) List() []tool.Definition { return f.defs }

type fakeSnapshotSource struct{}

func (fakeSnapshotSource) ListTasks() []agentcore.Task  { return nil }
func (fakeSnapshotSource) ListTools() []tool.Definition { return nil }

func newTestServer(rt *fakeRuntime, tools fakeTools) *Server {
	hub := eventhub.New(fakeSnapshotSource{})
	return NewServer(rt, tools, hub)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeRuntime{}, fakeTools{})
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleListTools(t *testing.T) {
	s := newTestServer(&fakeRuntime{}, fakeTools{defs: []tool.Definition{{Name: "navigate"}}})
	req := httptest.NewRequest("GET", "/tools", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var got []tool.Definition
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Name != "navigate" {
		t.Errorf("got %+v, want one tool named navigate", got)
	}
}

func TestHandleCreateTaskSuccess(t *testing.T) {
	rt := &fakeRuntime{createdTask: agentcore.Task{ID: "t1", Goal: "book a flight"}}
	s := newTestServer(rt, fakeTools{})

	body, _ := json.Marshal(createTaskRequest{Goal: "book a flight"})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 201 {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	var got agentcore.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("ID = %q, want t1", got.ID)
	}
}

func TestHandleCreateTaskValidationErrorMapsTo400(t *testing.T) {
	rt := &fakeRuntime{createErr: agentcore.NewError(agentcore.KindValidation, "goal must not be empty")}
	s := newTestServer(rt, fakeTools{})

	body, _ := json.Marshal(createTaskRequest{Goal: ""})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCreateTaskConfigErrorMapsTo400(t *testing.T) {
	rt := &fakeRuntime{createErr: agentcore.NewError(agentcore.KindConfig, "planner is not configured")}
	s := newTestServer(rt, fakeTools{})

	body, _ := json.Marshal(createTaskRequest{Goal: "do something"})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCreateTaskMalformedBodyIs400(t *testing.T) {
	s := newTestServer(&fakeRuntime{}, fakeTools{})
	req := httptest.NewRequest("POST", "/tasks", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	s := newTestServer(&fakeRuntime{tasks: map[string]agentcore.Task{}}, fakeTools{})
	req := httptest.NewRequest("GET", "/tasks/unknown", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleGetTaskFound(t *testing.T) {
	rt := &fakeRuntime{tasks: map[string]agentcore.Task{"t1": {ID: "t1", Goal: "g"}}}
	s := newTestServer(rt, fakeTools{})
	req := httptest.NewRequest("GET", "/tasks/t1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleListTasks(t *testing.T) {
	rt := &fakeRuntime{tasks: map[string]agentcore.Task{"t1": {ID: "t1"}, "t2": {ID: "t2"}}}
	s := newTestServer(rt, fakeTools{})
	req := httptest.NewRequest("GET", "/tasks", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var got []agentcore.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(got) = %d, want 2", len(got))
	}
}
