// Package agentcore defines the shared data model for the browsing-agent
// runtime: tasks, steps, actions, observations, and the memory/event types
// threaded between the orchestrator, runtime, and event hub.
package agentcore

import "time"

// TaskStatus is the state of a Task's lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// StepStatus is the state of a single Step within a Task.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// TaskContext carries optional page context supplied on task creation or
// patched in later via updateTaskContext.
type TaskContext struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLExcerpt string `json:"htmlExcerpt,omitempty"`
}

// Action is a tagged command from the closed tool set, with parameters the
// planner supplied. Validated against the ToolRegistry before a Step is
// created.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// ObservationResult is the coarse outcome of executing an Action.
type ObservationResult string

const (
	ObservationSuccess ObservationResult = "success"
	ObservationError   ObservationResult = "error"
)

// Observation is the Executor's structured report of performing an Action.
type Observation struct {
	Result  ObservationResult `json:"result"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data,omitempty"`
}

// Step is one iteration of plan+execute within a Task.
type Step struct {
	ID           string       `json:"id"`
	Index        int          `json:"index"`
	Status       StepStatus   `json:"status"`
	Action       Action       `json:"action"`
	ModelThought string       `json:"modelThought"`
	Observation  *Observation `json:"observation,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Task is a user-submitted goal and its execution record.
// Only its owning Orchestrator mutates a running Task; the Runtime's store
// is the sole authority for visibility to external observers.
type Task struct {
	ID        string       `json:"id"`
	Goal      string       `json:"goal"`
	Status    TaskStatus   `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Steps     []Step       `json:"steps"`
	Summary   string       `json:"summary,omitempty"`
	Context   *TaskContext `json:"context,omitempty"`
	LastError string       `json:"lastError,omitempty"`
}

// FinishStatus is the planner's declared outcome when it signals finish.
type FinishStatus string

const (
	FinishSuccess FinishStatus = "success"
	FinishFailed  FinishStatus = "failed"
)

// Finish is the planner's terminal signal for a task.
type Finish struct {
	Status  FinishStatus `json:"status"`
	Summary string       `json:"summary"`
}

// PlanOutput is the planner's structured output for one loop iteration.
type PlanOutput struct {
	Thought string  `json:"thought"`
	Action  *Action `json:"action,omitempty"`
	Finish  *Finish `json:"finish,omitempty"`
	Caution string  `json:"caution,omitempty"`
}

// MemoryEntryType classifies a MemoryEntry.
type MemoryEntryType string

const (
	MemoryThought     MemoryEntryType = "thought"
	MemoryAction      MemoryEntryType = "action"
	MemoryObservation MemoryEntryType = "observation"
	MemorySummary     MemoryEntryType = "summary"
)

// MemoryEntry is one append-only record in a task's memory log, consumed by
// the planner when assembling its next prompt.
type MemoryEntry struct {
	Type      MemoryEntryType `json:"type"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// Event is a lifecycle notification emitted by the Runtime or Orchestrator
// and multiplexed to subscribers by the Event Hub.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Emitter accepts lifecycle events from the Runtime/Orchestrator.
// Implemented by the Event Hub; passed to the Orchestrator as a
// constructor-time capability handle to avoid a Runtime<->Orchestrator
// reference cycle (see spec design notes on cyclic graph risk).
type Emitter interface {
	Emit(Event)
}
