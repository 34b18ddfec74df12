// Package memory holds the per-task append-only log of thoughts, actions,
// and observations the Orchestrator consults when assembling planner
// prompts.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
)

const defaultRecentLimit = 10

// Store is a thread-safe in-memory registry of per-task entry logs.
// Entries are never evicted by TTL: memory is unbounded by default and
// callers enforce windowing at read time via GetRecent.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]agentcore.MemoryEntry
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string][]agentcore.MemoryEntry)}
}

// Remember appends entry to taskId's log.
func (s *Store) Remember(taskID string, entry agentcore.MemoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[taskID] = append(s.entries[taskID], entry)
}

// GetRecent returns the last limit entries for taskId in insertion order.
// limit <= 0 returns the full log. A task with no entries yields an empty
// (non-nil) slice.
func (s *Store) GetRecent(taskID string, limit int) []agentcore.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.entries[taskID]
	if limit <= 0 || limit >= len(log) {
		result := make([]agentcore.MemoryEntry, len(log))
		copy(result, log)
		return result
	}

	start := len(log) - limit
	result := make([]agentcore.MemoryEntry, limit)
	copy(result, log[start:])
	return result
}

// Summarise builds a textual summary of task.Goal and observation, appends
// it to the log as a MemorySummary entry, and returns the summary text.
// Called on terminal transitions when the executor doesn't supply its own
// summary, and on step-budget exhaustion.
func (s *Store) Summarise(task agentcore.Task, observation agentcore.Observation) string {
	summary := fmt.Sprintf("Goal: %s\nResult: %s\nMessage: %s", task.Goal, observation.Result, observation.Message)
	if len(observation.Data) > 0 {
		summary += fmt.Sprintf("\nData: %v", observation.Data)
	}
	s.Remember(task.ID, agentcore.MemoryEntry{
		Type:      agentcore.MemorySummary,
		Content:   summary,
		Timestamp: time.Now(),
	})
	return summary
}

// Clear removes all entries for taskId.
func (s *Store) Clear(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, taskID)
}

// DefaultRecentLimit is the limit GetRecent callers should use absent a
// more specific requirement (the Orchestrator requests 16 when preparing
// prompts; this constant covers other callers, e.g. diagnostics).
const DefaultRecentLimit = defaultRecentLimit
