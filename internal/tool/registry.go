package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
)

// Registry is the immutable catalog of recognized action kinds. Unlike a
// plugin registry, the catalog is fixed at construction (NewRegistry always
// returns the same seven kinds); the sync.RWMutex guards reads against the
// theoretical future of hot-reloadable catalogs, the same concurrency
// discipline a mutable tool registry would need.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry builds the registry with the fixed catalog of action kinds:
// navigate, click, type, wait, scroll, extract, finish.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, d := range defaultCatalog() {
		r.defs[d.Name] = d
	}
	return r
}

// List returns all tool definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Get retrieves a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Validate checks action against its Definition's schema: ok=false iff the
// action's type is unknown, or any parameter marked required is absent,
// null, or undefined. Extra parameters are tolerated (forward-compatible).
// Type-correctness beyond presence is the Executor's responsibility.
func (r *Registry) Validate(action agentcore.Action) ValidationResult {
	d, ok := r.Get(action.Type)
	if !ok {
		return ValidationResult{OK: false, Issues: []string{fmt.Sprintf("unknown action type %q", action.Type)}}
	}

	var issues []string
	req := d.requiredParams()
	sort.Strings(req)
	for _, name := range req {
		if !paramPresent(action, name) {
			issues = append(issues, fmt.Sprintf("missing required parameter %q", name))
		}
	}
	if len(issues) > 0 {
		return ValidationResult{OK: false, Issues: issues}
	}
	return ValidationResult{OK: true}
}

// GenerateToolsPrompt builds a human-readable tool catalog description for
// injection into the planner prompt, including required params and safety
// notes.
func (r *Registry) GenerateToolsPrompt() string {
	defs := r.List()
	if len(defs) == 0 {
		return "(no tools available)"
	}

	var sb strings.Builder
	sb.WriteString("available tools:\n")
	for _, d := range defs {
		sb.WriteString(fmt.Sprintf("\n### %s\n%s\n", d.Name, d.Description))
		req := d.requiredParams()
		sort.Strings(req)
		if len(req) > 0 {
			sb.WriteString(fmt.Sprintf("required params: %s\n", strings.Join(req, ", ")))
		}
		for _, note := range d.SafetyNotes {
			sb.WriteString(fmt.Sprintf("safety: %s\n", note))
		}
	}
	return sb.String()
}

// defaultCatalog returns the seven fixed tool definitions from spec.md §6.
func defaultCatalog() []Definition {
	return []Definition{
		{
			Name:        "navigate",
			Description: "Navigate the active tab to a URL.",
			Schema: map[string]ParamSpec{
				"url":      {Description: "destination URL", Required: true},
				"tabId":    {Description: "target tab identifier"},
				"waitFor":  {Description: "selector or event to await after navigation"},
			},
			Execution:   ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 2000},
			SafetyNotes: []string{"rejected if url starts with a blocked origin prefix"},
		},
		{
			Name:        "click",
			Description: "Click an element matching a CSS selector.",
			Schema: map[string]ParamSpec{
				"selector":         {Description: "CSS selector of the element to click", Required: true},
				"tabId":            {Description: "target tab identifier"},
				"button":           {Description: "mouse button: left, right, or middle"},
				"waitForNavigation": {Description: "wait for a navigation to complete after the click"},
			},
			Execution:   ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 500},
			SafetyNotes: []string{"rejected if selector is in the restricted selector list"},
		},
		{
			Name:        "type",
			Description: "Type text into an element matching a CSS selector.",
			Schema: map[string]ParamSpec{
				"selector": {Description: "CSS selector of the input element", Required: true},
				"text":     {Description: "text to type", Required: true},
				"tabId":    {Description: "target tab identifier"},
				"clear":    {Description: "clear the field before typing"},
				"submit":   {Description: "submit the enclosing form after typing"},
			},
			Execution:   ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 500},
			SafetyNotes: []string{"rejected if selector is in the restricted selector list"},
		},
		{
			Name:        "wait",
			Description: "Pause execution for a duration or until a condition holds. At least one of ms/until is required.",
			Schema: map[string]ParamSpec{
				"ms":        {Description: "milliseconds to sleep"},
				"until":     {Description: "condition to await; takes precedence over ms when both are present"},
				"tabId":     {Description: "target tab identifier"},
				"timeoutMs": {Description: "maximum time to wait for until"},
			},
			Execution:   ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 1000},
			SafetyNotes: []string{"ms and timeoutMs are clamped to the configured wait ceiling"},
		},
		{
			Name:        "scroll",
			Description: "Scroll the page or an element.",
			Schema: map[string]ParamSpec{
				"direction": {Description: "up, down, top, or bottom", Required: true},
				"tabId":     {Description: "target tab identifier"},
				"amount":    {Description: "pixels, or a 0-1 fraction of viewport; default 0.6"},
				"selector":  {Description: "scroll container selector; defaults to the page"},
			},
			Execution: ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 300},
		},
		{
			Name:        "extract",
			Description: "Extract an attribute's value from elements matching a selector.",
			Schema: map[string]ParamSpec{
				"attribute": {Description: "e.g. textContent, innerHTML, or any DOM attribute", Required: true},
				"tabId":     {Description: "target tab identifier"},
				"selector":  {Description: "CSS selector; defaults to *"},
				"purpose":   {Description: "why this extraction is being made, for logging"},
			},
			Execution:   ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 500},
			SafetyNotes: []string{"output is capped at 10 non-empty values"},
		},
		{
			Name:        "finish",
			Description: "Declare the task complete or failed.",
			Schema: map[string]ParamSpec{
				"status":  {Description: "success or failed", Required: true},
				"summary": {Description: "final human-readable summary", Required: true},
			},
			Execution: ExecutionMeta{InvokesExecutor: true, ExpectedLatencyMs: 100},
		},
	}
}
