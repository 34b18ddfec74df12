// Package llm defines the Planner contract the Orchestrator calls against,
// and the prompt/response plumbing shared by every concrete provider
// adapter (openai, anthropic, gemini).
package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/tool"
	"github.com/pocketomega/pocket-omega/internal/util"
)

// Role identifies the speaker of a Message in a chat-style LLM exchange.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the chat transcript sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// MemoryLine is one prompt-ready rendering of an agentcore.MemoryEntry:
// ISO-8601 timestamp, uppercased type, content.
type MemoryLine struct {
	Timestamp string
	Type      string
	Content   string
}

// Request carries everything the Orchestrator assembles before asking the
// Planner for the next step: goal/context, recent memory, the tool
// catalog, current step count, and the safety policy boundaries to embed
// in the prompt.
type Request struct {
	Task           agentcore.Task
	RecentMemory   []agentcore.MemoryEntry
	Tools          []tool.Definition
	StepCount      int
	BlockedOrigins []string
	RestrictedSelectors []string
}

// Planner is the sole external contract the Orchestrator depends on:
// given a Request, return a parsed PlanOutput for this iteration.
type Planner interface {
	Plan(ctx context.Context, req Request) (agentcore.PlanOutput, error)
}

// maxHTMLExcerpt caps the page HTML excerpt embedded in prompts.
const maxHTMLExcerpt = 1500

// maxMemoryLines is the number of recent memory entries rendered into the
// prompt; the Orchestrator requests 16 from Memory.GetRecent to match.
const maxMemoryLines = 16

// BuildPrompt renders req into a system+user message pair following the
// fingerprint required of every provider: a single JSON object with
// thought/action/finish/caution, enumerating only the registered tools,
// and stating the safety policy boundaries.
func BuildPrompt(req Request) (system, user string) {
	var sb strings.Builder
	sb.WriteString("You are a browsing agent. Decide the next step toward the goal.\n")
	sb.WriteString("Respond with a single JSON object and nothing else, matching exactly this shape:\n")
	sb.WriteString(`{"thought": string, "action": {"type": string, "params": object}?, "finish": {"status": "success"|"failed", "summary": string}?, "caution": string?}`)
	sb.WriteString("\nProvide at most one of action or finish per response.\n\n")

	sb.WriteString("Tools:\n")
	for _, t := range req.Tools {
		sb.WriteString("- " + t.Name + ": " + t.Description + "\n")
		for _, note := range t.SafetyNotes {
			sb.WriteString("  safety: " + note + "\n")
		}
	}

	if len(req.BlockedOrigins) > 0 {
		sb.WriteString("\nBlocked origin prefixes (navigate will be refused): " + strings.Join(req.BlockedOrigins, ", ") + "\n")
	}
	if len(req.RestrictedSelectors) > 0 {
		sb.WriteString("Restricted selectors (click/type will be refused): " + strings.Join(req.RestrictedSelectors, ", ") + "\n")
	}
	system = sb.String()

	var ub strings.Builder
	ub.WriteString("Goal: " + req.Task.Goal + "\n")
	if ctx := req.Task.Context; ctx != nil {
		ub.WriteString("Page URL: " + ctx.URL + "\n")
		ub.WriteString("Page title: " + ctx.Title + "\n")
		if ctx.Description != "" {
			ub.WriteString("Page description: " + ctx.Description + "\n")
		}
		if ctx.HTMLExcerpt != "" {
			ub.WriteString("Page HTML excerpt:\n" + util.TruncateRunes(ctx.HTMLExcerpt, maxHTMLExcerpt) + "\n")
		}
	}
	ub.WriteString("Step count so far: ")
	ub.WriteString(strconv.Itoa(req.StepCount))
	ub.WriteString("\n\nRecent memory:\n")

	lines := renderMemoryLines(req.RecentMemory)
	if len(lines) > maxMemoryLines {
		lines = lines[len(lines)-maxMemoryLines:]
	}
	for _, l := range lines {
		ub.WriteString(l.Timestamp + " " + l.Type + " " + l.Content + "\n")
	}
	user = ub.String()
	return system, user
}

func renderMemoryLines(entries []agentcore.MemoryEntry) []MemoryLine {
	lines := make([]MemoryLine, len(entries))
	for i, e := range entries {
		lines[i] = MemoryLine{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Type:      strings.ToUpper(string(e.Type)),
			Content:   e.Content,
		}
	}
	return lines
}

// ParsePlanOutput parses raw planner text into a PlanOutput. It first
// attempts a direct JSON parse of the trimmed response; on failure, it
// extracts the maximal substring between the first '{' and the last '}'
// and retries. It does not repair missing fields — callers check the
// action/finish contract separately. Returns a PlannerParseError-tagged
// error if both attempts fail.
func ParsePlanOutput(raw string) (agentcore.PlanOutput, error) {
	trimmed := strings.TrimSpace(raw)

	var out agentcore.PlanOutput
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &out); err == nil {
			return out, nil
		}
	}

	return agentcore.PlanOutput{}, agentcore.NewError(agentcore.KindPlannerParse,
		"planner returned unparsable text")
}
