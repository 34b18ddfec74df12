package tool

import (
	"strings"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
)

func TestNewRegistryHasFixedCatalog(t *testing.T) {
	r := NewRegistry()
	defs := r.List()
	want := []string{"click", "extract", "finish", "navigate", "scroll", "type", "wait"}
	if len(defs) != len(want) {
		t.Fatalf("List() returned %d defs, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("List()[%d].Name = %q, want %q (catalog must be sorted)", i, d.Name, want[i])
		}
	}
}

func TestGetUnknownKind(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("teleport"); ok {
		t.Error(`Get("teleport") should not be found`)
	}
}

func TestValidateUnknownType(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{Type: "teleport"})
	if res.OK {
		t.Error("expected Validate to reject unknown action type")
	}
	if len(res.Issues) != 1 {
		t.Fatalf("expected exactly one issue, got %v", res.Issues)
	}
}

func TestValidateMissingRequiredParam(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{Type: "click", Params: map[string]any{}})
	if res.OK {
		t.Fatal("expected Validate to reject click with no selector")
	}
	if res.Issues[0] != `missing required parameter "selector"` {
		t.Errorf("Issues[0] = %q, want the literal missing-selector message", res.Issues[0])
	}
}

func TestValidateNullCountsAsAbsent(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{Type: "click", Params: map[string]any{"selector": nil}})
	if res.OK {
		t.Fatal("expected explicit null to count as missing")
	}
}

func TestValidateExtraParamsTolerated(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{
		Type: "click",
		Params: map[string]any{
			"selector": "#submit",
			"zealotry": true,
		},
	})
	if !res.OK {
		t.Errorf("extra params should not fail validation, got issues %v", res.Issues)
	}
}

func TestValidateMultipleRequiredParams(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{Type: "finish", Params: map[string]any{}})
	if res.OK {
		t.Fatal("expected finish with no params to fail")
	}
	if len(res.Issues) != 2 {
		t.Errorf("expected 2 issues (status, summary), got %v", res.Issues)
	}
}

func TestValidateSuccess(t *testing.T) {
	r := NewRegistry()
	res := r.Validate(agentcore.Action{
		Type:   "navigate",
		Params: map[string]any{"url": "https://example.com"},
	})
	if !res.OK {
		t.Errorf("expected navigate with url to validate, got issues %v", res.Issues)
	}
}

func TestGenerateToolsPromptMentionsEveryKind(t *testing.T) {
	r := NewRegistry()
	prompt := r.GenerateToolsPrompt()
	for _, name := range []string{"navigate", "click", "type", "wait", "scroll", "extract", "finish"} {
		if !strings.Contains(prompt, name) {
			t.Errorf("GenerateToolsPrompt() missing tool %q", name)
		}
	}
}
