package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketomega/pocket-omega/internal/llm"
)

func TestConfigValidateRequiresAPIKey(t *testing.T) {
	c := &Config{Model: "gemini-2.0-flash"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestConfigValidateRequiresModel(t *testing.T) {
	c := &Config{APIKey: "test-key"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	c := &Config{APIKey: "test-key", Model: "gemini-2.0-flash"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlanParsesCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{Candidates: []candidate{
			{Content: content{Parts: []part{{Text: `{"thought":"ok","finish":{"status":"success","summary":"done"}}`}}}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(&Config{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: srv.URL})
	out, err := c.Plan(context.Background(), llm.Request{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if out.Finish == nil || out.Finish.Summary != "done" {
		t.Errorf("Finish = %+v, want summary %q", out.Finish, "done")
	}
}

func TestPlanSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(apiError{})
	}))
	defer srv.Close()

	c := NewClient(&Config{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: srv.URL})
	if _, err := c.Plan(context.Background(), llm.Request{}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
