// Package gemini implements an llm.Planner backed by Google's Gemini
// GenerateContent REST API, called directly over net/http rather than
// through a generated SDK (request/response shape, retry-free single POST
// per call).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config holds Gemini planner configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewConfigFromEnv builds a Config from GOOGLE_GENERATIVE_AI_API_KEY
// (aliased GEMINI_API_KEY) and AGENT_MODEL (falls back to
// gemini-2.0-flash).
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:  getEnvOrDefault("GOOGLE_GENERATIVE_AI_API_KEY", os.Getenv("GEMINI_API_KEY")),
		Model:   getEnvOrDefault("AGENT_MODEL", "gemini-2.0-flash"),
		BaseURL: getEnvOrDefault("GEMINI_BASE_URL", defaultBaseURL),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether cfg is usable as a planner configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return agentcore.NewError(agentcore.KindConfig, "GOOGLE_GENERATIVE_AI_API_KEY (or GEMINI_API_KEY) is required")
	}
	if c.Model == "" {
		return agentcore.NewError(agentcore.KindConfig, "AGENT_MODEL cannot be empty")
	}
	return nil
}

// Client implements llm.Planner on top of the Gemini GenerateContent API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewFromEnv constructs a Client using environment variables.
func NewFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(config), nil
}

// NewClient constructs a Client from an explicit Config.
func NewClient(config *Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Plan implements llm.Planner.
func (c *Client) Plan(ctx context.Context, req llm.Request) (agentcore.PlanOutput, error) {
	system, user := llm.BuildPrompt(req)

	body := generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: user}}}},
		SystemInstruction: &systemInstruction{Parts: []part{{Text: system}}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.config.BaseURL, c.config.Model, c.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[Planner] gemini request model=%s", c.config.Model)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = string(respBody)
		}
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: request failed with status %d: %s", resp.StatusCode, msg)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("gemini: failed to parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return agentcore.PlanOutput{}, agentcore.NewError(agentcore.KindPlannerParse, "gemini returned no candidates")
	}

	var text string
	for _, p := range parsed.Candidates[0].Content.Parts {
		text += p.Text
	}
	return llm.ParsePlanOutput(text)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
