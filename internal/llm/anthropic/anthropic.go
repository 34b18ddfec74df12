// Package anthropic implements an llm.Planner backed by the Anthropic
// Claude Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/llm"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter uses, so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Config holds Anthropic planner configuration.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewConfigFromEnv builds a Config from ANTHROPIC_API_KEY, AGENT_MODEL (falls
// back to claude-sonnet-4-5-20250929), LLM_MAX_TOKENS (falls back to 4096).
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		Model:     getEnvOrDefault("AGENT_MODEL", "claude-sonnet-4-5-20250929"),
		MaxTokens: getEnvIntOrDefault("LLM_MAX_TOKENS", 4096),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether cfg is usable as a planner configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return agentcore.NewError(agentcore.KindConfig, "ANTHROPIC_API_KEY is required")
	}
	if c.Model == "" {
		return agentcore.NewError(agentcore.KindConfig, "AGENT_MODEL cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return agentcore.NewError(agentcore.KindConfig, "LLM_MAX_TOKENS must be positive")
	}
	return nil
}

// Client implements llm.Planner on top of Anthropic Claude Messages.
type Client struct {
	msg    MessagesClient
	config *Config
}

// New builds a Client from an explicit MessagesClient and Config, allowing
// tests to inject a mock MessagesClient.
func New(msg MessagesClient, config *Config) (*Client, error) {
	if msg == nil {
		return nil, agentcore.NewError(agentcore.KindConfig, "anthropic messages client is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{msg: msg, config: config}, nil
}

// NewFromEnv constructs a Client using environment variables and the
// default Anthropic HTTP client.
func NewFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	ac := sdk.NewClient(option.WithAPIKey(config.APIKey))
	return New(&ac.Messages, config)
}

// Plan implements llm.Planner.
func (c *Client) Plan(ctx context.Context, req llm.Request) (agentcore.PlanOutput, error) {
	system, user := llm.BuildPrompt(req)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("anthropic planner call failed: %w", err)
	}
	if msg == nil {
		return agentcore.PlanOutput{}, errors.New("anthropic: nil response message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return llm.ParsePlanOutput(text)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[Planner] WARNING: invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
