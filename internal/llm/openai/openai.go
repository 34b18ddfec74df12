// Package openai implements an llm.Planner backed by any OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/llm"
	openailib "github.com/sashabaranov/go-openai"
)

// Config holds OpenAI-compatible planner configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   int
	MaxRetries  int
	HTTPTimeout int
}

// NewConfigFromEnv builds a Config from OPENAI_API_KEY, LLM_BASE_URL,
// AGENT_MODEL, LLM_TEMPERATURE, LLM_MAX_TOKENS, LLM_MAX_RETRIES,
// LLM_HTTP_TIMEOUT.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("AGENT_MODEL", "gpt-4o"),
		Temperature: getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:  getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout: getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether cfg is usable as a planner configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return agentcore.NewError(agentcore.KindConfig, "OPENAI_API_KEY is required")
	}
	if c.Model == "" {
		return agentcore.NewError(agentcore.KindConfig, "AGENT_MODEL cannot be empty")
	}
	if c.MaxRetries < 0 {
		return agentcore.NewError(agentcore.KindConfig, "LLM_MAX_RETRIES cannot be negative")
	}
	return nil
}

// Client implements llm.Planner using the OpenAI-compatible chat
// completions protocol.
type Client struct {
	client *openailib.Client
	config *Config
}

// NewClient constructs a Client from an explicit Config.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, agentcore.NewError(agentcore.KindConfig, "config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(config.HTTPTimeout) * time.Second}

	return &Client{client: openailib.NewClientWithConfig(clientConfig), config: config}, nil
}

// NewClientFromEnv constructs a Client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(config)
}

// Plan implements llm.Planner.
func (c *Client) Plan(ctx context.Context, req llm.Request) (agentcore.PlanOutput, error) {
	system, user := llm.BuildPrompt(req)

	chatReq := openailib.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openailib.ChatCompletionMessage{
			{Role: openailib.ChatMessageRoleSystem, Content: system},
			{Role: openailib.ChatMessageRoleUser, Content: user},
		},
	}
	if c.config.Temperature != nil {
		chatReq.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		chatReq.MaxTokens = c.config.MaxTokens
	}

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[Planner] openai retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return agentcore.PlanOutput{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return agentcore.PlanOutput{}, fmt.Errorf("openai planner call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}
	if len(resp.Choices) == 0 {
		return agentcore.PlanOutput{}, agentcore.NewError(agentcore.KindPlannerParse, "openai returned no choices")
	}

	return llm.ParsePlanOutput(resp.Choices[0].Message.Content)
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

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[Planner] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}
