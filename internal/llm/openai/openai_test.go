package openai

import "testing"

func TestConfigValidateRequiresAPIKey(t *testing.T) {
	c := &Config{Model: "gpt-4o"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestConfigValidateRequiresModel(t *testing.T) {
	c := &Config{APIKey: "sk-test"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestConfigValidateRejectsNegativeRetries(t *testing.T) {
	c := &Config{APIKey: "sk-test", Model: "gpt-4o", MaxRetries: -1}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative MaxRetries")
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	c := &Config{APIKey: "sk-test", Model: "gpt-4o"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientRejectsNilConfig(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
