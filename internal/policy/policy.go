// Package policy holds the process-wide immutable safety configuration:
// step budget, parallelism cap, wait ceiling, and the navigate/click
// blocklists. Built once at startup and threaded explicitly into the
// Runtime, Orchestrator, and Executor rather than read from globals at
// each call site (see design notes on "global mutable state").
package policy

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Policy is the immutable safety configuration shared by the Orchestrator's
// prompt builder and the Executor's enforcement checks.
type Policy struct {
	MaxSteps            int
	MaxParallelTasks    int
	MaxWaitMs           int
	BlockedOrigins      []string
	RestrictedSelectors []string
}

// Default values, used when the corresponding env var is absent or invalid.
const (
	defaultMaxSteps         = 25
	defaultMaxParallelTasks = 1
	defaultMaxWaitMs        = 30_000
)

// defaultBlockedOrigins are prefixes an agent should never be allowed to
// navigate to: loopback/cloud metadata endpoints and non-http schemes that
// could be used to escape the browser sandbox.
var defaultBlockedOrigins = []string{
	"file://",
	"chrome://",
	"chrome-extension://",
	"http://169.254.169.254", // cloud metadata service
	"http://localhost",
	"http://127.0.0.1",
}

// defaultRestrictedSelectors are CSS selectors an agent should never be
// allowed to click or type into: password/payment fields and anything
// carrying an explicit no-automation marker.
var defaultRestrictedSelectors = []string{
	"input[type=password]",
	"input[autocomplete=cc-number]",
	"input[autocomplete=cc-csc]",
	"[data-no-agent]",
}

// FromEnv builds a Policy from environment variables, falling back to
// defaults (with a logged warning) on missing or invalid values.
func FromEnv() Policy {
	return Policy{
		MaxSteps:            envIntOrDefault("AGENT_MAX_STEPS", defaultMaxSteps, 1, 1000),
		MaxParallelTasks:    envIntOrDefault("AGENT_MAX_PARALLEL_TASKS", defaultMaxParallelTasks, 1, 1000),
		MaxWaitMs:           envIntOrDefault("AGENT_MAX_WAIT_MS", defaultMaxWaitMs, 1, 600_000),
		BlockedOrigins:      envListOrDefault("AGENT_BLOCKED_ORIGINS", defaultBlockedOrigins),
		RestrictedSelectors: envListOrDefault("AGENT_RESTRICTED_SELECTORS", defaultRestrictedSelectors),
	}
}

// ClampWaitMs clamps a requested wait duration to the policy ceiling.
func (p Policy) ClampWaitMs(requested int) int {
	if requested <= 0 || requested > p.MaxWaitMs {
		return p.MaxWaitMs
	}
	return requested
}

// IsBlockedOrigin reports whether url starts with any configured blocked
// origin prefix.
func (p Policy) IsBlockedOrigin(url string) bool {
	for _, prefix := range p.BlockedOrigins {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// IsRestrictedSelector reports whether selector is in the restricted list.
func (p Policy) IsRestrictedSelector(selector string) bool {
	for _, r := range p.RestrictedSelectors {
		if selector == r {
			return true
		}
	}
	return false
}

func envIntOrDefault(key string, def, min, max int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		log.Printf("[Policy] WARNING: invalid %s=%q (must be %d-%d), using default %d", key, v, min, max, def)
		return def
	}
	return n
}

func envListOrDefault(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
