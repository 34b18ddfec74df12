package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/config"
	"github.com/pocketomega/pocket-omega/internal/eventhub"
	"github.com/pocketomega/pocket-omega/internal/executor"
	"github.com/pocketomega/pocket-omega/internal/llm"
	"github.com/pocketomega/pocket-omega/internal/llm/anthropic"
	"github.com/pocketomega/pocket-omega/internal/llm/gemini"
	"github.com/pocketomega/pocket-omega/internal/llm/openai"
	"github.com/pocketomega/pocket-omega/internal/memory"
	"github.com/pocketomega/pocket-omega/internal/orchestrator"
	"github.com/pocketomega/pocket-omega/internal/policy"
	"github.com/pocketomega/pocket-omega/internal/runtime"
	"github.com/pocketomega/pocket-omega/internal/tool"
	"github.com/pocketomega/pocket-omega/internal/web"
)

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║         Agent Runtime v0.1           ║")
	fmt.Println("║   Perceive · Plan · Act · Observe    ║")
	fmt.Println("╚══════════════════════════════════════╝")

	pol := policy.FromEnv()
	fmt.Printf("🛡️  Policy: maxSteps=%d maxParallelTasks=%d maxWaitMs=%d\n",
		pol.MaxSteps, pol.MaxParallelTasks, pol.MaxWaitMs)

	planner, providerName, err := newPlannerFromEnv()
	if err != nil {
		// Without a planner the server still starts; CreateTask then
		// rejects every goal with a ConfigError.
		log.Printf("⚠️  Planner disabled: %v", err)
	} else {
		fmt.Printf("🤖 Planner: %s\n", providerName)
	}

	registry := tool.NewRegistry()
	fmt.Printf("🛠️  Tools: %d registered\n", len(registry.List()))

	mem := memory.NewStore()

	hub := eventhub.New(nil) // snapshot source wired in once rt exists, below

	var rt *runtime.Runtime
	rt = runtime.New(runtime.Config{
		Policy:   pol,
		Planner:  planner,
		Registry: registry,
		Memory:   mem,
		Emitter:  hub,
		NewOrchestrator: func(r *runtime.Runtime) runtime.Orchestrator {
			return orchestrator.New(r.Planner(), r.Executor(), r.Registry(), r.Memory(), r.Policy(), hub, r)
		},
	})
	rt.RegisterExecutor(executor.DefaultExecutor{})

	hub.SetSnapshotSource(runtimeSnapshot{rt: rt, registry: registry})

	server := web.NewServer(rt, registry, hub)
	fmt.Printf("🌐 HTTP: listening\n")
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// runtimeSnapshot bridges runtime.Runtime and tool.Registry to satisfy
// eventhub.SnapshotSource without either package importing eventhub.
type runtimeSnapshot struct {
	rt       *runtime.Runtime
	registry *tool.Registry
}

func (s runtimeSnapshot) ListTasks() []agentcore.Task  { return s.rt.ListTasks() }
func (s runtimeSnapshot) ListTools() []tool.Definition { return s.registry.List() }

// newPlannerFromEnv selects a Planner implementation by AGENT_MODEL_PROVIDER
// (openai, anthropic, or gemini/google; defaults to openai).
func newPlannerFromEnv() (llm.Planner, string, error) {
	provider := os.Getenv("AGENT_MODEL_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		client, err := openai.NewClientFromEnv()
		if err != nil {
			return nil, "", err
		}
		return client, "openai", nil
	case "anthropic":
		client, err := anthropic.NewFromEnv()
		if err != nil {
			return nil, "", err
		}
		return client, "anthropic", nil
	case "gemini", "google":
		client, err := gemini.NewFromEnv()
		if err != nil {
			return nil, "", err
		}
		return client, provider, nil
	default:
		return nil, "", agentcore.NewError(agentcore.KindConfig, fmt.Sprintf("unknown AGENT_MODEL_PROVIDER %q", provider))
	}
}
