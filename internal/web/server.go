// Package web implements the HTTP surface: REST endpoints for tools,
// tasks, task-by-id, and health, plus the /events WebSocket upgrade.
// The ServeMux wiring and graceful shutdown follow the same shape as a
// single-page chat UI's server, adapted here to a JSON REST API with no
// template rendering.
package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/eventhub"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

// TaskRuntime is the subset of runtime.Runtime the HTTP surface depends
// on. Declared on the consumer side so this package never imports the
// runtime package's scheduler internals.
type TaskRuntime interface {
	CreateTask(goal string, taskCtx *agentcore.TaskContext) (agentcore.Task, error)
	GetTask(id string) (agentcore.Task, bool)
	ListTasks() []agentcore.Task
	UpdateTaskContext(id string, patch agentcore.TaskContext) (agentcore.Task, bool)
}

// ToolCatalog is the subset of tool.Registry the HTTP surface depends on.
type ToolCatalog interface {
	List() []tool.Definition
}

// Server holds the HTTP server and its route dependencies.
type Server struct {
	mux     *http.ServeMux
	rt      TaskRuntime
	tools   ToolCatalog
	hub     *eventhub.Hub
	started time.Time
}

// NewServer builds a Server and registers all routes.
func NewServer(rt TaskRuntime, tools ToolCatalog, hub *eventhub.Hub) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		rt:      rt,
		tools:   tools,
		hub:     hub,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /tools", s.handleListTools)
	s.mux.HandleFunc("GET /tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /tasks", s.handleCreateTask)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("PATCH /tasks/{id}/context", s.handleUpdateTaskContext)
	s.mux.HandleFunc("GET /events", s.hub.ServeWS)
}

// Handler exposes the underlying mux, e.g. for tests using httptest.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins listening with graceful shutdown on SIGINT/SIGTERM. Binds
// to loopback by default (AGENT_SERVER_HOST / AGENT_SERVER_PORT override).
func (s *Server) Start() error {
	host := getEnvOrDefault("AGENT_SERVER_HOST", "127.0.0.1")
	port := getEnvOrDefault("AGENT_SERVER_PORT", "8088")
	addr := host + ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("[Web] received signal %v, shutting down gracefully", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Web] graceful shutdown error: %v", err)
		}
	}()

	log.Printf("[Web] agent runtime listening at http://%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("[Web] server stopped gracefully")
		return nil
	}
	return err
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
