package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
)

const maxRequestBody = 1 << 20 // 1 MiB, generous for a goal + page context

type healthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tools.List())
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.ListTasks())
}

type createTaskRequest struct {
	Goal    string                  `json:"goal"`
	Context *agentcore.TaskContext  `json:"context,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.rt.CreateTask(req.Goal, req.Context)
	if err != nil {
		writeTaggedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.rt.GetTask(id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTaskContext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch agentcore.TaskContext
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, ok := s.rt.UpdateTaskContext(id, patch)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body must not be empty")
		}
		return errors.New("malformed JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Web] failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeTaggedError maps an agentcore.Error's Kind to an HTTP status: client
// input problems (ValidationError, ActionValidationError) and a missing or
// invalid Planner configuration (ConfigError, surfaced from createTask when
// no provider credentials are set) all map to 400; everything else is a
// server-side condition and maps to 500.
func writeTaggedError(w http.ResponseWriter, err error) {
	var tagged *agentcore.Error
	if errors.As(err, &tagged) {
		switch tagged.Kind {
		case agentcore.KindValidation, agentcore.KindActionValidation, agentcore.KindConfig:
			writeError(w, http.StatusBadRequest, tagged.Message)
		default:
			writeError(w, http.StatusInternalServerError, tagged.Message)
		}
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
