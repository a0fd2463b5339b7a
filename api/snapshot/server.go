// Package snapshot serves the latest simulation step over HTTP so a
// presentation layer can poll it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sushant-115/pagesim/core/memory/replacer"
	"github.com/sushant-115/pagesim/core/simulation"
)

// APIResponse is the envelope of every response.
type APIResponse struct {
	Status  string          `json:"status"`            // OK, ERROR, NOT_FOUND
	Message string          `json:"message,omitempty"` // Details on errors
	Data    json.RawMessage `json:"data,omitempty"`
}

// Server keeps the most recent step published by a runner.
type Server struct {
	mu     sync.RWMutex
	latest *simulation.Step
	done   bool
	logger *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger}
}

// Observe stores step as the latest one. It matches simulation.Observer.
func (s *Server) Observe(step simulation.Step) {
	s.mu.Lock()
	s.latest = &step
	s.done = step.Index == step.Total-1
	s.mu.Unlock()
}

// Latest returns a copy of the latest step, if any.
func (s *Server) Latest() (simulation.Step, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return simulation.Step{}, false
	}
	return *s.latest, true
}

// Handler routes:
//
//	GET /snapshot            latest step for every engine
//	GET /snapshot?policy=SC  latest step result of one engine
//	GET /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	step, ok := s.Latest()
	if !ok {
		s.writeResponse(w, http.StatusNotFound, APIResponse{Status: "NOT_FOUND", Message: "no step has been applied yet"}, nil)
		return
	}

	policyParam := strings.TrimSpace(r.URL.Query().Get("policy"))
	if policyParam == "" {
		s.writeResponse(w, http.StatusOK, APIResponse{Status: "OK"}, step)
		return
	}

	policy, err := replacer.ParsePolicyType(policyParam)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, APIResponse{Status: "ERROR", Message: err.Error()}, nil)
		return
	}
	for _, res := range step.Results {
		if res.Policy == policy {
			s.writeResponse(w, http.StatusOK, APIResponse{Status: "OK"}, res)
			return
		}
	}
	s.writeResponse(w, http.StatusNotFound, APIResponse{Status: "NOT_FOUND", Message: fmt.Sprintf("policy %s is not part of this run", policy)}, nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := "running"
	if s.latest == nil {
		status = "idle"
	} else if s.done {
		status = "finished"
	}
	s.mu.RUnlock()
	s.writeResponse(w, http.StatusOK, APIResponse{Status: "OK", Message: status}, nil)
}

func (s *Server) writeResponse(w http.ResponseWriter, code int, resp APIResponse, data any) {
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			s.logger.Error("failed to marshal response data", zap.Error(err))
			code = http.StatusInternalServerError
			resp = APIResponse{Status: "ERROR", Message: "failed to encode response"}
		} else {
			resp.Data = raw
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
