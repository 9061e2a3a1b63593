// Package reportapi implements the single HTTP endpoint a node's
// reporter agent calls: POST /components/{id}/actualstate, plus a
// GET /healthz route. Out of
// scope per SPEC_FULL.md §1 is the full component/session/template CRUD
// surface — the engine consumes that through internal/engine/store
// directly; this package exists only because the reporter agent is an
// external, unowned client talking HTTP, not Go.
package reportapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/hpc-bos/bos/internal/engine/component"
	"github.com/hpc-bos/bos/internal/engine/store"
	"github.com/hpc-bos/bos/internal/engine/tokens"
)

// Server handles actual-state reports from nodes.
type Server struct {
	Store     store.Components
	Tokens    tokens.Table
	Log       logr.Logger
	Now       func() time.Time
	StartTime time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Routes registers the actual-state and /healthz handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /components/{id}/actualstate", s.handleActualState)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

type actualStateRequest struct {
	BSSToken string `json:"bss_token"`
}

// handleActualState resolves the reported bss_token against the token
// table and writes actual_state onto the component. An unknown token
// is a domain error (spec.md §7/§8: "BSS token unknown on report") and
// is reported distinctly from a store failure — the reporter gets a 409
// rather than a 500, since retrying won't help.
func (s *Server) handleActualState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing component id", http.StatusBadRequest)
		return
	}

	var req actualStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Log.Info("malformed actual state report, skipping", "id", id, "error", err)
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.BSSToken == "" {
		http.Error(w, "bss_token is required", http.StatusBadRequest)
		return
	}

	rec, err := s.Tokens.Get(r.Context(), req.BSSToken)
	if errors.Is(err, tokens.ErrNotFound) {
		s.Log.Info("report referenced unknown bss token", "id", id, "token", req.BSSToken)
		http.Error(w, "unknown bss_token", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "token lookup failed", http.StatusInternalServerError)
		return
	}

	actual := component.ActualState{
		BootArtifacts: component.BootArtifacts{
			Kernel:           rec.Kernel,
			Initrd:           rec.Initrd,
			KernelParameters: rec.KernelParameters,
			BSSToken:         req.BSSToken,
		},
		LastUpdated: s.now(),
	}

	if err := s.Store.Update(r.Context(), []store.ComponentUpdate{{ID: id, ActualState: &actual}}); err != nil {
		s.Log.Info("persisting actual state failed", "id", id, "error", err)
		http.Error(w, "store update failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	res := struct {
		UptimeSeconds string `json:"uptime_seconds"`
		Goroutines    int    `json:"goroutines"`
	}{
		UptimeSeconds: fmt.Sprintf("%.2f", time.Since(s.StartTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}
	if err := json.NewEncoder(w).Encode(&res); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.Log.Error(err, "marshaling healthcheck json")
	}
}

// NewMux builds a ready-to-serve *http.ServeMux for the server.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

// ListenAndServe is a small convenience wrapper so cmd/bos-reportapi
// doesn't need to construct http.Server itself.
func ListenAndServe(addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(s),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("reportapi: serve: %w", err)
	}
	return nil
}
