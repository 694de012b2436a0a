// Package api serves the podcfgd settings API as JSON over HTTP on a Unix
// domain socket. Settings changes go to the engine; the rendered Prosody
// configuration is never returned, since it may carry component secrets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lc/podcfg/internal/buildinfo"
	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/engine"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/socket"
)

// maxBody bounds request bodies; a settings patch is a few hundred bytes.
const maxBody = 64 << 10

// SettingsResponse is the published settings state.
type SettingsResponse struct {
	Revision  string              `json:"revision"`
	UpdatedAt time.Time           `json:"updated_at"`
	Overrides podconfig.Overrides `json:"overrides"`
	Settings  podconfig.Entity    `json:"settings"`
}

// StatusResponse reports daemon health.
type StatusResponse struct {
	Revision  string        `json:"revision"`
	UpdatedAt time.Time     `json:"updated_at"`
	Applies   int64         `json:"applies"`
	Failures  int64         `json:"failures"`
	Reloads   int64         `json:"reloads"`
	LastError string        `json:"last_error,omitempty"`
	Uptime    time.Duration `json:"uptime"`
	Version   string        `json:"version"`
	Commit    string        `json:"commit"`
}

// FieldError is one rejected setting.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// Engine is the part of engine.Engine the server uses.
type Engine interface {
	Current() *engine.State
	Status() engine.Status
	Update(ctx context.Context, patch podconfig.Overrides) (*engine.State, error)
	Reset(ctx context.Context) (*engine.State, error)
}

var _ Engine = (*engine.Engine)(nil)

// Server handles API requests.
type Server struct {
	eng   Engine
	start time.Time
	mux   *http.ServeMux
	srv   *http.Server
}

// New returns a Server for eng.
func New(eng Engine) *Server {
	s := &Server{
		eng:   eng,
		start: time.Now(),
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("/v1/settings", s.handleSettings)
	s.mux.HandleFunc("/v1/settings/reset", s.handleReset)
	s.mux.HandleFunc("/v1/status", s.handleStatus)

	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on the Unix socket at path.
func (s *Server) ListenAndServe(path string) error {
	ln, err := socket.Listen(path)
	if err != nil {
		return err
	}
	return s.srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cur := s.eng.Current()
		if cur == nil {
			writeError(w, engine.ErrNotRunning)
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse(cur))
	case http.MethodPut:
		var patch podconfig.Overrides
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("decoding request: %v", err)})
			return
		}
		st, err := s.eng.Update(r.Context(), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse(st))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	st, err := s.eng.Reset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(st))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	st := s.eng.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Revision:  st.Revision,
		UpdatedAt: st.UpdatedAt,
		Applies:   st.Applies,
		Failures:  st.Failures,
		Reloads:   st.Reloads,
		LastError: st.LastError,
		Uptime:    time.Since(s.start),
		Version:   buildinfo.Version,
		Commit:    buildinfo.Commit,
	})
}

func settingsResponse(st *engine.State) SettingsResponse {
	return SettingsResponse{
		Revision:  st.Revision,
		UpdatedAt: st.UpdatedAt,
		Overrides: st.Overrides,
		Settings:  st.Entity,
	}
}

// writeError maps err to a status: bad input is 400, a stopped engine 503,
// everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, podconfig.ErrInvalidSettings), errors.Is(err, dialect.ErrUnencodable):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	resp := ErrorResponse{Error: err.Error()}
	for _, fe := range podconfig.FieldErrors(err) {
		resp.Fields = append(resp.Fields, FieldError{Field: fe.Field, Error: fe.Err.Error()})
	}
	if status == http.StatusInternalServerError {
		log.Error("api: request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("api: encoding response", "error", err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}
