// Package http exposes chain execution over a JSON API.
//
// Every request is stateless from the server's point of view: the chain
// definition is fixed at construction, and per-session progress lives in
// the session manager. A request rebuilds the chain, restores the session
// snapshot, performs one operation and persists the new snapshot.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/promptloom/promptloom/pkg/loader"
	"github.com/promptloom/promptloom/internal/logging"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/session"
)

// Server routes chain operations to a session-backed matrix chain.
type Server struct {
	definition *loader.ChainFile
	sessions   *session.Manager
	opts       []chain.MatrixOption
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithChainOptions forwards options to every chain the server builds.
func WithChainOptions(opts ...chain.MatrixOption) Option {
	return func(s *Server) {
		s.opts = opts
	}
}

// NewServer creates a Server for one chain definition.
func NewServer(definition *loader.ChainFile, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		definition: definition,
		sessions:   sessions,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router for the server.
func Handler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/chains", func(r chi.Router) {
		r.Post("/", s.createChain)
		r.Get("/", s.listChains)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getChain)
			r.Delete("/", s.deleteChain)
			r.Post("/step", s.stepChain)
			r.Post("/run", s.runChain)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ChainResponse is the wire form of a session's chain progress.
type ChainResponse struct {
	SessionID string         `json:"session_id"`
	Status    string         `json:"status"`
	Cursor    int            `json:"cursor"`
	Steps     int            `json:"steps"`
	Done      bool           `json:"done"`
	Context   map[string]any `json:"context,omitempty"`
}

type createRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

func (s *Server) createChain(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("createChain: invalid request body", "error", err)
			return
		}
	}

	id := body.SessionID
	if id == "" {
		id = newSessionID()
	}

	mc, err := s.buildChain()
	if err != nil {
		http.Error(w, fmt.Sprintf("Chain build error: %v", err), http.StatusInternalServerError)
		return
	}
	mc.BuildDependencies()
	if len(body.Context) > 0 {
		mc.Context().Update(body.Context)
	}

	if err := s.sessions.Save(r.Context(), id, mc.Snapshot()); err != nil {
		http.Error(w, fmt.Sprintf("Save error: %v", err), http.StatusInternalServerError)
		s.logger.Error("createChain: save failed", "session_id", id, "error", err)
		return
	}

	s.logger.Info("chain session created", "session_id", id, "steps", mc.StepCount())
	writeJSON(w, http.StatusCreated, s.describe(id, mc))
}

func (s *Server) stepChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mc := s.restore(w, r, id)
	if mc == nil {
		return
	}

	done, err := mc.ExecuteNextStep(r.Context())
	if err != nil {
		// The cursor did not advance, so persisting keeps the retry point.
		if saveErr := s.sessions.Save(r.Context(), id, mc.Snapshot()); saveErr != nil {
			s.logger.Error("stepChain: save after failure", "session_id", id, "error", saveErr)
		}
		http.Error(w, fmt.Sprintf("Step error: %v", err), http.StatusBadGateway)
		s.logger.Warn("chain step failed", "session_id", id, "cursor", mc.Cursor(), "error", err)
		return
	}

	if err := s.sessions.Save(r.Context(), id, mc.Snapshot()); err != nil {
		http.Error(w, fmt.Sprintf("Save error: %v", err), http.StatusInternalServerError)
		return
	}

	resp := s.describe(id, mc)
	resp.Done = done
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mc := s.restore(w, r, id)
	if mc == nil {
		return
	}

	if err := mc.Execute(r.Context(), false); err != nil {
		if saveErr := s.sessions.Save(r.Context(), id, mc.Snapshot()); saveErr != nil {
			s.logger.Error("runChain: save after failure", "session_id", id, "error", saveErr)
		}
		http.Error(w, fmt.Sprintf("Run error: %v", err), http.StatusBadGateway)
		s.logger.Warn("chain run failed", "session_id", id, "cursor", mc.Cursor(), "error", err)
		return
	}

	if err := s.sessions.Save(r.Context(), id, mc.Snapshot()); err != nil {
		http.Error(w, fmt.Sprintf("Save error: %v", err), http.StatusInternalServerError)
		return
	}

	resp := s.describe(id, mc)
	resp.Done = true
	resp.Context = mc.Context().Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mc := s.restore(w, r, id)
	if mc == nil {
		return
	}

	resp := s.describe(id, mc)
	resp.Done = mc.Status() == domain.StatusComplete
	resp.Context = mc.Context().Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.Info("chain session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listChains(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

// restore loads the session snapshot into a freshly built chain. On failure
// it writes the error response and returns nil.
func (s *Server) restore(w http.ResponseWriter, r *http.Request, id string) *chain.MatrixChain {
	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		return nil
	}

	mc, err := s.buildChain()
	if err != nil {
		http.Error(w, fmt.Sprintf("Chain build error: %v", err), http.StatusInternalServerError)
		return nil
	}
	if err := mc.Restore(state); err != nil {
		http.Error(w, fmt.Sprintf("Restore error: %v", err), http.StatusInternalServerError)
		s.logger.Error("restore failed", "session_id", id, "error", err)
		return nil
	}
	return mc
}

func (s *Server) buildChain() (*chain.MatrixChain, error) {
	mc, _, err := s.definition.Build(s.opts...)
	return mc, err
}

func (s *Server) describe(id string, mc *chain.MatrixChain) ChainResponse {
	return ChainResponse{
		SessionID: id,
		Status:    string(mc.Status()),
		Cursor:    mc.Cursor(),
		Steps:     mc.StepCount(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "session-fallback"
	}
	return hex.EncodeToString(buf)
}
