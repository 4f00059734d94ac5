// Package api exposes the agent core over HTTP: control calls, state reads,
// project CRUD, template listing, generated game previews and the event
// websocket.
//
// Import rules:
//   - CAN import: internal/agent, internal/registry, internal/project, internal/generator,
//     internal/artifact, internal/events, internal/domain, internal/constants, internal/errors
//   - MUST NOT import: internal/cli
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/artifact"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/generator"
	"github.com/mrz1836/gamesmith/internal/project"
	"github.com/mrz1836/gamesmith/internal/registry"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	registry  *registry.Registry
	projects  project.Store
	templates *generator.Registry
	artifacts artifact.Store
	hub       *events.Hub
	origins   []string
	logger    zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHub mounts the websocket hub on /ws.
func WithHub(h *events.Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithAllowedOrigins restricts CORS to origins. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// New creates the API server.
func New(reg *registry.Registry, projects project.Store, templates *generator.Registry, artifacts artifact.Store, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		registry:  reg,
		projects:  projects,
		templates: templates,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler with all routes.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/agent/control", s.handleControl)
	mux.HandleFunc("GET /api/agent/state", s.handleState)

	mux.HandleFunc("GET /api/projects", s.listProjects)
	mux.HandleFunc("POST /api/projects", s.createProject)
	mux.HandleFunc("GET /api/projects/{id}", s.getProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProject)

	mux.HandleFunc("GET /api/templates", s.listTemplates)
	mux.HandleFunc("GET /api/games/{path...}", s.serveGame)

	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	}

	return s.cors(mux)
}

// cors adds CORS headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.origins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(s.origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"controllers": s.registry.Len(),
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a user-facing body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message, action := gserrors.Actionable(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: message, Action: action, Detail: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gserrors.ErrProjectNotFound),
		errors.Is(err, gserrors.ErrArtifactNotFound),
		errors.Is(err, gserrors.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, gserrors.ErrInvalidTransition),
		errors.Is(err, gserrors.ErrProjectExists):
		return http.StatusConflict
	case errors.Is(err, gserrors.ErrEmptyValue),
		errors.Is(err, gserrors.ErrInvalidAction),
		errors.Is(err, gserrors.ErrPathTraversal):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
