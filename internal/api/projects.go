package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	GameKind    constants.GameKind `json:"game_kind,omitempty"`
	OwnerID     string             `json:"owner_id,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
}

// listProjects handles GET /api/projects.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// createProject handles POST /api/projects.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" && req.Description == "" {
		s.writeError(w, r, fmt.Errorf("name or description %w", gserrors.ErrEmptyValue))
		return
	}
	if req.Name == "" {
		req.Name = req.Description
	}

	p := &domain.Project{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		GameKind:     req.GameKind,
		OwnerID:      req.OwnerID,
		Tags:         req.Tags,
		Status:       constants.ProjectStatusPlanning,
		CurrentStage: constants.StageRequirementAnalysis,
		Version:      "1.0.0",
	}
	if err := s.projects.Create(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info().Str("task_id", p.ID).Str("game_kind", string(p.GameKind)).Msg("project created")
	writeJSON(w, http.StatusCreated, p)
}

// getProject handles GET /api/projects/{id}.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// deleteProject handles DELETE /api/projects/{id}. A running agent is stopped first.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed := s.registry.Remove(id)
	if err := s.projects.Delete(r.Context(), id); err != nil {
		if !removed || !errors.Is(err, gserrors.ErrProjectNotFound) {
			s.writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// listTemplates handles GET /api/templates.
func (s *Server) listTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.templates.Manifests())
}
