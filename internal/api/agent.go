package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mrz1836/gamesmith/internal/agent"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// Control actions accepted by POST /api/agent/control.
const (
	ActionStart  = "start"
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStop   = "stop"
)

// ControlRequest is the body of POST /api/agent/control. Input answers a
// pending clarification when resuming.
type ControlRequest struct {
	ProjectID   string `json:"projectId"`
	Action      string `json:"action"`
	Instruction string `json:"instruction,omitempty"`
	Input       string `json:"input,omitempty"`
}

// ControlResponse carries the task state after a control call.
type ControlResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	State   *domain.TaskState `json:"state"`
}

// handleControl handles POST /api/agent/control.
// A rejected transition answers 409 with the unchanged state.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if req.ProjectID == "" {
		s.writeError(w, r, fmt.Errorf("projectId %w", gserrors.ErrEmptyValue))
		return
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case ActionStart, ActionPause, ActionResume, ActionStop:
	default:
		s.writeError(w, r, fmt.Errorf("%w: %q", gserrors.ErrInvalidAction, req.Action))
		return
	}

	ctl, err := s.controller(r, req.ProjectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log := s.logger.With().Str("task_id", req.ProjectID).Str("action", action).Logger()
	switch action {
	case ActionStart:
		err = ctl.Start(r.Context(), req.Instruction)
	case ActionPause:
		err = ctl.Pause()
	case ActionResume:
		if input := strings.TrimSpace(req.Input); input != "" {
			err = ctl.ResumeWithInput(input)
		} else {
			err = ctl.Resume()
		}
	case ActionStop:
		ctl.Stop()
	}

	state := ctl.State()
	if err != nil {
		log.Info().Err(err).Msg("control call rejected")
		message, _ := gserrors.Actionable(err)
		writeJSON(w, statusFor(err), ControlResponse{Success: false, Message: message, State: state})
		return
	}
	log.Debug().Str("status", string(state.Status)).Msg("control call accepted")
	writeJSON(w, http.StatusOK, ControlResponse{Success: true, State: state})
}

// handleState handles GET /api/agent/state?projectId=.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("projectId")
	if id == "" {
		s.writeError(w, r, fmt.Errorf("projectId %w", gserrors.ErrEmptyValue))
		return
	}
	ctl, err := s.controller(r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctl.State())
}

// controller returns the registered controller for id, creating it from the
// stored project on first use.
func (s *Server) controller(r *http.Request, id string) (*agent.Controller, error) {
	p, err := s.projects.Get(r.Context(), id)
	if err != nil {
		if ctl, ok := s.registry.Get(id); ok {
			return ctl, nil
		}
		return nil, err
	}
	return s.registry.GetOrCreate(p), nil
}

// StateProvider adapts the registry to the websocket hub's initial sync.
func (s *Server) StateProvider(taskID string) any {
	ctl, ok := s.registry.Get(taskID)
	if !ok {
		return nil
	}
	return ctl.State()
}
