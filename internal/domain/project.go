// Package domain provides shared domain types for the gamesmith agent core.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"slices"
	"time"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// Project is the external unit of work the agent operates on: one request
// for an educational mini-game. The agent core treats it as read-mostly
// context and mirrors its final run status back through a ProjectUpdater.
//
// Example JSON representation:
//
//	{
//	    "id": "3f0e...",
//	    "name": "Solar System Quiz",
//	    "description": "create a quiz about the solar system",
//	    "game_kind": "quiz",
//	    "owner_id": "u-1",
//	    "status": "in_progress",
//	    "current_stage": "coding",
//	    "progress_percent": 40
//	}
type Project struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
	Description     string                     `json:"description"`
	GameKind        constants.GameKind         `json:"game_kind,omitempty"`
	OwnerID         string                     `json:"owner_id,omitempty"`
	Status          constants.ProjectStatus    `json:"status"`
	CurrentStage    constants.DevelopmentStage `json:"current_stage"`
	ProgressPercent int                        `json:"progress_percent"`
	Tags            []string                   `json:"tags,omitempty"`
	Version         string                     `json:"version,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = slices.Clone(p.Tags)
	return &c
}

// ProjectUpdate is the status mirror the agent sends back to project storage.
type ProjectUpdate struct {
	Status          constants.ProjectStatus
	CurrentStage    constants.DevelopmentStage
	ProgressPercent int
}
