package domain

import (
	"time"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// Artifact is a named text file produced for a task.
type Artifact struct {
	ID        string                 `json:"id"`
	TaskID    string                 `json:"task_id"`
	Name      string                 `json:"name"`
	Path      string                 `json:"path"`
	Kind      constants.ArtifactKind `json:"kind"`
	Content   string                 `json:"content,omitempty"`
	Size      int                    `json:"size"`
	MimeType  string                 `json:"mime_type,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// GeneratedDeliverable is the bundle produced by one generation request.
// It is immutable once returned.
type GeneratedDeliverable struct {
	TaskID            string     `json:"task_id"`
	DeliverableID     string     `json:"deliverable_id"`
	BaseTemplateID    string     `json:"base_template_id"`
	Artifacts         []Artifact `json:"artifacts"`
	PreviewEntryPoint string     `json:"preview_entry_point,omitempty"`
}

// GameListItem summarizes a produced deliverable for listings.
type GameListItem struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	EntryPoint      string             `json:"entry_point"`
	GameKind        constants.GameKind `json:"game_kind,omitempty"`
	PreviewImageURL string             `json:"preview_image_url,omitempty"`
	IsGenerated     bool               `json:"is_generated"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// TestResult is the outcome of one deliverable check.
type TestResult struct {
	CaseID  string `json:"case_id"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}
