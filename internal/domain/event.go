package domain

import (
	"time"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// EventType names an event kind on the task event bus.
type EventType string

// Event types published per task.
const (
	EventState               EventType = "state"
	EventThinking            EventType = "thinking"
	EventAction              EventType = "action"
	EventProgress            EventType = "progress"
	EventLog                 EventType = "log"
	EventArtifactCreated     EventType = "artifact_created"
	EventArtifactUpdated     EventType = "artifact_updated"
	EventArtifactDeleted     EventType = "artifact_deleted"
	EventPreviewUpdated      EventType = "preview_updated"
	EventDeliverableProduced EventType = "deliverable_produced"
)

// Event is one message published on a task topic.
type Event struct {
	Topic     string    `json:"topic"`
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ThinkingPayload carries free-text reasoning progress.
type ThinkingPayload struct {
	Text string `json:"text"`
}

// ProgressPayload carries pipeline position.
type ProgressPayload struct {
	Stage      constants.DevelopmentStage `json:"stage"`
	Percent    int                        `json:"percent"`
	ETASeconds int                        `json:"eta_seconds"`
	Message    string                     `json:"message,omitempty"`
}

// ArtifactUpdatedPayload carries an artifact modification.
type ArtifactUpdatedPayload struct {
	ArtifactID string         `json:"artifact_id"`
	Path       string         `json:"path"`
	Changes    map[string]any `json:"changes"`
}

// ArtifactDeletedPayload carries an artifact removal.
type ArtifactDeletedPayload struct {
	ArtifactID string `json:"artifact_id"`
	Path       string `json:"path"`
}

// PreviewUpdatedPayload carries a new preview url.
type PreviewUpdatedPayload struct {
	URL string `json:"url"`
}
