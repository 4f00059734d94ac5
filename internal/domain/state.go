package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// TaskState is the run state of one task controller. It is owned and
// exclusively mutated by the controller; everyone else sees copies.
//
// Status and CurrentStage are independent axes: Status is run control,
// CurrentStage is pipeline position.
type TaskState struct {
	TaskID                    string                     `json:"task_id"`
	CurrentTaskSummary        string                     `json:"current_task_summary"`
	Status                    constants.AgentStatus      `json:"status"`
	CurrentStage              constants.DevelopmentStage `json:"current_stage"`
	ProgressPercent           int                        `json:"progress_percent"`
	LastAction                Action                     `json:"last_action"`
	LogEntries                []LogEntry                 `json:"log_entries"`
	ThoughtSteps              []ThoughtStep              `json:"thought_steps"`
	EstimatedSecondsRemaining int                        `json:"estimated_seconds_remaining"`
	Error                     *ErrorInfo                 `json:"error,omitempty"`
}

// Action describes the last thing the agent did.
type Action struct {
	Kind        constants.ActionKind `json:"kind"`
	Description string               `json:"description"`
	Target      string               `json:"target,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	Details     map[string]any       `json:"details,omitempty"`
}

// LogEntry is one operational log line kept in TaskState.
type LogEntry struct {
	ID        string             `json:"id"`
	Message   string             `json:"message"`
	Level     constants.LogLevel `json:"level"`
	Timestamp time.Time          `json:"timestamp"`
	Context   map[string]any     `json:"context,omitempty"`
}

// ThoughtStep is one unit of the agent's recorded reasoning.
type ThoughtStep struct {
	ID           string                  `json:"id"`
	Stage        string                  `json:"stage"`
	Description  string                  `json:"description"`
	Status       constants.ThoughtStatus `json:"status"`
	Timestamp    time.Time               `json:"timestamp"`
	Decision     string                  `json:"decision,omitempty"`
	Alternatives []string                `json:"alternatives,omitempty"`
}

// ErrorInfo is the error surfaced on TaskState when Status is error.
type ErrorInfo struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Clone returns a deep copy of the state so callers cannot mutate controller internals.
// Map-valued details are copied one level deep.
func (s *TaskState) Clone() *TaskState {
	if s == nil {
		return nil
	}
	c := *s
	c.LastAction.Details = maps.Clone(s.LastAction.Details)

	c.LogEntries = make([]LogEntry, len(s.LogEntries))
	for i, e := range s.LogEntries {
		e.Context = maps.Clone(e.Context)
		c.LogEntries[i] = e
	}

	c.ThoughtSteps = make([]ThoughtStep, len(s.ThoughtSteps))
	for i, t := range s.ThoughtSteps {
		t.Alternatives = slices.Clone(t.Alternatives)
		c.ThoughtSteps[i] = t
	}

	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return &c
}
