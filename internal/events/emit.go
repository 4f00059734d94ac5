package events

import (
	"github.com/google/uuid"

	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// Emitter publishes the fine-grained events of one pipeline stage.
// Log messages are prefixed with the stage name.
type Emitter struct {
	pub    Publisher
	clock  clock.Clock
	prefix string
}

// NewEmitter creates an Emitter. A nil publisher discards everything.
// Every method requires a non-nil receiver except Log and Publish.
func NewEmitter(pub Publisher, clk clock.Clock, prefix string) *Emitter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Emitter{pub: pub, clock: clk, prefix: prefix}
}

func (e *Emitter) publish(taskID string, eventType domain.EventType, data any) {
	if e == nil || e.pub == nil {
		return
	}
	e.pub.Publish(taskID, eventType, data)
}

// Thinking publishes a thinking event and mirrors it as an info log.
func (e *Emitter) Thinking(taskID, text string) {
	e.publish(taskID, domain.EventThinking, domain.ThinkingPayload{Text: text})
	e.Log(taskID, constants.LogInfo, text, nil)
}

// Action publishes an action event stamped with the current time.
func (e *Emitter) Action(taskID string, kind constants.ActionKind, description, target string, details map[string]any) domain.Action {
	a := domain.Action{
		Kind:        kind,
		Description: description,
		Target:      target,
		Timestamp:   e.clock.Now().UTC(),
		Details:     details,
	}
	e.publish(taskID, domain.EventAction, a)
	return a
}

// Log publishes a log event.
func (e *Emitter) Log(taskID string, level constants.LogLevel, message string, ctx map[string]any) {
	if e == nil {
		return
	}
	if e.prefix != "" {
		message = e.prefix + ": " + message
	}
	e.publish(taskID, domain.EventLog, domain.LogEntry{
		ID:        uuid.NewString(),
		Message:   message,
		Level:     level,
		Timestamp: e.clock.Now().UTC(),
		Context:   ctx,
	})
}

// Progress publishes a progress event.
func (e *Emitter) Progress(taskID string, p domain.ProgressPayload) {
	e.publish(taskID, domain.EventProgress, p)
}

// Publish forwards an arbitrary event.
func (e *Emitter) Publish(taskID string, eventType domain.EventType, data any) {
	e.publish(taskID, eventType, data)
}
