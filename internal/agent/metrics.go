package agent

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// Metrics collects metrics about agent runs and step execution.
// Implementations can forward these to a monitoring system.
type Metrics interface {
	// RunStarted is called when a start or resume launches a run.
	RunStarted(taskID string)

	// RunFinished is called when a run ends in a final or paused status.
	RunFinished(taskID string, duration time.Duration, status constants.AgentStatus)

	// StepExecuted is called after each work plan step reaches a final status.
	StepExecuted(taskID string, stepType constants.StepType, success bool)
}

// NoopMetrics is a no-op implementation of Metrics for default behavior.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Metrics interface.
var _ Metrics = (*NoopMetrics)(nil)

// RunStarted implements Metrics.
func (NoopMetrics) RunStarted(string) {}

// RunFinished implements Metrics.
func (NoopMetrics) RunFinished(string, time.Duration, constants.AgentStatus) {}

// StepExecuted implements Metrics.
func (NoopMetrics) StepExecuted(string, constants.StepType, bool) {}

// LogMetrics writes run and step metrics to a logger.
type LogMetrics struct {
	logger zerolog.Logger
}

// NewLogMetrics returns a Metrics that logs under component=metrics.
func NewLogMetrics(logger zerolog.Logger) *LogMetrics {
	return &LogMetrics{logger: logger.With().Str("component", "metrics").Logger()}
}

// RunStarted implements Metrics.
func (m *LogMetrics) RunStarted(taskID string) {
	m.logger.Debug().Str("task_id", taskID).Msg("run started")
}

// RunFinished implements Metrics.
func (m *LogMetrics) RunFinished(taskID string, duration time.Duration, status constants.AgentStatus) {
	m.logger.Info().
		Str("task_id", taskID).
		Dur("duration", duration).
		Str("status", string(status)).
		Msg("run finished")
}

// StepExecuted implements Metrics.
func (m *LogMetrics) StepExecuted(taskID string, stepType constants.StepType, success bool) {
	m.logger.Debug().
		Str("task_id", taskID).
		Str("step_type", string(stepType)).
		Bool("success", success).
		Msg("step executed")
}
