package agent

import (
	"slices"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// ValidTransitions defines the status changes a control call or the run
// itself may make. Stop is valid from every status and is not listed.
//
//	Idle → Thinking
//	Thinking → Coding, Paused, Completed, Error
//	Coding → Testing, Paused, Completed, Error
//	Testing → Coding, Paused, Completed, Error
//	Paused → Thinking
//	Completed → Thinking
//	Error → Thinking
//
//nolint:gochecknoglobals // Read-only lookup table
var ValidTransitions = map[constants.AgentStatus][]constants.AgentStatus{
	constants.AgentStatusIdle: {constants.AgentStatusThinking},
	constants.AgentStatusThinking: {
		constants.AgentStatusCoding,
		constants.AgentStatusPaused,
		constants.AgentStatusCompleted,
		constants.AgentStatusError,
	},
	constants.AgentStatusCoding: {
		constants.AgentStatusTesting,
		constants.AgentStatusPaused,
		constants.AgentStatusCompleted,
		constants.AgentStatusError,
	},
	constants.AgentStatusTesting: {
		constants.AgentStatusCoding,
		constants.AgentStatusPaused,
		constants.AgentStatusCompleted,
		constants.AgentStatusError,
	},
	constants.AgentStatusPaused:    {constants.AgentStatusThinking},
	constants.AgentStatusCompleted: {constants.AgentStatusThinking},
	constants.AgentStatusError:     {constants.AgentStatusThinking},
}

// IsValidTransition checks if a transition from one status to another is allowed.
// Moving to idle is always allowed.
func IsValidTransition(from, to constants.AgentStatus) bool {
	if to == constants.AgentStatusIdle {
		return true
	}
	if from == to {
		return false
	}
	return slices.Contains(ValidTransitions[from], to)
}

// CanStart reports whether Start is accepted from status.
func CanStart(status constants.AgentStatus) bool {
	return status == constants.AgentStatusIdle ||
		status == constants.AgentStatusPaused ||
		status == constants.AgentStatusCompleted ||
		status == constants.AgentStatusError
}

// CanPause reports whether Pause is accepted from status.
func CanPause(status constants.AgentStatus) bool {
	return status.IsActive()
}

// CanResume reports whether Resume is accepted from status.
func CanResume(status constants.AgentStatus) bool {
	return status == constants.AgentStatusPaused
}
