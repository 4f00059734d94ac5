package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/gamesmith/internal/constants"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from constants.AgentStatus
		to   constants.AgentStatus
		want bool
	}{
		{"idle to thinking", constants.AgentStatusIdle, constants.AgentStatusThinking, true},
		{"idle to coding", constants.AgentStatusIdle, constants.AgentStatusCoding, false},
		{"thinking to coding", constants.AgentStatusThinking, constants.AgentStatusCoding, true},
		{"coding to testing", constants.AgentStatusCoding, constants.AgentStatusTesting, true},
		{"testing back to coding", constants.AgentStatusTesting, constants.AgentStatusCoding, true},
		{"paused to thinking", constants.AgentStatusPaused, constants.AgentStatusThinking, true},
		{"paused to coding", constants.AgentStatusPaused, constants.AgentStatusCoding, false},
		{"completed to thinking", constants.AgentStatusCompleted, constants.AgentStatusThinking, true},
		{"error to completed", constants.AgentStatusError, constants.AgentStatusCompleted, false},
		{"anything to idle", constants.AgentStatusTesting, constants.AgentStatusIdle, true},
		{"self transition", constants.AgentStatusCoding, constants.AgentStatusCoding, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestControlGuards(t *testing.T) {
	all := []constants.AgentStatus{
		constants.AgentStatusIdle,
		constants.AgentStatusThinking,
		constants.AgentStatusCoding,
		constants.AgentStatusTesting,
		constants.AgentStatusPaused,
		constants.AgentStatusCompleted,
		constants.AgentStatusError,
	}
	starts := map[constants.AgentStatus]bool{
		constants.AgentStatusIdle:      true,
		constants.AgentStatusPaused:    true,
		constants.AgentStatusCompleted: true,
		constants.AgentStatusError:     true,
	}
	pauses := map[constants.AgentStatus]bool{
		constants.AgentStatusThinking: true,
		constants.AgentStatusCoding:   true,
		constants.AgentStatusTesting:  true,
	}
	for _, s := range all {
		assert.Equal(t, starts[s], CanStart(s), "start from %s", s)
		assert.Equal(t, pauses[s], CanPause(s), "pause from %s", s)
		assert.Equal(t, s == constants.AgentStatusPaused, CanResume(s), "resume from %s", s)
	}
}
