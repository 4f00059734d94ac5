package agent

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/constants"
)

func TestLogMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMetrics(zerolog.New(&buf).Level(zerolog.DebugLevel))

	m.RunStarted("t1")
	m.StepExecuted("t1", constants.StepTypeCreateFile, true)
	m.RunFinished("t1", 1500*time.Millisecond, constants.AgentStatusCompleted)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "metrics", last["component"])
	assert.Equal(t, "completed", last["status"])
	assert.Equal(t, "run finished", last["message"])
	assert.InDelta(t, 1500, last["duration"], 0.001)
}
