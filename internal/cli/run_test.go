package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	"github.com/mrz1836/gamesmith/internal/errors"
)

// jsonLines splits run output into lines that parse as JSON objects.
func jsonLines(t *testing.T, out string) []map[string]json.RawMessage {
	t.Helper()
	var lines []map[string]json.RawMessage
	for _, line := range strings.Split(out, "\n") {
		var m map[string]json.RawMessage
		if json.Unmarshal([]byte(line), &m) == nil {
			lines = append(lines, m)
		}
	}
	return lines
}

func resultOf(t *testing.T, out string) runResult {
	t.Helper()
	lines := jsonLines(t, out)
	for i := len(lines) - 1; i >= 0; i-- {
		if string(lines[i]["type"]) == `"result"` {
			raw, err := json.Marshal(lines[i])
			require.NoError(t, err)
			var r runResult
			require.NoError(t, json.Unmarshal(raw, &r))
			return r
		}
	}
	require.FailNow(t, "no result line", out)
	return runResult{}
}

func TestRunCmd_CompletesAndStreamsEvents(t *testing.T) {
	out, err := execute(t, BuildInfo{}, "run", "create a quiz about planets",
		"--kind", "quiz", "--ephemeral", "--step-delay", "0s", "--output", "json", "--quiet")
	require.NoError(t, err, out)

	result := resultOf(t, out)
	require.NotNil(t, result.State)
	assert.Equal(t, constants.AgentStatusCompleted, result.State.Status)
	assert.Equal(t, 100, result.State.ProgressPercent)
	require.NotNil(t, result.Deliverable)
	assert.Equal(t, "quiz-basic", result.Deliverable.BaseTemplateID)

	var types []string
	for _, line := range jsonLines(t, out) {
		var typ string
		if json.Unmarshal(line["type"], &typ) == nil {
			types = append(types, typ)
		}
	}
	assert.Contains(t, types, string(domain.EventThinking))
	assert.Contains(t, types, string(domain.EventArtifactCreated))
	assert.Contains(t, types, string(domain.EventPreviewUpdated))
}

func TestRunCmd_TextOutput(t *testing.T) {
	out, err := execute(t, BuildInfo{}, "run", "create", "a", "quiz", "about", "planets",
		"--kind", "quiz", "--ephemeral", "--step-delay", "0s", "--quiet")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ completed")
	assert.Contains(t, out, "quiz-basic")
	assert.Contains(t, out, "preview:")
}

func TestRunCmd_Clarification(t *testing.T) {
	t.Run("without answer the run stays paused", func(t *testing.T) {
		out, err := execute(t, BuildInfo{}, "run", "a complex quiz",
			"--kind", "quiz", "--ephemeral", "--step-delay", "0s", "--output", "json", "--quiet")
		require.ErrorIs(t, err, errors.ErrRunFailed)
		assert.Equal(t, constants.AgentStatusPaused, resultOf(t, out).State.Status)
	})

	t.Run("answer resumes the run", func(t *testing.T) {
		out, err := execute(t, BuildInfo{}, "run", "a complex quiz", "--answer", "two levels",
			"--kind", "quiz", "--ephemeral", "--step-delay", "0s", "--output", "json", "--quiet")
		require.NoError(t, err, out)
		assert.Equal(t, constants.AgentStatusCompleted, resultOf(t, out).State.Status)
	})
}

func TestRunCmd_RequiresInstruction(t *testing.T) {
	_, err := execute(t, BuildInfo{}, "run")
	require.Error(t, err)

	_, err = execute(t, BuildInfo{}, "run", "   ", "--ephemeral")
	require.ErrorIs(t, err, errors.ErrEmptyValue)
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "create a quiz", deriveName("  create a quiz "))
	assert.Equal(t, "one two three four five six", deriveName("one two three four five six seven"))

	p := newProject("", "sort animals by habitat", constants.GameKindSorting)
	assert.Equal(t, "sort animals by habitat", p.Name)
	assert.Equal(t, constants.ProjectStatusPlanning, p.Status)
	assert.NotEmpty(t, p.ID)
}
