package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	assert.Equal(t, []PromptID{RequirementAnalysis, SolutionProposal}, List())
	assert.True(t, Exists(RequirementAnalysis))
	assert.False(t, Exists("planning/missing"))
}

func TestRenderAnalysis(t *testing.T) {
	out, err := Render(RequirementAnalysis, AnalysisData{
		Instruction: "A quiz about the solar system",
		GameKind:    "quiz",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "A quiz about the solar system")
	assert.Contains(t, out, "Game kind: quiz")
	assert.Contains(t, out, `"clarifications_needed"`)
	assert.Contains(t, out, "educational browser mini-game")
}

func TestRenderAnalysis_NoKind(t *testing.T) {
	out, err := Render(RequirementAnalysis, AnalysisData{Instruction: "x"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Game kind:")
}

func TestRenderSolution(t *testing.T) {
	out, err := Render(SolutionProposal, SolutionData{
		Description:    "scores reset on reload",
		PossibleCauses: []string{"no persistence", "state kept in memory"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Problem: scores reset on reload")
	assert.Contains(t, out, "- no persistence")
	assert.Contains(t, out, "- state kept in memory")
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(RequirementAnalysis, SolutionData{})
	require.ErrorIs(t, err, ErrInvalidData)

	_, err = Render("planning/missing", nil)
	require.ErrorIs(t, err, ErrTemplateNotFound)
}
