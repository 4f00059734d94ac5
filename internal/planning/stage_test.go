package planning

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/ai"
	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/testutil"
)

// mockGenerator is a scripted TextGenerator.
type mockGenerator struct {
	available bool
	reply     string
	err       error
	prompts   []string
}

func (m *mockGenerator) IsAvailable() bool { return m.available }

func (m *mockGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func newStage(gen ai.TextGenerator) (*Stage, *events.Recorder) {
	rec := events.NewRecorder(nil)
	fc := clock.NewFakeClock(time.UnixMilli(1_700_000_000_000))
	return New(gen, rec, zerolog.Nop(), WithClock(fc)), rec
}

func TestAnalyzeRequirement_Heuristic(t *testing.T) {
	stage, rec := newStage(nil)

	analysis, err := stage.AnalyzeRequirement(context.Background(), "t1", "A quiz about planets")
	require.NoError(t, err)
	assert.Equal(t, "A quiz about planets", analysis.OriginalInstruction)
	assert.Equal(t, []string{`Generate a game based on: "A quiz about planets"`}, analysis.ParsedRequirements)
	assert.NotEmpty(t, analysis.Goals)
	assert.False(t, analysis.NeedsClarification())

	assert.NotEmpty(t, rec.OfType(domain.EventThinking))
	assert.Len(t, rec.OfType(domain.EventAction), 1)
}

func TestAnalyzeRequirement_ComplexNeedsClarification(t *testing.T) {
	tests := []struct {
		name string
		gen  ai.TextGenerator
	}{
		{"heuristic", nil},
		{"unavailable generator", &mockGenerator{available: false}},
		{"generator", &mockGenerator{available: true, reply: `{"goals":["learn"]}`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stage, _ := newStage(tc.gen)
			analysis, err := stage.AnalyzeRequirement(context.Background(), "t1", "Build a COMPLEX puzzle game")
			require.NoError(t, err)
			require.True(t, analysis.NeedsClarification())
			assert.Contains(t, analysis.ClarificationsNeeded[0], "complex")
		})
	}
}

func TestAnalyzeRequirement_Generator(t *testing.T) {
	gen := &mockGenerator{
		available: true,
		reply: "Sure! Here it is:\n```json\n" + `{
  "parsed_requirements": ["10 questions", " "],
  "constraints": ["ages 8-10"],
  "goals": ["learn fractions"],
  "clarifications_needed": [],
  "details": {"question_count": 10}
}` + "\n```",
	}
	stage, _ := newStage(gen)

	analysis, err := stage.AnalyzeRequirement(context.Background(), "t1", "fractions quiz")
	require.NoError(t, err)
	assert.Equal(t, []string{"10 questions"}, analysis.ParsedRequirements)
	assert.Equal(t, []string{"ages 8-10"}, analysis.Constraints)
	assert.Equal(t, []string{"learn fractions"}, analysis.Goals)
	assert.False(t, analysis.NeedsClarification())
	assert.InDelta(t, 10.0, analysis.Details["question_count"], 0.001)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "fractions quiz")
}

func TestAnalyzeRequirement_GeneratorFailure(t *testing.T) {
	gen := &mockGenerator{available: true, err: testutil.ErrMockBackendDown}
	stage, _ := newStage(gen)

	_, err := stage.AnalyzeRequirement(context.Background(), "t1", "quiz")
	require.ErrorIs(t, err, gserrors.ErrAnalysisFailed)
	require.ErrorIs(t, err, testutil.ErrMockBackendDown)
}

func TestAnalyzeRequirement_UnparseableReply(t *testing.T) {
	gen := &mockGenerator{available: true, reply: "I cannot help with that."}
	stage, _ := newStage(gen)

	_, err := stage.AnalyzeRequirement(context.Background(), "t1", "quiz")
	require.ErrorIs(t, err, gserrors.ErrAnalysisFailed)
}

func TestAnalyzeRequirement_Canceled(t *testing.T) {
	stage, _ := newStage(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stage.AnalyzeRequirement(ctx, "t1", "quiz")
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerateWorkPlan(t *testing.T) {
	stage, rec := newStage(nil)
	analysis := heuristicAnalysis("quiz")

	plan, err := stage.GenerateWorkPlan(context.Background(), "t1", analysis)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "t1", plan.TaskID)
	assert.Equal(t, 0, plan.CurrentStepIndex)
	assert.True(t, plan.HasGenerationStep())

	wantTypes := []constants.StepType{
		constants.StepTypeCreateFile,
		constants.StepTypeGenerateGameCode,
		constants.StepTypeModifyFile,
		constants.StepTypeCreateFile,
		constants.StepTypeModifyFile,
		constants.StepTypeRunTests,
		constants.StepTypeReviewCode,
	}
	wantSeconds := []int{300, 1200, 1200, 900, 600, 700, 400}
	require.Len(t, plan.Steps, len(wantTypes))

	ids := make(map[string]bool)
	for i, step := range plan.Steps {
		assert.Equal(t, wantTypes[i], step.Type, "step %d", i)
		assert.Equal(t, wantSeconds[i], step.EstimatedSeconds, "step %d", i)
		assert.Equal(t, constants.StepStatusPending, step.Status)
		assert.False(t, ids[step.ID], "duplicate step id")
		ids[step.ID] = true

		if step.Type == constants.StepTypeCreateFile || step.Type == constants.StepTypeModifyFile {
			require.NotEmpty(t, step.RelatedArtifacts, "step %d", i)
			for _, p := range step.RelatedArtifacts {
				assert.Contains(t, p, "t1/workspace/")
			}
		}
	}
	assert.Equal(t, 5300, plan.RemainingSeconds())
	assert.NotEmpty(t, rec.OfType(domain.EventThinking))
}

func TestGenerateWorkPlan_NilAnalysis(t *testing.T) {
	stage, _ := newStage(nil)
	_, err := stage.GenerateWorkPlan(context.Background(), "t1", nil)
	require.ErrorIs(t, err, gserrors.ErrEmptyValue)
}

func TestProposeSolution(t *testing.T) {
	t.Run("stub", func(t *testing.T) {
		stage, _ := newStage(nil)
		p, err := stage.ProposeSolution(context.Background(), "t1", domain.ProblemDetails{Description: "scores reset"})
		require.NoError(t, err)
		assert.Equal(t, "problem-1700000000000", p.ProblemID)
		assert.Equal(t, "medium", p.EstimatedEffort)
		assert.InDelta(t, 0.75, p.ConfidenceScore, 0.0001)
		assert.Equal(t, stubSolution, p.ProposedSolution)
	})

	t.Run("generated", func(t *testing.T) {
		gen := &mockGenerator{available: true, reply: "  Persist the score in localStorage.  "}
		stage, _ := newStage(gen)
		p, err := stage.ProposeSolution(context.Background(), "t1", domain.ProblemDetails{
			Description:    "scores reset",
			PossibleCauses: []string{"page reload"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Persist the score in localStorage.", p.ProposedSolution)
		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "page reload")
	})

	t.Run("generator failure falls back", func(t *testing.T) {
		gen := &mockGenerator{available: true, err: testutil.ErrMockBackendDown}
		stage, rec := newStage(gen)
		p, err := stage.ProposeSolution(context.Background(), "t1", domain.ProblemDetails{Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, stubSolution, p.ProposedSolution)

		var warned bool
		for _, d := range rec.OfType(domain.EventLog) {
			if e, ok := d.(domain.LogEntry); ok && e.Level == constants.LogWarning {
				warned = true
			}
		}
		assert.True(t, warned)
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"no json here", "", false},
		{"} backwards {", "", false},
	}
	for _, tc := range tests {
		got, ok := extractJSON(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
