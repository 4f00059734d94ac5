// Package planning turns a natural-language instruction into a requirement
// analysis and an ordered work plan.
//
// When a text generator is available the analysis comes from the model;
// otherwise a deterministic heuristic is used. The work plan is always the
// deterministic default plan.
package planning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/ai"
	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/ctxutil"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
)

// clarificationKeyword triggers a clarification request in any analysis.
const clarificationKeyword = "complex"

// complexityQuestion is asked when the instruction mentions complexity.
const complexityQuestion = "Could you specify what 'complex' entails? e.g., number of levels, specific mechanics."

// Stage is the planning stage of the agent pipeline.
type Stage struct {
	generator ai.TextGenerator
	emit      *events.Emitter
	clock     clock.Clock
	logger    zerolog.Logger
}

// Option configures a Stage.
type Option func(*Stage)

// WithClock sets the clock used for ids and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Stage) {
		s.clock = c
	}
}

// New creates a planning stage. gen may be nil or unavailable.
func New(gen ai.TextGenerator, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Stage {
	s := &Stage{
		generator: gen,
		clock:     clock.RealClock{},
		logger:    logger.With().Str("component", "planning").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.emit = events.NewEmitter(pub, s.clock, "Planning")
	return s
}

func (s *Stage) hasGenerator() bool {
	return s.generator != nil && s.generator.IsAvailable()
}

// AnalyzeRequirement produces the structured reading of instruction.
// Generator failures return ErrAnalysisFailed. Without a generator the
// heuristic analysis is used and the call only fails on a canceled context.
func (s *Stage) AnalyzeRequirement(ctx context.Context, taskID, instruction string) (*domain.RequirementAnalysis, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	log := s.logger.With().Str("task_id", taskID).Logger()

	s.emit.Log(taskID, constants.LogInfo, "Analyzing requirement", map[string]any{"instruction": instruction})
	s.emit.Thinking(taskID, fmt.Sprintf("Analyzing instruction: %q", instruction))

	var analysis *domain.RequirementAnalysis
	if s.hasGenerator() {
		prompt, err := analysisPrompt(instruction)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", gserrors.ErrAnalysisFailed, err)
		}
		reply, err := s.generator.GenerateText(ctx, prompt)
		if err != nil {
			log.Error().Err(err).Msg("requirement analysis call failed")
			return nil, fmt.Errorf("%w: %w", gserrors.ErrAnalysisFailed, err)
		}
		parsed, err := parseAnalysis(reply, instruction)
		if err != nil {
			log.Error().Err(err).Msg("requirement analysis reply unusable")
			return nil, fmt.Errorf("%w: %w", gserrors.ErrAnalysisFailed, err)
		}
		analysis = parsed
	} else {
		analysis = heuristicAnalysis(instruction)
	}

	if strings.Contains(strings.ToLower(instruction), clarificationKeyword) && !analysis.NeedsClarification() {
		analysis.ClarificationsNeeded = []string{complexityQuestion}
	}
	if analysis.NeedsClarification() {
		s.emit.Thinking(taskID, "Instruction seems to mention complexity, clarification might be needed.")
	}

	log.Debug().
		Int("requirements", len(analysis.ParsedRequirements)).
		Int("clarifications", len(analysis.ClarificationsNeeded)).
		Bool("generated", s.hasGenerator()).
		Msg("requirement analysis complete")

	s.emit.Thinking(taskID, "Requirement analysis complete.")
	s.emit.Action(taskID, constants.ActionAnalyze, "Completed requirement analysis", "", map[string]any{
		"parsed_requirements":   analysis.ParsedRequirements,
		"clarifications_needed": analysis.ClarificationsNeeded,
	})
	return analysis, nil
}

// heuristicAnalysis is the deterministic analysis used without a generator.
func heuristicAnalysis(instruction string) *domain.RequirementAnalysis {
	return &domain.RequirementAnalysis{
		OriginalInstruction: instruction,
		ParsedRequirements:  []string{fmt.Sprintf("Generate a game based on: %q", instruction)},
		Constraints:         []string{"Single-page HTML5 game using plain HTML, CSS and JavaScript"},
		Goals:               []string{"Create a functional and engaging game"},
	}
}

// GenerateWorkPlan returns the default plan for analysis. Every step is
// pending and the plan starts at step 0.
func (s *Stage) GenerateWorkPlan(ctx context.Context, taskID string, analysis *domain.RequirementAnalysis) (*domain.WorkPlan, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, fmt.Errorf("requirement analysis %w", gserrors.ErrEmptyValue)
	}

	s.emit.Thinking(taskID, "Generating work plan for: "+strings.Join(analysis.Goals, ", "))

	plan := &domain.WorkPlan{
		ID:               uuid.NewString(),
		TaskID:           taskID,
		OverallGoal:      strings.Join(analysis.Goals, "; "),
		Steps:            defaultSteps(taskID),
		CurrentStepIndex: 0,
	}

	s.logger.Debug().
		Str("task_id", taskID).
		Str("plan_id", plan.ID).
		Int("steps", len(plan.Steps)).
		Msg("work plan generated")

	s.emit.Thinking(taskID, "Work plan generated.")
	s.emit.Action(taskID, constants.ActionAnalyze, "Generated work plan", "", map[string]any{
		"plan_id": plan.ID,
		"steps":   len(plan.Steps),
	})
	return plan, nil
}

// WorkspacePath returns the path of a scratch file inside the task namespace.
func WorkspacePath(taskID, name string) string {
	return taskID + "/workspace/" + name
}

// defaultSteps builds the fixed seven-step plan. File steps name the
// artifacts they touch so the executors have concrete targets.
func defaultSteps(taskID string) []domain.WorkPlanStep {
	gameJS := WorkspacePath(taskID, "src/game.js")
	steps := []domain.WorkPlanStep{
		{
			Description:      "Setup project structure",
			Type:             constants.StepTypeCreateFile,
			EstimatedSeconds: 300,
			RelatedArtifacts: []string{WorkspacePath(taskID, "README.md"), WorkspacePath(taskID, "game.json")},
		},
		{
			Description:      "Generate game assets and initial code",
			Type:             constants.StepTypeGenerateGameCode,
			EstimatedSeconds: 1200,
		},
		{
			Description:      "Develop core game logic",
			Type:             constants.StepTypeModifyFile,
			EstimatedSeconds: 1200,
			RelatedArtifacts: []string{gameJS},
		},
		{
			Description:      "Create UI components",
			Type:             constants.StepTypeCreateFile,
			EstimatedSeconds: 900,
			RelatedArtifacts: []string{WorkspacePath(taskID, "src/ui.js"), WorkspacePath(taskID, "src/ui.css")},
		},
		{
			Description:      "Implement scoring and levels",
			Type:             constants.StepTypeModifyFile,
			EstimatedSeconds: 600,
			RelatedArtifacts: []string{gameJS},
		},
		{
			Description:      "Test and debug",
			Type:             constants.StepTypeRunTests,
			EstimatedSeconds: 700,
		},
		{
			Description:      "Final review and optimization",
			Type:             constants.StepTypeReviewCode,
			EstimatedSeconds: 400,
		},
	}
	for i := range steps {
		steps[i].ID = uuid.NewString()
		steps[i].Status = constants.StepStatusPending
	}
	return steps
}

// Stub proposal values used when no generator answers.
const (
	stubSolution   = "Refactor the problematic module and add more unit tests."
	stubReasoning  = "The module seems to have high complexity and low test coverage, leading to potential bugs."
	stubEffort     = "medium"
	stubConfidence = 0.75
)

// ProposeSolution suggests a remedy for problem. With a generator the
// solution text comes from the model; a failed call falls back to the stub
// text and logs a warning.
func (s *Stage) ProposeSolution(ctx context.Context, taskID string, problem domain.ProblemDetails) (*domain.SolutionProposal, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	s.emit.Thinking(taskID, fmt.Sprintf("Thinking about a solution for problem: %q", problem.Description))

	proposal := &domain.SolutionProposal{
		ProblemID:        fmt.Sprintf("problem-%d", s.clock.Now().UnixMilli()),
		ProposedSolution: stubSolution,
		Reasoning:        stubReasoning,
		EstimatedEffort:  stubEffort,
		ConfidenceScore:  stubConfidence,
	}

	if s.hasGenerator() {
		reply, err := s.generateSolution(ctx, problem)
		if err != nil {
			s.logger.Warn().Err(err).Str("task_id", taskID).Msg("solution generation failed, using stub proposal")
			s.emit.Log(taskID, constants.LogWarning, "Solution generation failed, using default proposal", nil)
		} else {
			proposal.ProposedSolution = strings.TrimSpace(reply)
			proposal.Reasoning = "Generated from the problem description and possible causes."
		}
	}

	s.emit.Thinking(taskID, "Solution proposed.")
	s.emit.Action(taskID, constants.ActionAnalyze, "Proposed a solution", "", map[string]any{
		"problem_id": proposal.ProblemID,
	})
	return proposal, nil
}

func (s *Stage) generateSolution(ctx context.Context, problem domain.ProblemDetails) (string, error) {
	prompt, err := solutionPrompt(problem)
	if err != nil {
		return "", err
	}
	return s.generator.GenerateText(ctx, prompt)
}
