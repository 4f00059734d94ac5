package domain

import (
	"slices"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// RequirementAnalysis is the structured reading of one instruction.
// It is produced once per start and never modified afterwards.
type RequirementAnalysis struct {
	OriginalInstruction  string         `json:"original_instruction"`
	ParsedRequirements   []string       `json:"parsed_requirements"`
	Constraints          []string       `json:"constraints"`
	Goals                []string       `json:"goals"`
	ClarificationsNeeded []string       `json:"clarifications_needed,omitempty"`
	Details              map[string]any `json:"details,omitempty"`
}

// NeedsClarification reports whether the run must pause for user input.
func (a *RequirementAnalysis) NeedsClarification() bool {
	return a != nil && len(a.ClarificationsNeeded) > 0
}

// WorkPlan is the ordered list of typed steps for one run.
// CurrentStepIndex only increases while the plan executes.
type WorkPlan struct {
	ID               string         `json:"id"`
	TaskID           string         `json:"task_id"`
	OverallGoal      string         `json:"overall_goal"`
	Steps            []WorkPlanStep `json:"steps"`
	CurrentStepIndex int            `json:"current_step_index"`
}

// WorkPlanStep is a single typed step of a work plan.
type WorkPlanStep struct {
	ID               string               `json:"id"`
	Description      string               `json:"description"`
	Type             constants.StepType   `json:"type"`
	Status           constants.StepStatus `json:"status"`
	EstimatedSeconds int                  `json:"estimated_seconds,omitempty"`
	RelatedArtifacts []string             `json:"related_artifacts,omitempty"`
	Error            string               `json:"error,omitempty"`
}

// HasGenerationStep reports whether any step produces game code or assets.
func (p *WorkPlan) HasGenerationStep() bool {
	if p == nil {
		return false
	}
	return slices.ContainsFunc(p.Steps, func(s WorkPlanStep) bool {
		return s.Type.IsGeneration()
	})
}

// RemainingSeconds sums the estimates of steps that have not completed.
func (p *WorkPlan) RemainingSeconds() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, s := range p.Steps[min(p.CurrentStepIndex, len(p.Steps)):] {
		if s.Status != constants.StepStatusCompleted {
			total += s.EstimatedSeconds
		}
	}
	return total
}

// Done reports whether every step has been visited.
func (p *WorkPlan) Done() bool {
	return p == nil || p.CurrentStepIndex >= len(p.Steps)
}

// SolutionProposal is a suggested remedy for a known problem.
type SolutionProposal struct {
	ProblemID        string  `json:"problem_id"`
	ProposedSolution string  `json:"proposed_solution"`
	Reasoning        string  `json:"reasoning"`
	EstimatedEffort  string  `json:"estimated_effort"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// ProblemDetails describes a problem the agent is asked to solve.
type ProblemDetails struct {
	Description    string         `json:"description"`
	Context        map[string]any `json:"context,omitempty"`
	PossibleCauses []string       `json:"possible_causes,omitempty"`
}
