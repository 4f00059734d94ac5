package planning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/prompts"
)

// analysisPrompt renders the requirement analysis prompt.
func analysisPrompt(instruction string) (string, error) {
	return prompts.Render(prompts.RequirementAnalysis, prompts.AnalysisData{Instruction: instruction})
}

// solutionPrompt renders the solution proposal prompt.
func solutionPrompt(problem domain.ProblemDetails) (string, error) {
	return prompts.Render(prompts.SolutionProposal, prompts.SolutionData{
		Description:    problem.Description,
		PossibleCauses: problem.PossibleCauses,
	})
}

// llmAnalysis is the JSON shape requested from the model.
type llmAnalysis struct {
	ParsedRequirements   []string       `json:"parsed_requirements"`
	Constraints          []string       `json:"constraints"`
	Goals                []string       `json:"goals"`
	ClarificationsNeeded []string       `json:"clarifications_needed"`
	Details              map[string]any `json:"details"`
}

// extractJSON returns the outermost JSON object in text, tolerating
// markdown fences and surrounding prose.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseAnalysis decodes a model reply. Missing lists are filled from the
// heuristic analysis so downstream stages always see goals.
func parseAnalysis(reply, instruction string) (*domain.RequirementAnalysis, error) {
	raw, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON object in reply: %w", gserrors.ErrEmptyValue)
	}

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	fallback := heuristicAnalysis(instruction)
	analysis := &domain.RequirementAnalysis{
		OriginalInstruction:  instruction,
		ParsedRequirements:   nonEmpty(parsed.ParsedRequirements, fallback.ParsedRequirements),
		Constraints:          nonEmpty(parsed.Constraints, fallback.Constraints),
		Goals:                nonEmpty(parsed.Goals, fallback.Goals),
		ClarificationsNeeded: trimAll(parsed.ClarificationsNeeded),
		Details:              parsed.Details,
	}
	return analysis, nil
}

func nonEmpty(values, fallback []string) []string {
	if v := trimAll(values); len(v) > 0 {
		return v
	}
	return fallback
}

// trimAll drops blank entries and surrounding whitespace.
func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
