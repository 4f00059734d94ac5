// Package prompts renders the embedded text/template prompts sent to the
// text generator.
package prompts

import (
	"bytes"
	"errors"
	"fmt"
)

// Render executes a prompt template with the provided data and returns the result.
//
//	prompt, err := prompts.Render(prompts.RequirementAnalysis, prompts.AnalysisData{
//	    Instruction: "A quiz about planets",
//	})
func Render(id PromptID, data any) (string, error) {
	if err := ValidateData(id, data); err != nil {
		return "", err
	}
	tmpl, err := globalRegistry.get(id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Join(ErrTemplateExecution, fmt.Errorf("prompt %s: %w", id, err))
	}
	return buf.String(), nil
}

// List returns all registered prompt IDs, sorted.
func List() []PromptID {
	return globalRegistry.list()
}

// Exists checks if a prompt ID is registered.
func Exists(id PromptID) bool {
	_, err := globalRegistry.get(id)
	return err == nil
}

// ValidateData checks that data has the type the prompt expects.
func ValidateData(id PromptID, data any) error {
	switch id {
	case RequirementAnalysis:
		if _, ok := data.(AnalysisData); !ok {
			return fmt.Errorf("%w: expected AnalysisData, got %T", ErrInvalidData, data)
		}
	case SolutionProposal:
		if _, ok := data.(SolutionData); !ok {
			return fmt.Errorf("%w: expected SolutionData, got %T", ErrInvalidData, data)
		}
	}
	return nil
}
