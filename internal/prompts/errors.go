package prompts

import "errors"

// Prompt rendering errors.
var (
	// ErrTemplateNotFound indicates the requested prompt ID has no template.
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrTemplateExecution indicates a template failed to execute with the given data.
	ErrTemplateExecution = errors.New("prompt template execution failed")

	// ErrInvalidData indicates the data type does not match the prompt.
	ErrInvalidData = errors.New("invalid prompt data")
)
