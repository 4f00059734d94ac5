// Package errors provides centralized error handling for gamesmith.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Agent pipeline errors.
var (
	// ErrGeneratorUnavailable indicates that no text generation backend is
	// configured, or the configured backend is missing its credentials.
	ErrGeneratorUnavailable = errors.New("text generator unavailable")

	// ErrGeneratorCallFailed indicates that the text generation backend was
	// reachable but the call itself failed.
	ErrGeneratorCallFailed = errors.New("text generator call failed")

	// ErrAnalysisFailed indicates that requirement analysis could not produce
	// a usable result.
	ErrAnalysisFailed = errors.New("requirement analysis failed")

	// ErrPlanStepFailed indicates that a work plan step failed and aborted the plan.
	ErrPlanStepFailed = errors.New("plan step failed")

	// ErrInvalidTransition indicates a control call that is not valid for the
	// current agent status. It is never fatal.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrExecutorNotFound indicates no executor is registered for the given step type.
	ErrExecutorNotFound = errors.New("executor not found for step type")
)

// Artifact storage errors.
var (
	// ErrArtifactNotFound indicates the requested artifact does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrPathTraversal indicates a path that resolves outside the artifact root.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrArtifactIsDir indicates a file operation was attempted on a directory.
	ErrArtifactIsDir = errors.New("artifact path is a directory")
)

// Template and generation errors.
var (
	// ErrNoTemplateForKind indicates strict template selection found no template
	// whose id matches the requested game kind.
	ErrNoTemplateForKind = errors.New("no template for game kind")

	// ErrTemplateNotFound indicates the requested template does not exist in the registry.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateNil indicates a nil template was provided.
	ErrTemplateNil = errors.New("template cannot be nil")

	// ErrTemplateDuplicate indicates a template with the same id already exists.
	ErrTemplateDuplicate = errors.New("template already registered")

	// ErrTemplateInvalid indicates a template manifest failed validation.
	ErrTemplateInvalid = errors.New("invalid template")

	// ErrTemplateLoadFailed indicates a template directory could not be loaded.
	ErrTemplateLoadFailed = errors.New("template load failed")
)

// Project persistence errors.
var (
	// ErrProjectNotFound indicates that the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectExists indicates an attempt to create a project that already exists.
	ErrProjectExists = errors.New("project already exists")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrUnknownStoreDriver indicates an unsupported project store driver.
	ErrUnknownStoreDriver = errors.New("unknown store driver")
)

// Event delivery errors.
var (
	// ErrQueueFull indicates a subscriber queue was full and the event was dropped.
	ErrQueueFull = errors.New("subscriber queue full")

	// ErrSubscriptionClosed indicates use of a closed subscription.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Configuration and CLI errors.
var (
	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrInvalidAction indicates an unknown agent control action.
	ErrInvalidAction = errors.New("invalid action")

	// ErrRunFailed indicates that a one-shot agent run ended in the error state.
	ErrRunFailed = errors.New("agent run failed")
)
