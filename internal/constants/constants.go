// Package constants provides centralized constant values used throughout gamesmith.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by gamesmith for organizing data.
const (
	// AppHome is the hidden directory name where gamesmith stores its data.
	// This directory is created in the user's home directory.
	AppHome = ".gamesmith"

	// ProjectsDir is the directory name where the file project store keeps project JSON.
	ProjectsDir = "projects"

	// ArtifactsDir is the default artifact root under AppHome.
	ArtifactsDir = "artifacts"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// ProjectConfigDir is the per-project config directory name.
	ProjectConfigDir = ".gamesmith"

	// HomeEnvVar overrides the location of AppHome when set.
	HomeEnvVar = "GAMESMITH_HOME"
)

// File names.
const (
	// CLILogFileName is the name of the rotating log file in ~/.gamesmith/logs.
	CLILogFileName = "gamesmith.log"

	// GlobalConfigName is the name of the global and project configuration files.
	GlobalConfigName = "config.yaml"

	// ProjectFileName is the name of the JSON file holding one project's metadata.
	ProjectFileName = "project.json"

	// TemplateManifestName is the manifest file expected in every template directory.
	TemplateManifestName = "manifest.yaml"
)

// Log rotation settings for the CLI log file.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
	LogCompress   = true
)

// Agent state limits.
const (
	// MaxLogEntries bounds TaskState.LogEntries; the oldest entries are evicted first.
	MaxLogEntries = 100

	// MaxThoughtSteps bounds TaskState.ThoughtSteps.
	MaxThoughtSteps = 50

	// ProgressComplete is the progress value of a finished run.
	ProgressComplete = 100
)

// Default timings.
const (
	// DefaultAITimeout bounds a single text generation call.
	DefaultAITimeout = 2 * time.Minute

	// DefaultMaxRetries is the number of retries for failed generator calls.
	DefaultMaxRetries = 2

	// InitialBackoff is the initial backoff duration before the first retry.
	InitialBackoff = 1 * time.Second

	// DefaultMinStepDelay and DefaultMaxStepDelay bound simulated step work.
	DefaultMinStepDelay = 500 * time.Millisecond
	DefaultMaxStepDelay = 2 * time.Second

	// DefaultEventBuffer is the per-subscriber event queue size.
	DefaultEventBuffer = 256

	// LockTimeout is the maximum duration to wait for a project file lock.
	LockTimeout = 5 * time.Second
)

// Messages surfaced in TaskState.
const (
	// MsgPlanFailed is the error message for a work plan that did not finish.
	MsgPlanFailed = "One or more steps in the work plan failed."

	// MsgStopped is the summary recorded when the agent is stopped.
	MsgStopped = "Agent stopped and reset"
)
