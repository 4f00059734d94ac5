package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice keeps lookup order stable for wrapped errors.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	{
		err: ErrGeneratorUnavailable,
		info: ErrorInfo{
			Message: "No text generator is configured.",
			Action:  "Set ai.provider and export the matching API key, or run with the heuristic planner.",
		},
	},
	{
		err: ErrGeneratorCallFailed,
		info: ErrorInfo{
			Message: "The text generator call failed.",
			Action:  "Check network access and API quota, then start the agent again.",
		},
	},
	{
		err: ErrAnalysisFailed,
		info: ErrorInfo{
			Message: "The instruction could not be analyzed.",
			Action:  "Rephrase the instruction and start the agent again.",
		},
	},
	{
		err: ErrPlanStepFailed,
		info: ErrorInfo{
			Message: "A work plan step failed and the plan was aborted.",
			Action:  "Inspect the agent log for the failing step.",
		},
	},
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "The agent cannot perform this action in its current state.",
			Action:  "Fetch the agent state and retry with a valid action.",
		},
	},
	{
		err: ErrArtifactNotFound,
		info: ErrorInfo{
			Message: "The requested file does not exist.",
		},
	},
	{
		err: ErrPathTraversal,
		info: ErrorInfo{
			Message: "The path escapes the artifact root and was rejected.",
		},
	},
	{
		err: ErrNoTemplateForKind,
		info: ErrorInfo{
			Message: "No template matches the requested game kind.",
			Action:  "Add a template whose id starts with the game kind, or disable generator.strict_templates.",
		},
	},
	{
		err: ErrTemplateNotFound,
		info: ErrorInfo{
			Message: "Template not found.",
			Action:  "Run 'gamesmith templates' to see available templates.",
		},
	},
	{
		err: ErrProjectNotFound,
		info: ErrorInfo{
			Message: "Project not found.",
			Action:  "Create the project first or check the project id.",
		},
	},
	{
		err: ErrProjectExists,
		info: ErrorInfo{
			Message: "A project with this id already exists.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Could not acquire lock. Another process may be using the store.",
			Action:  "Wait and try again, or check for stuck processes.",
		},
	},
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration is not loaded.",
			Action:  "Ensure config.yaml exists and is valid YAML.",
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "Configuration is invalid.",
			Action:  "Fix the reported key in ~/.gamesmith/config.yaml or the GAMESMITH_* environment.",
		},
	},
	{
		err: ErrInvalidAction,
		info: ErrorInfo{
			Message: "Unknown agent action.",
			Action:  "Use one of start, pause, resume, stop.",
		},
	},
}

//nolint:gochecknoglobals // Built once from errorInfoEntries
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error, trying a direct
// map hit first and then errors.Is for wrapped errors.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
