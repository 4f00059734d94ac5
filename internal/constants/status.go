package constants

// AgentStatus is the run-control state of a task controller.
// Status values use snake_case for JSON serialization compatibility.
//
//	Idle → Thinking
//	Thinking → Coding, Paused, Completed, Error
//	Coding → Testing, Paused, Completed, Error
//	Testing → Completed, Paused, Error
//	Paused → Thinking
//	Completed, Error → Thinking (fresh start)
//
// Stop moves any status to Idle.
type AgentStatus string

// Agent status constants.
const (
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusThinking  AgentStatus = "thinking"
	AgentStatusCoding    AgentStatus = "coding"
	AgentStatusTesting   AgentStatus = "testing"
	AgentStatusPaused    AgentStatus = "paused"
	AgentStatusCompleted AgentStatus = "completed"
	AgentStatusError     AgentStatus = "error"
)

// String returns the string representation of the AgentStatus.
func (s AgentStatus) String() string {
	return string(s)
}

// IsActive reports whether a run is in flight for this status.
func (s AgentStatus) IsActive() bool {
	return s == AgentStatusThinking || s == AgentStatusCoding || s == AgentStatusTesting
}

// DevelopmentStage is the pipeline position of a task. It is independent of AgentStatus.
type DevelopmentStage string

// Development stage constants.
const (
	StageRequirementAnalysis DevelopmentStage = "requirement_analysis"
	StageDesign              DevelopmentStage = "design"
	StageCoding              DevelopmentStage = "coding"
	StageTesting             DevelopmentStage = "testing"
	StageOptimization        DevelopmentStage = "optimization"
	StageCompleted           DevelopmentStage = "completed"
)

// String returns the string representation of the DevelopmentStage.
func (s DevelopmentStage) String() string {
	return string(s)
}

// ProjectStatus is the persisted status of a project.
type ProjectStatus string

// Project status constants.
const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusPaused     ProjectStatus = "paused"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusArchived   ProjectStatus = "archived"
	ProjectStatusError      ProjectStatus = "error"
)

// String returns the string representation of the ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// GameKind identifies the kind of mini-game a project asks for.
type GameKind string

// Game kinds.
const (
	GameKindQuiz       GameKind = "quiz"
	GameKindMatching   GameKind = "matching"
	GameKindSorting    GameKind = "sorting"
	GameKindDragDrop   GameKind = "drag_drop"
	GameKindMemory     GameKind = "memory"
	GameKindPuzzle     GameKind = "puzzle"
	GameKindSimulation GameKind = "simulation"
	GameKindRolePlay   GameKind = "role_play"
)

// String returns the string representation of the GameKind.
func (k GameKind) String() string {
	return string(k)
}

// StepType is the typed dispatch key of a work plan step.
type StepType string

// Step types.
const (
	StepTypeCreateFile          StepType = "create_file"
	StepTypeModifyFile          StepType = "modify_file"
	StepTypeDeleteFile          StepType = "delete_file"
	StepTypeGenerateGameCode    StepType = "generate_game_code"
	StepTypeCustomizeGameAssets StepType = "customize_game_assets"
	StepTypeRunTests            StepType = "run_tests"
	StepTypeDebugCode           StepType = "debug_code"
	StepTypeReviewCode          StepType = "review_code"
	StepTypeOther               StepType = "other"
)

// IsGeneration reports whether the step produces game code or assets.
func (t StepType) IsGeneration() bool {
	return t == StepTypeGenerateGameCode || t == StepTypeCustomizeGameAssets
}

// StepStatus is the status of a single work plan step.
// A step only moves forward: pending → in-progress → completed|failed.
type StepStatus string

// Step statuses.
const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in-progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// rank orders step statuses for the no-regression check.
func (s StepStatus) rank() int {
	switch s {
	case StepStatusPending:
		return 0
	case StepStatusInProgress:
		return 1
	case StepStatusCompleted, StepStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether a step may move from s to next.
func (s StepStatus) CanAdvanceTo(next StepStatus) bool {
	if s == StepStatusCompleted || s == StepStatusFailed {
		return false
	}
	return next.rank() > s.rank()
}

// ThoughtStatus is the status recorded on a thought step.
type ThoughtStatus string

// Thought statuses.
const (
	ThoughtPending    ThoughtStatus = "pending"
	ThoughtInProgress ThoughtStatus = "in-progress"
	ThoughtCompleted  ThoughtStatus = "completed"
	ThoughtSkipped    ThoughtStatus = "skipped"
	ThoughtFailed     ThoughtStatus = "failed"
	ThoughtInfo       ThoughtStatus = "info"
)

// ActionKind classifies TaskState.LastAction.
type ActionKind string

// Action kinds.
const (
	ActionIdle          ActionKind = "idle"
	ActionInitialize    ActionKind = "initialize"
	ActionCreateFile    ActionKind = "create_file"
	ActionModifyFile    ActionKind = "modify_file"
	ActionDeleteFile    ActionKind = "delete_file"
	ActionRunTest       ActionKind = "run_test"
	ActionBuild         ActionKind = "build"
	ActionAnalyze       ActionKind = "analyze"
	ActionUserInput     ActionKind = "user_input"
	ActionAgentResponse ActionKind = "agent_response"
)

// LogLevel is the level of an agent log entry.
type LogLevel string

// Log levels.
const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
	LogDebug   LogLevel = "debug"
)

// ArtifactKind classifies a stored artifact.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactDocument ArtifactKind = "document"
	ArtifactSource   ArtifactKind = "source"
	ArtifactStyle    ArtifactKind = "style"
	ArtifactAsset    ArtifactKind = "asset"
	ArtifactConfig   ArtifactKind = "config"
	ArtifactTest     ArtifactKind = "test"
	ArtifactOther    ArtifactKind = "other"
)

// Thought step stage labels.
const (
	ThoughtStageProblemDefinition = "Problem Definition"
	ThoughtStageAnalysis          = "Requirement Analysis"
	ThoughtStagePlanning          = "Planning"
	ThoughtStageExecution         = "Execution Step"
	ThoughtStageGeneration        = "Game Generation"
	ThoughtStageStateUpdate       = "Internal State Update"
	ThoughtStageCompletion        = "Completion"
)
