package prompts

// PromptID identifies a specific prompt template.
type PromptID string

// Prompt identifiers for all model prompts in gamesmith.
const (
	// Planning prompts
	RequirementAnalysis PromptID = "planning/analysis"
	SolutionProposal    PromptID = "planning/solution"
)

// AnalysisData is the input to the RequirementAnalysis prompt.
type AnalysisData struct {
	Instruction string
	GameKind    string
}

// SolutionData is the input to the SolutionProposal prompt.
type SolutionData struct {
	Description    string
	PossibleCauses []string
	GameKind       string
}
