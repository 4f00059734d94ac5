package generator

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// MatchingPair is one term and its definition.
type MatchingPair struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Requirements is the game content a deliverable is built from.
type Requirements struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Questions    []QuizQuestion `json:"questions,omitempty"`
	Pairs        []MatchingPair `json:"pairs,omitempty"`
	Items        []string       `json:"items,omitempty"`
	CorrectOrder []string       `json:"correct_order,omitempty"`
}

// Customizations tune a deliverable beyond its content.
type Customizations struct {
	// PreviewImage writes a placeholder preview image next to the game files.
	PreviewImage bool
}

// RequirementsFromAnalysis derives game content from a project and its analysis.
// Structured content found in analysis.Details under "questions", "pairs",
// "items" and "correct_order" is used as is.
func RequirementsFromAnalysis(project *domain.Project, analysis *domain.RequirementAnalysis) Requirements {
	var req Requirements
	if project != nil {
		req.Title = project.Name
		req.Description = project.Description
	}
	if analysis != nil {
		if req.Description == "" {
			req.Description = analysis.OriginalInstruction
		}
		decodeDetail(analysis.Details, "questions", &req.Questions)
		decodeDetail(analysis.Details, "pairs", &req.Pairs)
		decodeDetail(analysis.Details, "items", &req.Items)
		decodeDetail(analysis.Details, "correct_order", &req.CorrectOrder)
	}
	return req
}

// decodeDetail copies details[key] into out through JSON. Mismatched shapes are ignored.
func decodeDetail(details map[string]any, key string, out any) {
	v, ok := details[key]
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}

// gameTitle returns the display title, falling back to a title built from the kind.
func gameTitle(req Requirements, kind constants.GameKind) string {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		name := strings.ReplaceAll(string(kind), "_", " ")
		title = cases.Title(language.English).String(name) + " Game"
	}
	return title
}

// gameConfig builds the per-kind JSON configuration consumed by the template script.
func gameConfig(kind constants.GameKind, title string, req Requirements) any {
	switch kind {
	case constants.GameKindQuiz:
		questions := req.Questions
		if len(questions) == 0 {
			questions = []QuizQuestion{{
				Question: "Ready to start the " + title + "?",
				Options:  []string{"Yes", "Not yet"},
				Answer:   "Yes",
			}}
		}
		return struct {
			Title     string         `json:"title"`
			Questions []QuizQuestion `json:"questions"`
		}{title, questions}
	case constants.GameKindMatching:
		pairs := req.Pairs
		if pairs == nil {
			pairs = []MatchingPair{}
		}
		return struct {
			Title string         `json:"title"`
			Pairs []MatchingPair `json:"pairs"`
		}{title, pairs}
	case constants.GameKindSorting:
		items := req.Items
		if items == nil {
			items = []string{}
		}
		order := req.CorrectOrder
		if order == nil {
			order = items
		}
		return struct {
			Title        string   `json:"title"`
			Items        []string `json:"items"`
			CorrectOrder []string `json:"correctOrder"`
		}{title, items, order}
	default:
		return struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}{title, req.Description}
	}
}
