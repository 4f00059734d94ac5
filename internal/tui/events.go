package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/gamesmith/internal/domain"
)

// EventPrinter renders task events as one styled line each.
type EventPrinter struct {
	w          io.Writer
	styles     *OutputStyles
	lastStatus string
}

// NewEventPrinter creates an EventPrinter writing to w.
func NewEventPrinter(w io.Writer) *EventPrinter {
	return &EventPrinter{w: w, styles: NewOutputStyles()}
}

// Print renders e. State events print only when the status changes.
func (p *EventPrinter) Print(e domain.Event) {
	line := p.line(e)
	if line == "" {
		return
	}
	_, _ = fmt.Fprintln(p.w, line)
}

func (p *EventPrinter) line(e domain.Event) string {
	switch data := e.Data.(type) {
	case domain.TaskState:
		status := string(data.Status)
		if status == p.lastStatus {
			return ""
		}
		p.lastStatus = status
		return RenderStatus(data.Status)
	case domain.ThinkingPayload:
		return p.styles.Dim.Render("… " + data.Text)
	case domain.ProgressPayload:
		return p.styles.Info.Render(fmt.Sprintf("%s %3d%% %s", progressBar(data.Percent), data.Percent, data.Stage)) +
			p.suffix(data.Message)
	case domain.Action:
		return StyleBold.Render("→ "+data.Description) + p.suffix(data.Target)
	case domain.LogEntry:
		return LogLevelStyle(data.Level).Render(fmt.Sprintf("[%s] %s", data.Level, data.Message))
	case domain.Artifact:
		return p.styles.Success.Render("+") + " " + data.Path
	case domain.ArtifactUpdatedPayload:
		return p.styles.Warning.Render("~") + " " + data.Path
	case domain.ArtifactDeletedPayload:
		return p.styles.Error.Render("-") + " " + data.Path
	case domain.PreviewUpdatedPayload:
		return p.styles.Info.Render("preview:") + " " + data.URL
	case domain.GameListItem:
		return p.styles.Success.Render("✓ deliverable "+data.ID) + p.suffix(data.EntryPoint)
	default:
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return string(e.Type)
		}
		return p.styles.Dim.Render(string(e.Type) + " " + string(raw))
	}
}

func (p *EventPrinter) suffix(s string) string {
	if s == "" {
		return ""
	}
	return " " + p.styles.Dim.Render(s)
}

const barWidth = 20

// progressBar renders percent as a fixed-width bar.
func progressBar(percent int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * barWidth / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// RenderSummary renders the final state of a run as a bordered box.
func RenderSummary(state *domain.TaskState, deliverable *domain.GeneratedDeliverable) string {
	var b strings.Builder
	b.WriteString(StyleBold.Render("Task ") + state.TaskID + "\n")
	b.WriteString("Status:   " + RenderStatus(state.Status) + "\n")
	b.WriteString(fmt.Sprintf("Stage:    %s (%d%%)", state.CurrentStage, state.ProgressPercent))
	if state.Error != nil {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(ColorError).Render("Error:    "+state.Error.Message))
		if state.Error.Details != "" {
			b.WriteString("\n" + StyleDim.Render("          "+state.Error.Details))
		}
	}
	if deliverable != nil {
		b.WriteString(fmt.Sprintf("\nTemplate: %s\nFiles:    %d", deliverable.BaseTemplateID, len(deliverable.Artifacts)))
		if deliverable.PreviewEntryPoint != "" {
			b.WriteString("\nPreview:  " + deliverable.PreviewEntryPoint)
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AgentStatusColor(state.Status)).
		Padding(0, 1)
	return box.Render(b.String())
}
