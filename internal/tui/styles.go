// Package tui provides terminal output components for gamesmith.
//
// Styling goes through Lip Gloss with AdaptiveColor so output reads on both
// light and dark terminals. Every status is shown as icon + color + text so
// the meaning survives when colors are disabled.
//
// Call CheckNoColor() at the start of commands that print styled text. It
// honors NO_COLOR and TERM=dumb.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors
//   - MUST NOT import: internal/cli, internal/agent
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mrz1836/gamesmith/internal/constants"
)

//nolint:gochecknoglobals // package-level styling API
var (
	// ColorPrimary is blue, used for active states and links.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for completed items.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for paused runs and attention-required items.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies faint formatting.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

// NewOutputStyles creates the common output styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
	}
}

// CheckNoColor drops to the ASCII color profile when colors are disabled.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false if NO_COLOR is set (to any value, including
// empty) or TERM=dumb. See https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// AgentStatusColor returns the semantic color for an agent status.
func AgentStatusColor(status constants.AgentStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.AgentStatusThinking, constants.AgentStatusCoding, constants.AgentStatusTesting:
		return ColorPrimary
	case constants.AgentStatusPaused:
		return ColorWarning
	case constants.AgentStatusCompleted:
		return ColorSuccess
	case constants.AgentStatusError:
		return ColorError
	default:
		return ColorMuted
	}
}

// AgentStatusIcon returns the icon for an agent status.
func AgentStatusIcon(status constants.AgentStatus) string {
	switch status {
	case constants.AgentStatusThinking:
		return "◐"
	case constants.AgentStatusCoding:
		return "●"
	case constants.AgentStatusTesting:
		return "⟳"
	case constants.AgentStatusPaused:
		return "⏸"
	case constants.AgentStatusCompleted:
		return "✓"
	case constants.AgentStatusError:
		return "✗"
	default:
		return "○"
	}
}

// RenderStatus renders icon and text in the status color.
func RenderStatus(status constants.AgentStatus) string {
	style := lipgloss.NewStyle().Foreground(AgentStatusColor(status))
	return style.Render(AgentStatusIcon(status) + " " + string(status))
}

// LogLevelStyle returns the style for an agent log entry level.
func LogLevelStyle(level constants.LogLevel) lipgloss.Style {
	switch level {
	case constants.LogError:
		return lipgloss.NewStyle().Foreground(ColorError)
	case constants.LogWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case constants.LogSuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case constants.LogDebug:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	default:
		return lipgloss.NewStyle()
	}
}
