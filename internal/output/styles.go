package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: projects, packages, tags.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for completed stages.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for skipped stages.
	ColorYellow = lipgloss.Color("220")

	// ColorBoldRed is used for failed stages (matches ERROR level).
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleDim styles structural chrome (scope prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Stage status constants.
const (
	StatusBuilt      = "built"
	StatusCompressed = "compressed"
	StatusUploaded   = "uploaded"
	StatusPushed     = "pushed"
	StatusInstalled  = "installed"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// StatusStyle returns the lipgloss style for a stage status string.
// Unknown statuses return an unstyled default.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusBuilt, StatusCompressed, StatusUploaded, StatusPushed, StatusInstalled:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusSkipped:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minSubjectColumnWidth keeps status words aligned across lines.
const minSubjectColumnWidth = 48

// FormatStageLine renders a stage subject with a right-aligned, color-coded
// status suffix.
//
// Format: <stage>:<subject>  <status>
func FormatStageLine(stage, subject, status string) string {
	padding := minSubjectColumnWidth - len(stage) - len(subject) - 1
	if padding < 2 {
		padding = 2
	}

	return StyleDim.Render(stage+":") +
		StyleNoun.Render(subject) +
		strings.Repeat(" ", padding) +
		StatusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatBytes renders a byte count using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
