package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/honeywatch/internal/severity"
)

var (
	ColorNavy   = lipgloss.Color("#14213D")
	ColorWhite  = lipgloss.Color("#F2F2F2")
	ColorGray   = lipgloss.Color("#7D8597")
	ColorBlue   = lipgloss.Color("#4EA8DE")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorYellow = lipgloss.Color("#FFAA00")
	ColorOrange = lipgloss.Color("#FF7B33")
	ColorRed    = lipgloss.Color("#FF4444")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.
				BorderForeground(ColorBlue)

	chartTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	statusBarStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Padding(0, 1)

	helpStyle  = lipgloss.NewStyle().Foreground(ColorGray)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	staleStyle = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
)

// severityColor is the bar/label color for a severity label.
func severityColor(label string) lipgloss.Color {
	switch severity.Normalize(label) {
	case severity.Critical:
		return ColorRed
	case severity.High:
		return ColorOrange
	case severity.Medium:
		return ColorYellow
	default:
		return ColorGreen
	}
}
