package prompt

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#9CA3AF") // Medium gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Width(10)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)
)

// RenderResult formats a run's terminal message for humans.
func RenderResult(succeeded bool, message string) string {
	if succeeded {
		return successStyle.Render("✓ publish succeeded")
	}
	if message == "" {
		return hintStyle.Render("publish cancelled")
	}
	return errorStyle.Render("✗ ") + message
}

// RenderCheck formats one doctor check line.
func RenderCheck(ok bool, name, detail string) string {
	mark := successStyle.Render("✓")
	if !ok {
		mark = errorStyle.Render("✗")
	}
	return fmt.Sprintf("%s %s %s", mark, labelStyle.Render(name), hintStyle.Render(detail))
}
