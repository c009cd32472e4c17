package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions for the status bar
var (
	statusBarStyle = lipgloss.NewStyle().
			Reverse(true) // Invert colors for status bar look

	// Normal text style within the status bar
	statusTextStyle = lipgloss.NewStyle().Inherit(statusBarStyle)

	// Separator style
	separatorStyle = statusTextStyle.Foreground(lipgloss.Color("240")) // Dim gray

	modeStyle  = statusTextStyle.Bold(true)
	flagStyle  = statusTextStyle.Foreground(lipgloss.Color("220")) // Yellow
	errorStyle = statusTextStyle.Foreground(lipgloss.Color("196"))
)

// StatusData holds the information for the status bar
type StatusData struct {
	Mode   string // e.g. "chat", "loading"
	Window string // window and store range
	Stored int    // messages held in memory
	Flags  []string
	Err    string
}

// Render creates the status bar string
func Render(width int, data StatusData) string {
	if width <= 0 {
		return ""
	}

	sep := separatorStyle.Render(" │ ")

	left := modeStyle.Render(fmt.Sprintf(" %s ", data.Mode))
	if data.Window != "" {
		left += sep + statusTextStyle.Render(data.Window)
	}
	left += sep + statusTextStyle.Render(fmt.Sprintf("%d loaded", data.Stored))

	var rightParts []string
	if data.Err != "" {
		rightParts = append(rightParts, errorStyle.Render(data.Err))
	}
	for _, f := range data.Flags {
		rightParts = append(rightParts, flagStyle.Render(f))
	}
	right := ""
	if len(rightParts) > 0 {
		right = strings.Join(rightParts, sep) + " "
	}

	// Place padding between left and right
	paddingWidth := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	finalStr := left + statusTextStyle.Render(strings.Repeat(" ", paddingWidth)) + right

	// Render the final string within the specified width
	return statusBarStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(finalStr)
}
