package presenter

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the built-in builders.
type Styles struct {
	Incoming  lipgloss.Style // incoming bubble frame
	Outgoing  lipgloss.Style // outgoing bubble frame
	Timestamp lipgloss.Style
	Status    lipgloss.Style
	Failed    lipgloss.Style
	System    lipgloss.Style
	Separator lipgloss.Style
	Photo     lipgloss.Style
}

// NewStyles builds styles bound to a renderer, so callers can control the
// colour profile (tests use an ASCII renderer).
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Incoming: r.NewStyle().
			BorderForeground(lipgloss.Color("86")). // Cyan
			Padding(0, 1),
		Outgoing: r.NewStyle().
			BorderForeground(lipgloss.Color("208")). // Orange-ish
			Padding(0, 1),
		Timestamp: r.NewStyle().
			Foreground(lipgloss.Color("240")). // Dark gray
			Faint(true),
		Status: r.NewStyle().
			Foreground(lipgloss.Color("39")), // Bright blue
		Failed: r.NewStyle().
			Foreground(lipgloss.Color("196")). // Bright Red
			Bold(true),
		System: r.NewStyle().
			Foreground(lipgloss.Color("245")). // Lighter Gray
			Italic(true),
		Separator: r.NewStyle().
			Foreground(lipgloss.Color("242")),
		Photo: r.NewStyle().
			Foreground(lipgloss.Color("220")),
	}
}

// DefaultStyles returns styles for the default renderer.
func DefaultStyles() *Styles {
	return NewStyles(lipgloss.DefaultRenderer())
}

// bubbleBorder returns a rounded border whose corner on the sender's side
// is squared off when the bubble shows a tail.
func bubbleBorder(incoming, tail bool) lipgloss.Border {
	b := lipgloss.RoundedBorder()
	if tail {
		if incoming {
			b.BottomLeft = "└"
		} else {
			b.BottomRight = "┘"
		}
	}
	return b
}
