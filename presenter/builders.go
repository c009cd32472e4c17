package presenter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tmc/chatwindow/message"
)

// TextBuilder renders text messages as bubbles.
type TextBuilder struct {
	Styles *Styles
}

func (b TextBuilder) CanHandle(item Item) bool {
	m, ok := item.(*message.Msg)
	return ok && m.Type == message.TypeText
}

func (b TextBuilder) Present(item Item, attrs Attributes, width int) string {
	m := item.(*message.Msg)
	return b.Styles.bubble(m, m.Text, attrs, width)
}

// PhotoBuilder renders photo messages as a labelled placeholder bubble.
type PhotoBuilder struct {
	Styles *Styles
}

func (b PhotoBuilder) CanHandle(item Item) bool {
	m, ok := item.(*message.Msg)
	return ok && m.Type == message.TypePhoto
}

func (b PhotoBuilder) Present(item Item, attrs Attributes, width int) string {
	m := item.(*message.Msg)
	return b.Styles.bubble(m, b.Styles.Photo.Render("▣ "+m.Text), attrs, width)
}

// SystemBuilder renders system notices centred and without a bubble.
type SystemBuilder struct {
	Styles *Styles
}

func (b SystemBuilder) CanHandle(item Item) bool {
	m, ok := item.(*message.Msg)
	return ok && m.Type == message.TypeSystem
}

func (b SystemBuilder) Present(item Item, _ Attributes, width int) string {
	m := item.(*message.Msg)
	text := b.Styles.System.Width(min(lipgloss.Width(m.Text), width)).Render(m.Text)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, text)
}

// SeparatorBuilder renders day separators.
type SeparatorBuilder struct {
	Styles *Styles
}

func (b SeparatorBuilder) CanHandle(item Item) bool {
	_, ok := item.(TimeSeparator)
	return ok
}

func (b SeparatorBuilder) Present(item Item, _ Attributes, width int) string {
	s := item.(TimeSeparator)
	label := b.Styles.Separator.Render("── " + s.Date.Format("Monday, 2 Jan 2006") + " ──")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, label)
}

// StatusBuilder renders the sending and failed notes under outgoing
// messages.
type StatusBuilder struct {
	Styles *Styles
}

func (b StatusBuilder) CanHandle(item Item) bool {
	_, ok := item.(SendStatus)
	return ok
}

func (b StatusBuilder) Present(item Item, _ Attributes, width int) string {
	s := item.(SendStatus)
	var note string
	switch s.Msg.Status {
	case message.StatusFailed:
		note = b.Styles.Failed.Render("✗ failed to send")
	default:
		note = b.Styles.Status.Render("sending…")
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, note)
}

// bubble frames body and aligns it to the sender's side. The time and
// delivery glyph are shown under the last bubble of a run.
func (s *Styles) bubble(m *message.Msg, body string, attrs Attributes, width int) string {
	align := lipgloss.Right
	frame := s.Outgoing
	if m.Incoming {
		align = lipgloss.Left
		frame = s.Incoming
	}
	maxInner := max(width*3/4-2, 8)
	inner := min(lipgloss.Width(body)+frame.GetHorizontalPadding(), maxInner)
	box := frame.Border(bubbleBorder(m.Incoming, attrs.ShowsTail)).Width(inner).Render(body)
	block := box
	if attrs.ShowsTail {
		meta := s.Timestamp.Render(m.Time.Format("15:04"))
		if glyph := statusGlyph(m); glyph != "" {
			meta += " " + s.Status.Render(glyph)
		}
		block = lipgloss.JoinVertical(align, box, meta)
	}
	return lipgloss.PlaceHorizontal(width, align, block)
}

func statusGlyph(m *message.Msg) string {
	if m.Incoming {
		return ""
	}
	switch m.Status {
	case message.StatusPending:
		return "·"
	case message.StatusSent:
		return "✓"
	case message.StatusRead:
		return "✓✓"
	}
	return ""
}
