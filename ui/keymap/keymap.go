package keymap

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the chat view's keybindings.
// The text input has focus, so actions that are not typing use control keys.
type KeyMap struct {
	// Scrolling (delegated to the viewport)
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Paging the conversation window
	LoadOlder key.Binding
	LoadNewer key.Binding
	Compact   key.Binding // Shrink the window around the visible messages

	// Conversation actions
	Send     key.Binding
	Incoming key.Binding // Simulate a message from the other side
	MarkRead key.Binding

	// Application Control
	Quit       key.Binding
	ToggleHelp key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Viewport / Scrolling (Names match viewport's default for easy delegation)
		Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "go to top")),
		Bottom:   key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "go to bottom")),

		LoadOlder: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "load older")),
		LoadNewer: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "load newer")),
		Compact:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "compact window")),

		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Incoming: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "simulate incoming")),
		MarkRead: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "mark read")),

		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d", "esc"), key.WithHelp("esc", "quit")),
		ToggleHelp: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "toggle help")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.LoadOlder, k.LoadNewer, k.ToggleHelp, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.LoadOlder, k.LoadNewer, k.Compact},
		{k.Send, k.Incoming, k.MarkRead},
		{k.ToggleHelp, k.Quit},
	}
}
