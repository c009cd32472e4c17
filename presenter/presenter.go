// Package presenter renders chat items for the terminal.
//
// Presenters are chosen by capability: a Registry maps an item type to a
// list of builders, and the first builder that can handle an item renders
// it. New kinds of items are supported by registering new builders.
package presenter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPresenter is returned when no registered builder handles an item.
var ErrNoPresenter = errors.New("presenter: no presenter for item")

// Item is anything the message list can show.
type Item interface {
	ItemType() string
	ItemID() string
}

// Attributes carry per-item layout decisions made by the Decorator.
type Attributes struct {
	// ShowsTail marks the last bubble of a run from one sender.
	ShowsTail bool
	// BottomMargin is the number of blank lines after the item.
	BottomMargin int
}

// Builder renders items it can handle.
type Builder interface {
	CanHandle(item Item) bool
	Present(item Item, attrs Attributes, width int) string
}

// Registry dispatches items to builders by item type.
type Registry struct {
	builders map[string][]Builder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string][]Builder)}
}

// Register appends builders for itemType. Earlier registrations win.
func (r *Registry) Register(itemType string, builders ...Builder) {
	r.builders[itemType] = append(r.builders[itemType], builders...)
}

// Builder returns the builder that would render item.
func (r *Registry) Builder(item Item) (Builder, bool) {
	for _, b := range r.builders[item.ItemType()] {
		if b.CanHandle(item) {
			return b, true
		}
	}
	return nil, false
}

// Render renders a single item at the given width.
func (r *Registry) Render(item Item, attrs Attributes, width int) (string, error) {
	b, ok := r.Builder(item)
	if !ok {
		return "", fmt.Errorf("%w: type %q id %q", ErrNoPresenter, item.ItemType(), item.ItemID())
	}
	return b.Present(item, attrs, max(width, minWidth)), nil
}

// RenderAll renders decorated items top to bottom, honouring their margins.
func (r *Registry) RenderAll(items []Decorated, width int) (string, error) {
	var sb strings.Builder
	for i, d := range items {
		s, err := r.Render(d.Item, d.Attributes, width)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
		if i < len(items)-1 {
			sb.WriteString(strings.Repeat("\n", 1+d.Attributes.BottomMargin))
		}
	}
	return sb.String(), nil
}

// Default returns a registry with the built-in builders for messages,
// time separators and send status items.
func Default(styles *Styles) *Registry {
	if styles == nil {
		styles = DefaultStyles()
	}
	r := NewRegistry()
	r.Register(TypeMessageText, TextBuilder{Styles: styles})
	r.Register(TypeMessagePhoto, PhotoBuilder{Styles: styles})
	r.Register(TypeMessageSystem, SystemBuilder{Styles: styles})
	r.Register(TypeTimeSeparator, SeparatorBuilder{Styles: styles})
	r.Register(TypeSendStatus, StatusBuilder{Styles: styles})
	return r
}

const minWidth = 20
