// Package message defines the chat message model shown in the window.
package message

import (
	"fmt"
	"time"
)

// Msg represents a message in the conversation.
type Msg struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"` // text, photo, system
	SenderID string    `json:"senderId,omitempty"`
	Incoming bool      `json:"incoming,omitempty"`
	Time     time.Time `json:"time"`
	Status   Status    `json:"status,omitempty"`
	Text     string    `json:"text"` // Message text, or the image name for photos
}

type Type string

const (
	TypeText   Type = "text"
	TypePhoto  Type = "photo"
	TypeSystem Type = "system"
)

// Status tracks delivery of a message.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRead    Status = "read"
)

// Sender IDs used for the two sides of a demo conversation.
const (
	IncomingSenderID = "1"
	OutgoingSenderID = "2"
)

// New creates a message of the given type. The sender is derived from the
// direction.
func New(id string, typ Type, text string, incoming bool, now time.Time) *Msg {
	sender := OutgoingSenderID
	if incoming {
		sender = IncomingSenderID
	}
	return &Msg{
		ID:       id,
		Type:     typ,
		SenderID: sender,
		Incoming: incoming,
		Time:     now,
		Status:   StatusPending,
		Text:     text,
	}
}

// NewText creates a text message.
func NewText(id, text string, incoming bool, now time.Time) *Msg {
	return New(id, TypeText, text, incoming, now)
}

// NewSystem creates a system notice, such as a placeholder for a message
// that could not be loaded.
func NewSystem(id, text string, now time.Time) *Msg {
	m := New(id, TypeSystem, text, false, now)
	m.SenderID = ""
	m.Status = StatusSent
	return m
}

// ItemType returns the presenter dispatch key.
func (m *Msg) ItemType() string { return string(m.Type) }

// ItemID returns the message ID.
func (m *Msg) ItemID() string { return m.ID }

// Clone returns a copy of m.
func (m *Msg) Clone() *Msg {
	c := *m
	return &c
}

func (m *Msg) String() string {
	dir := "out"
	if m.Incoming {
		dir = "in"
	}
	return fmt.Sprintf("%s %s/%s [%s] %q", m.ID, m.Type, dir, m.Status, m.Text)
}
