package presenter

import (
	"time"

	"github.com/tmc/chatwindow/message"
)

// Item types handled by the default registry.
const (
	TypeMessageText   = string(message.TypeText)
	TypeMessagePhoto  = string(message.TypePhoto)
	TypeMessageSystem = string(message.TypeSystem)
	TypeTimeSeparator = "time-separator"
	TypeSendStatus    = "send-status"
)

// TimeSeparator marks the start of a calendar day in the list.
type TimeSeparator struct {
	Date time.Time
}

func (s TimeSeparator) ItemType() string { return TypeTimeSeparator }
func (s TimeSeparator) ItemID() string   { return "separator-" + s.Date.Format(time.DateOnly) }

// SendStatus is shown under an outgoing message that is still sending or
// failed to send.
type SendStatus struct {
	Msg *message.Msg
}

func (s SendStatus) ItemType() string { return TypeSendStatus }
func (s SendStatus) ItemID() string   { return "status-" + s.Msg.ID }

// Decorated pairs an item with its layout attributes.
type Decorated struct {
	Item       Item
	Attributes Attributes
}

// Decorator turns the window's messages into the list of items to render.
type Decorator struct {
	// Location decides day boundaries. Defaults to time.Local.
	Location *time.Location
}

// Decorate inserts a time separator before the first message of each day,
// marks the last message of each run from one sender with a tail, and adds
// a status item after outgoing messages that are sending or failed.
func (d Decorator) Decorate(msgs []*message.Msg) []Decorated {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	out := make([]Decorated, 0, len(msgs)+1)
	for i, m := range msgs {
		if i == 0 || !sameDay(msgs[i-1].Time, m.Time, loc) {
			out = append(out, Decorated{
				Item:       TimeSeparator{Date: m.Time.In(loc)},
				Attributes: Attributes{BottomMargin: 1},
			})
		}
		var next *message.Msg
		if i+1 < len(msgs) {
			next = msgs[i+1]
		}
		tail := next == nil ||
			next.SenderID != m.SenderID ||
			next.Type == message.TypeSystem ||
			m.Type == message.TypeSystem ||
			!sameDay(m.Time, next.Time, loc)
		attrs := Attributes{ShowsTail: tail}
		if tail {
			attrs.BottomMargin = 1
		}
		showStatus := !m.Incoming && (m.Status == message.StatusSending || m.Status == message.StatusFailed)
		if showStatus {
			out = append(out, Decorated{Item: m}, Decorated{Item: SendStatus{Msg: m}, Attributes: attrs})
			out[len(out)-2].Attributes.ShowsTail = tail
			continue
		}
		out = append(out, Decorated{Item: m, Attributes: attrs})
	}
	return out
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
