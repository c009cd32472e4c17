package message

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tmc/chatwindow/window"
)

var demoText = "Lorem ipsum dolor sit amet, https://github.com/tmc/chatwindow consectetur adipiscing elit, " +
	"sed do eiusmod tempor incididunt 07400000000 ut labore et dolore magna aliqua. Ut enim ad minim " +
	"veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis " +
	"aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur."

var photoNames = []string{"pic-test-1", "pic-test-2", "pic-test-3"}

// Factory creates fake messages for demos and tests.
type Factory struct {
	seed int64
	rnd  *rand.Rand

	// Epoch is the time of the message at logical index zero.
	Epoch time.Time
	// Interval separates consecutive generated messages.
	Interval time.Duration
	// PhotoRate is the fraction of generated messages that are photos.
	PhotoRate float64
}

// NewFactory returns a Factory whose output is fully determined by seed.
func NewFactory(seed int64, epoch time.Time) *Factory {
	return &Factory{
		seed:     seed,
		rnd:      rand.New(rand.NewSource(seed)),
		Epoch:    epoch,
		Interval: 37 * time.Minute,
	}
}

// Create returns a text message with a random direction.
func (f *Factory) Create(id string, now time.Time) *Msg {
	return f.CreateIncoming(id, f.rnd.Intn(2) == 0, now)
}

// CreateIncoming returns a text message with the given direction.
func (f *Factory) CreateIncoming(id string, incoming bool, now time.Time) *Msg {
	return f.text(f.rnd, id, incoming, now)
}

// Generator returns a window generator that produces the same message for
// the same logical index on every call.
func (f *Factory) Generator() window.Generator[*Msg] {
	return func(index int) *Msg {
		r := rand.New(rand.NewSource(f.seed*7919 + int64(index)))
		id := fmt.Sprint(index)
		now := f.Epoch.Add(time.Duration(index) * f.Interval)
		incoming := r.Intn(2) == 0
		var m *Msg
		if f.PhotoRate > 0 && r.Float64() < f.PhotoRate {
			m = New(id, TypePhoto, photoNames[r.Intn(len(photoNames))], incoming, now)
		} else {
			m = f.text(r, id, incoming, now)
		}
		m.Status = StatusSent
		return m
	}
}

func (f *Factory) text(r *rand.Rand, id string, incoming bool, now time.Time) *Msg {
	n := 10 + r.Intn(120)
	body := strings.TrimSpace(demoText[:min(n, len(demoText))])
	return NewText(id, fmt.Sprintf("#%s %s", id, body), incoming, now)
}

var tutorial = []struct {
	typ  Type
	text string
}{
	{TypeText, "Welcome to chatwindow! A small Go toolkit for paginated chat message lists"},
	{TypeText, "It keeps a sliding window over the conversation so it can page through thousands of messages without rendering them all"},
	{TypeText, "Along with the window there are presenters for messages, time separators and a serial task queue for updates"},
	{TypeText, "This is a text message. Links such as https://github.com/tmc/chatwindow and numbers like 07400000000 are kept as typed"},
	{TypePhoto, "pic-test-1"},
	{TypePhoto, "pic-test-2"},
	{TypePhoto, "pic-test-3"},
	{TypeText, "Those were some photo messages, rendered as placeholders in the terminal"},
	{TypeText, "Both text and photo presenters share the bubble layout, which adds a status glyph and a timestamp"},
	{TypeText, "Each message is paired with a presenter chosen by item type. New kinds of messages are added by registering new presenters!"},
	{TypeText, "Messages have different margins and only the last bubble of a run shows a tail. A decorator works that out"},
	{TypeText, "Failed and sending states are shown with their own glyphs, driven by the sender as it delivers each message"},
	{TypeText, "Try paging up for older messages. We are waiting for your pull requests!"},
}

// Tutorial returns the demo tutorial conversation, one minute apart and
// ending at now.
func Tutorial(now time.Time) []*Msg {
	msgs := make([]*Msg, 0, len(tutorial))
	for i, t := range tutorial {
		at := now.Add(-time.Duration(len(tutorial)-1-i) * time.Minute)
		m := New(fmt.Sprintf("tutorial-%d", i), t.typ, t.text, i%2 == 0, at)
		m.Status = StatusSent
		msgs = append(msgs, m)
	}
	return msgs
}

// Sliding returns n numbered messages, useful for exercising pagination.
func Sliding(n int, now time.Time) []*Msg {
	msgs := make([]*Msg, 0, n)
	for i := range n {
		at := now.Add(-time.Duration(n-1-i) * time.Second)
		m := NewText(fmt.Sprintf("sliding-%d", i), fmt.Sprint(i), i%2 == 0, at)
		m.Status = StatusSent
		msgs = append(msgs, m)
	}
	return msgs
}
