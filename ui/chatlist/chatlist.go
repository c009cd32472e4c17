// Package chatlist is the full-screen chat view over a chatwindow.DataSource.
package chatlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tmc/chatwindow"
	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/presenter"
	"github.com/tmc/chatwindow/taskqueue"
	"github.com/tmc/chatwindow/ui/keymap"
	"github.com/tmc/chatwindow/ui/statusbar"
)

// Config configures the chat view.
type Config struct {
	DataSource *chatwindow.DataSource
	Registry   *presenter.Registry
	Factory    *message.Factory // used for simulated incoming messages
	Location   *time.Location

	// CompactSize is the window size requested by the compact key.
	CompactSize int
	// Flags are shown on the right of the status bar.
	Flags []string

	// Follow, if set, runs for the life of the view and delivers messages
	// that should be appended to the conversation.
	Follow func(ctx context.Context, deliver func([]*message.Msg)) error

	Logger *zap.SugaredLogger
	Stdin  io.Reader
	Stdout io.Writer
}

// refreshMsg asks the model to re-render. done releases the update queue.
type refreshMsg struct {
	kind chatwindow.UpdateType
	done func()
}

type followMsg []*message.Msg

type errMsg struct{ err error }

// itemLine records where a rendered item starts in the viewport content.
type itemLine struct {
	id    string
	start int
	msg   bool
}

// anchor keeps an item at the same screen position across a re-render.
type anchor struct {
	id     string
	offset int
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx   context.Context
	cfg   Config
	ds    *chatwindow.DataSource
	dec   presenter.Decorator
	log   *zap.SugaredLogger
	queue *taskqueue.Queue
	send  func(tea.Msg)

	viewport viewport.Model
	input    textinput.Model
	help     help.Model
	keys     keymap.KeyMap

	ready         bool
	width, height int
	lines         []itemLine
	anchor        *anchor
	stickToBottom bool
	refreshes     int
	err           error
}

// New returns a model over cfg.DataSource and registers it as the data
// source's delegate. Updates are queued until the first window size
// arrives.
func New(ctx context.Context, cfg Config) *Model {
	if cfg.Registry == nil {
		cfg.Registry = presenter.Default(nil)
	}
	if cfg.Factory == nil {
		cfg.Factory = message.NewFactory(time.Now().UnixNano(), time.Now())
	}
	if cfg.CompactSize <= 0 {
		cfg.CompactSize = 100
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	m := &Model{
		ctx:           ctx,
		cfg:           cfg,
		ds:            cfg.DataSource,
		dec:           presenter.Decorator{Location: cfg.Location},
		log:           log,
		queue:         taskqueue.New(taskqueue.WithLogger(log)),
		send:          func(tea.Msg) {},
		viewport:      viewport.New(0, 0),
		input:         input,
		help:          help.New(),
		keys:          keymap.DefaultKeyMap(),
		stickToBottom: true,
	}
	m.ds.SetDelegate(chatwindow.DelegateFunc(m.enqueue))
	return m
}

// enqueue schedules a re-render. A pending re-render that has not started
// is replaced, so bursts of updates collapse into one.
func (m *Model) enqueue(u chatwindow.UpdateType) {
	m.queue.Flush()
	err := m.queue.Add(func(done func()) {
		m.send(refreshMsg{kind: u, done: done})
	})
	if err != nil {
		m.log.Debugw("dropped update", "kind", u, "error", err)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		if !m.ready {
			m.ready = true
			m.queue.Start()
		}
		return m, nil

	case refreshMsg:
		m.refresh()
		if msg.done != nil {
			msg.done()
		}
		return m, nil

	case followMsg:
		m.ds.AppendMessages(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch {
			case msg.Button == tea.MouseButtonWheelUp && m.viewport.AtTop():
				m.loadOlder()
				return m, nil
			case msg.Button == tea.MouseButtonWheelDown && m.viewport.AtBottom():
				m.loadNewer()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.queue.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.viewport.AtTop() {
			m.loadOlder()
		} else {
			m.viewport.LineUp(1)
		}
	case key.Matches(msg, m.keys.Down):
		if m.viewport.AtBottom() {
			m.loadNewer()
		} else {
			m.viewport.LineDown(1)
		}
	case key.Matches(msg, m.keys.PageUp):
		if m.viewport.AtTop() {
			m.loadOlder()
		} else {
			m.viewport.ViewUp()
		}
	case key.Matches(msg, m.keys.PageDown):
		if m.viewport.AtBottom() {
			m.loadNewer()
		} else {
			m.viewport.ViewDown()
		}
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()

	case key.Matches(msg, m.keys.LoadOlder):
		m.loadOlder()
	case key.Matches(msg, m.keys.LoadNewer):
		m.loadNewer()
	case key.Matches(msg, m.keys.Compact):
		m.compact()

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		for m.ds.HasMoreNext() {
			m.ds.LoadNext()
		}
		m.stickToBottom = true
		m.ds.AddTextMessage(m.ctx, text)
	case key.Matches(msg, m.keys.Incoming):
		m.ds.AddRandomIncomingMessage(m.cfg.Factory)
	case key.Matches(msg, m.keys.MarkRead):
		m.ds.MarkRead()

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) loadOlder() {
	if !m.ds.HasMorePrevious() {
		return
	}
	m.setAnchor()
	m.ds.LoadPrevious()
}

func (m *Model) loadNewer() {
	if !m.ds.HasMoreNext() {
		return
	}
	m.setAnchor()
	m.ds.LoadNext()
}

// compact shrinks the window around the part of the list on screen.
func (m *Model) compact() {
	m.setAnchor()
	changed, err := m.ds.AdjustNumberOfMessages(m.cfg.CompactSize, m.viewport.ScrollPercent())
	if err != nil {
		m.err = err
		m.anchor = nil
		return
	}
	if !changed {
		m.anchor = nil
		return
	}
	m.enqueue(chatwindow.UpdateNormal)
}

// setAnchor remembers the first message at or below the top of the
// viewport. Separators are skipped since they can be regenerated above
// other messages after a page loads.
func (m *Model) setAnchor() {
	m.anchor = nil
	y := m.viewport.YOffset
	for _, l := range m.lines {
		if l.msg && l.start >= y {
			m.anchor = &anchor{id: l.id, offset: y - l.start}
			return
		}
	}
}

func (m *Model) layout() {
	helpHeight := lipgloss.Height(m.help.View(m.keys))
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-helpHeight-2, 1)
	m.input.Width = max(m.width-lipgloss.Width(m.input.Prompt)-1, 10)
	m.help.Width = m.width
}

// refresh re-renders the window into the viewport and restores the scroll
// position: an anchored item stays put, otherwise a list that was showing
// the newest message keeps showing it.
func (m *Model) refresh() {
	m.refreshes++
	wasAtBottom := m.viewport.AtBottom()
	content, lines := m.render(m.dec.Decorate(m.ds.ChatItems()))
	m.viewport.SetContent(content)
	m.lines = lines

	switch {
	case m.anchor != nil:
		for _, l := range m.lines {
			if l.id == m.anchor.id {
				m.viewport.SetYOffset(l.start + m.anchor.offset)
				break
			}
		}
		m.anchor = nil
	case m.stickToBottom || wasAtBottom && !m.ds.HasMoreNext():
		m.viewport.GotoBottom()
		m.stickToBottom = false
	}
}

func (m *Model) render(items []presenter.Decorated) (string, []itemLine) {
	var sb strings.Builder
	lines := make([]itemLine, 0, len(items))
	line, margin := 0, 0
	for _, d := range items {
		s, err := m.cfg.Registry.Render(d.Item, d.Attributes, m.width)
		if err != nil {
			m.log.Warnw("cannot render item", "id", d.Item.ItemID(), "error", err)
			m.err = err
			continue
		}
		if len(lines) > 0 {
			sb.WriteString(strings.Repeat("\n", 1+margin))
			line += 1 + margin
		}
		_, isMsg := d.Item.(*message.Msg)
		lines = append(lines, itemLine{id: d.Item.ItemID(), start: line, msg: isMsg})
		sb.WriteString(s)
		line += strings.Count(s, "\n")
		margin = d.Attributes.BottomMargin
	}
	return sb.String(), lines
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}
	var view strings.Builder
	view.WriteString(m.viewport.View())
	view.WriteString("\n")
	view.WriteString(m.input.View())
	view.WriteString("\n")
	view.WriteString(statusbar.Render(m.width, m.status()))
	if help := m.help.View(m.keys); help != "" {
		view.WriteString("\n" + help)
	}
	return view.String()
}

func (m *Model) status() statusbar.StatusData {
	st := m.ds.Stats()
	data := statusbar.StatusData{
		Mode:   "chat",
		Window: fmt.Sprintf("%d-%d of %d", st.WindowOffset, st.WindowEnd(), st.ItemsEnd()),
		Stored: st.ItemsCount,
	}
	if m.ds.HasMorePrevious() {
		data.Flags = append(data.Flags, "↑ older")
	}
	if m.ds.HasMoreNext() {
		data.Flags = append(data.Flags, "↓ newer")
	}
	data.Flags = append(data.Flags, m.cfg.Flags...)
	if m.err != nil {
		data.Err = m.err.Error()
	}
	return data
}

// Run shows the chat view until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	m := New(ctx, cfg)
	defer m.queue.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if cfg.Stdin != nil {
		opts = append(opts, tea.WithInput(cfg.Stdin))
	}
	if cfg.Stdout != nil {
		opts = append(opts, tea.WithOutput(cfg.Stdout))
	}
	program := tea.NewProgram(m, opts...)
	// Send blocks until the program reads the message, and refreshes are
	// requested from inside Update.
	m.send = func(msg tea.Msg) { go program.Send(msg) }

	followCtx, stopFollow := context.WithCancel(ctx)
	defer stopFollow()
	if cfg.Follow != nil {
		go func() {
			err := cfg.Follow(followCtx, func(msgs []*message.Msg) {
				program.Send(followMsg(msgs))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				program.Send(errMsg{err})
			}
		}()
	}

	progDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		progDone <- err
	}()

	select {
	case <-ctx.Done():
		program.Quit()
		<-progDone
		return ctx.Err()
	case err := <-progDone:
		if err != nil {
			return fmt.Errorf("chat view: %w", err)
		}
		return nil
	}
}
