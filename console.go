package chatwindow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/presenter"
	"github.com/tmc/chatwindow/window"
)

var (
	// ErrUnknownCommand is returned for commands the console does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a command's arguments are invalid.
	ErrUsage = errors.New("usage")
)

// DefaultWidth is the render width used by the console's show command.
const DefaultWidth = 60

const consoleHelp = `commands:
  next                  load newer messages
  prev                  load older messages
  adjust <focus> [max]  shrink the window around focus (0 top, 1 bottom)
  send <text>           send an outgoing message
  incoming [text]       receive a message (random text if omitted)
  prepend <text>        insert an older message once all history is loaded
  read                  mark sent messages as read
  show                  render the window
  list                  list the window, one message per line
  state                 print the window position
  wait                  wait for pending sends
  help                  show this help`

// Console interprets line commands against a DataSource.
type Console struct {
	ds       *DataSource
	registry *presenter.Registry
	dec      presenter.Decorator
	factory  *message.Factory
	width    int
	prepends int
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithRegistry sets the presenter registry used by show.
func WithRegistry(r *presenter.Registry) ConsoleOption {
	return func(c *Console) { c.registry = r }
}

// WithWidth sets the render width used by show.
func WithWidth(width int) ConsoleOption {
	return func(c *Console) {
		if width > 0 {
			c.width = width
		}
	}
}

// WithFactory sets the factory used by incoming without text.
func WithFactory(f *message.Factory) ConsoleOption {
	return func(c *Console) { c.factory = f }
}

// WithLocation sets the time zone used for day separators.
func WithLocation(loc *time.Location) ConsoleOption {
	return func(c *Console) { c.dec.Location = loc }
}

// NewConsole returns a console for ds.
func NewConsole(ds *DataSource, opts ...ConsoleOption) *Console {
	c := &Console{
		ds:    ds,
		width: DefaultWidth,
	}
	for _, o := range opts {
		o(c)
	}
	if c.registry == nil {
		c.registry = presenter.Default(nil)
	}
	if c.factory == nil {
		c.factory = message.NewFactory(1, ds.now())
	}
	return c
}

// Exec runs one command line and returns its output. Blank lines and lines
// starting with # produce no output.
func (c *Console) Exec(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "next", "n":
		c.ds.LoadNext()
		return c.state(), nil
	case "prev", "p":
		c.ds.LoadPrevious()
		return c.state(), nil
	case "adjust":
		return c.adjust(args)
	case "send", "s":
		if rest == "" {
			return "", fmt.Errorf("%w: send <text>", ErrUsage)
		}
		m := c.ds.AddTextMessage(ctx, rest)
		return "sending " + m.ID, nil
	case "incoming", "i":
		var m *message.Msg
		if rest == "" {
			m = c.ds.AddRandomIncomingMessage(c.factory)
		} else {
			m = message.NewText(c.ds.newID(), rest, true, c.ds.now())
			m.Status = message.StatusSent
			c.ds.AddIncomingMessage(m)
		}
		return "received " + m.ID, nil
	case "prepend":
		if rest == "" {
			return "", fmt.Errorf("%w: prepend <text>", ErrUsage)
		}
		return c.prepend(rest)
	case "read":
		return fmt.Sprintf("marked %d read", c.ds.MarkRead()), nil
	case "show":
		items := c.dec.Decorate(c.ds.ChatItems())
		if len(items) == 0 {
			return "(empty window)", nil
		}
		return c.registry.RenderAll(items, c.width)
	case "list", "ls":
		var sb strings.Builder
		for i, m := range c.ds.ChatItems() {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(m.String())
		}
		return sb.String(), nil
	case "state":
		return c.state(), nil
	case "wait":
		if err := c.ds.Wait(ctx); err != nil {
			return "", err
		}
		return "idle", nil
	case "help", "?":
		return consoleHelp, nil
	}
	return "", fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, cmd)
}

func (c *Console) adjust(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", fmt.Errorf("%w: adjust <focus> [max]", ErrUsage)
	}
	focus, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "", fmt.Errorf("%w: focus %q is not a number", ErrUsage, args[0])
	}
	maxCount := 0
	if len(args) == 2 {
		if maxCount, err = strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("%w: max %q is not an integer", ErrUsage, args[1])
		}
	}
	changed, err := c.ds.AdjustNumberOfMessages(maxCount, focus)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUsage, err)
	}
	verb := "unchanged"
	if changed {
		verb = "adjusted"
	}
	return verb + ": " + c.state(), nil
}

func (c *Console) prepend(text string) (string, error) {
	when := c.ds.now()
	c.ds.seq.Do(func(s *window.Sequence[*message.Msg]) {
		if oldest, ok := s.At(s.ItemsOffset()); ok {
			when = oldest.Time.Add(-time.Minute)
		}
	})
	m := message.NewText(fmt.Sprintf("prepended-%d", c.prepends+1), text, true, when)
	m.Status = message.StatusSent
	if err := c.ds.PrependMessages([]*message.Msg{m}); err != nil {
		return "", fmt.Errorf("%w: %w (load older messages with prev first)", ErrUsage, err)
	}
	c.prepends++
	return "prepended " + m.ID, nil
}

func (c *Console) state() string {
	st := c.ds.Stats()
	return fmt.Sprintf("%s prev=%t next=%t", st, c.ds.HasMorePrevious(), c.ds.HasMoreNext())
}
