// Package chatwindow implements a chat data source backed by a sliding
// window over the conversation, together with a small command console for
// driving it.
package chatwindow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/window"
)

// DefaultMaxWindowSize bounds the window after a page is loaded.
const DefaultMaxWindowSize = 500

// ErrHistoryNotLoaded is returned when messages are prepended while older
// stored messages have not been loaded yet.
var ErrHistoryNotLoaded = errors.New("older messages not loaded")

// UpdateType tells a delegate why the data source changed.
type UpdateType int

const (
	// UpdateNormal is a change to the conversation itself.
	UpdateNormal UpdateType = iota
	// UpdatePagination is a change caused by loading a page.
	UpdatePagination
)

func (u UpdateType) String() string {
	if u == UpdatePagination {
		return "pagination"
	}
	return "normal"
}

// Delegate is notified after the data source changes. It is called without
// any lock held and may be called from any goroutine.
type Delegate interface {
	DataSourceDidUpdate(UpdateType)
}

// DelegateFunc adapts a function to a Delegate.
type DelegateFunc func(UpdateType)

func (f DelegateFunc) DataSourceDidUpdate(u UpdateType) { f(u) }

// Persister records messages added to the conversation. *store.Store
// implements it.
type Persister interface {
	Append(ctx context.Context, msgs ...*message.Msg) error
	UpdateStatus(ctx context.Context, id string, status message.Status) error
}

// DataSource serves a conversation to a chat view through a sliding window.
// Messages handed out by ChatItems are copies and may be kept by the caller.
type DataSource struct {
	seq       *window.Locked[*message.Msg]
	maxWindow int
	sender    *Sender
	persist   Persister
	log       *zap.SugaredLogger
	newID     func() string
	now       func() time.Time

	mu       sync.Mutex
	delegate Delegate
	sends    sync.WaitGroup
}

// Option configures a DataSource.
type Option func(*DataSource)

// WithMaxWindowSize sets the window bound applied after paging. Zero
// selects DefaultMaxWindowSize.
func WithMaxWindowSize(n int) Option {
	return func(d *DataSource) {
		if n > 0 {
			d.maxWindow = n
		}
	}
}

// WithSender sets the sender used for outgoing messages. Without one,
// outgoing messages are marked sent immediately.
func WithSender(s *Sender) Option {
	return func(d *DataSource) { d.sender = s }
}

// WithPersister records new messages and status changes.
func WithPersister(p Persister) Option {
	return func(d *DataSource) { d.persist = p }
}

// WithLogger sets the data source's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *DataSource) {
		if log != nil {
			d.log = log
		}
	}
}

// WithIDFunc sets the function that names new messages.
func WithIDFunc(fn func() string) Option {
	return func(d *DataSource) { d.newID = fn }
}

// WithClock sets the time source for new messages.
func WithClock(now func() time.Time) Option {
	return func(d *DataSource) { d.now = now }
}

// NewDataSource returns a data source over seq.
func NewDataSource(seq *window.Locked[*message.Msg], opts ...Option) *DataSource {
	d := &DataSource{
		seq:       seq,
		maxWindow: DefaultMaxWindowSize,
		log:       zap.NewNop().Sugar(),
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// SetDelegate sets the delegate notified of updates.
func (d *DataSource) SetDelegate(del Delegate) {
	d.mu.Lock()
	d.delegate = del
	d.mu.Unlock()
}

func (d *DataSource) notify(u UpdateType) {
	d.mu.Lock()
	del := d.delegate
	d.mu.Unlock()
	if del != nil {
		del.DataSourceDidUpdate(u)
	}
}

// HasMoreNext reports whether newer messages are outside the window.
func (d *DataSource) HasMoreNext() bool { return d.seq.HasMore() }

// HasMorePrevious reports whether older messages can be loaded.
func (d *DataSource) HasMorePrevious() bool { return d.seq.HasPrevious() }

// ChatItems returns copies of the messages in the window, oldest first.
func (d *DataSource) ChatItems() []*message.Msg {
	var out []*message.Msg
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		items := s.WindowItems()
		out = make([]*message.Msg, len(items))
		for i, m := range items {
			out[i] = m.Clone()
		}
	})
	return out
}

// Messages returns copies of every loaded message, oldest first.
func (d *DataSource) Messages() []*message.Msg {
	var out []*message.Msg
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		items := s.Items()
		out = make([]*message.Msg, len(items))
		for i, m := range items {
			out[i] = m.Clone()
		}
	})
	return out
}

// LoadNext slides the window towards the newest messages and trims it from
// the top.
func (d *DataSource) LoadNext() {
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		s.LoadNext()
		if _, err := s.AdjustWindow(1, d.maxWindow); err != nil {
			d.log.Errorw("adjust after load next", "error", err)
		}
	})
	d.notify(UpdatePagination)
}

// LoadPrevious loads a page of older messages and trims the window from
// the bottom.
func (d *DataSource) LoadPrevious() {
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		s.LoadPrevious()
		if _, err := s.AdjustWindow(0, d.maxWindow); err != nil {
			d.log.Errorw("adjust after load previous", "error", err)
		}
	})
	d.notify(UpdatePagination)
}

// AdjustNumberOfMessages shrinks the window to preferredMaxCount around
// focus, a position in [0, 1] from the top of the window. A
// preferredMaxCount of zero uses the data source's maximum. It reports
// whether the window changed.
func (d *DataSource) AdjustNumberOfMessages(preferredMaxCount int, focus float64) (bool, error) {
	if preferredMaxCount == 0 {
		preferredMaxCount = d.maxWindow
	}
	return d.seq.AdjustWindow(focus, preferredMaxCount)
}

// AddTextMessage appends an outgoing text message and starts sending it.
// The send runs in the background and is bound to ctx.
func (d *DataSource) AddTextMessage(ctx context.Context, text string) *message.Msg {
	m := message.NewText(d.newID(), text, false, d.now())
	if d.sender == nil {
		m.Status = message.StatusSent
	}
	out := m.Clone()
	d.add(ctx, m)
	if d.sender != nil {
		snapshot := m.Clone()
		d.sends.Add(1)
		go func() {
			defer d.sends.Done()
			err := d.sender.Send(ctx, snapshot, func(status message.Status) {
				d.setStatus(ctx, m, status)
			})
			if err != nil {
				d.log.Debugw("send interrupted", "id", m.ID, "error", err)
			}
		}()
	}
	return out
}

// AddIncomingMessage appends a received message.
func (d *DataSource) AddIncomingMessage(m *message.Msg) {
	d.add(context.Background(), m)
}

// AddRandomIncomingMessage appends a message from the factory. The factory
// is not safe for concurrent use, so callers must not share it.
func (d *DataSource) AddRandomIncomingMessage(f *message.Factory) *message.Msg {
	m := f.CreateIncoming(d.newID(), true, d.now())
	m.Status = message.StatusSent
	out := m.Clone()
	d.AddIncomingMessage(m)
	return out
}

// AppendMessages appends msgs, oldest first, as one update.
func (d *DataSource) AppendMessages(msgs []*message.Msg) {
	if len(msgs) == 0 {
		return
	}
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		for _, m := range msgs {
			s.Insert(m, window.Bottom)
		}
	})
	d.record(context.Background(), msgs...)
	d.notify(UpdateNormal)
}

// PrependMessages inserts msgs, oldest first, before the oldest loaded
// message. Prepended messages are not persisted.
//
// Indices from 0 up belong to the conversation's own history, so while any
// of them is still unloaded PrependMessages returns ErrHistoryNotLoaded
// and leaves the conversation unchanged.
func (d *DataSource) PrependMessages(msgs []*message.Msg) error {
	if len(msgs) == 0 {
		return nil
	}
	var err error
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		if s.ItemsOffset() > 0 {
			err = ErrHistoryNotLoaded
			return
		}
		for i := len(msgs) - 1; i >= 0; i-- {
			s.Insert(msgs[i], window.Top)
		}
	})
	if err != nil {
		return err
	}
	d.notify(UpdateNormal)
	return nil
}

// MarkRead marks every sent outgoing message in the window as read by the
// other side and returns how many changed.
func (d *DataSource) MarkRead() int {
	var changed []string
	d.seq.Do(func(s *window.Sequence[*message.Msg]) {
		for _, m := range s.WindowItems() {
			if !m.Incoming && m.Status == message.StatusSent {
				m.Status = message.StatusRead
				changed = append(changed, m.ID)
			}
		}
	})
	if len(changed) == 0 {
		return 0
	}
	if d.persist != nil {
		for _, id := range changed {
			if err := d.persist.UpdateStatus(context.Background(), id, message.StatusRead); err != nil {
				d.log.Warnw("failed to persist status", "id", id, "error", err)
			}
		}
	}
	d.notify(UpdateNormal)
	return len(changed)
}

// Stats reports the window position.
func (d *DataSource) Stats() window.Stats { return d.seq.Stats() }

// Wait blocks until background sends finish or ctx is done.
func (d *DataSource) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.sends.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DataSource) add(ctx context.Context, m *message.Msg) {
	d.seq.Insert(m, window.Bottom)
	d.record(ctx, m)
	d.notify(UpdateNormal)
}

func (d *DataSource) record(ctx context.Context, msgs ...*message.Msg) {
	if d.persist == nil {
		return
	}
	copies := make([]*message.Msg, len(msgs))
	d.seq.Do(func(*window.Sequence[*message.Msg]) {
		for i, m := range msgs {
			copies[i] = m.Clone()
		}
	})
	if err := d.persist.Append(context.WithoutCancel(ctx), copies...); err != nil {
		d.log.Warnw("failed to persist messages", "count", len(msgs), "error", err)
	}
}

func (d *DataSource) setStatus(ctx context.Context, m *message.Msg, status message.Status) {
	d.seq.Do(func(*window.Sequence[*message.Msg]) { m.Status = status })
	if d.persist != nil {
		if err := d.persist.UpdateStatus(context.WithoutCancel(ctx), m.ID, status); err != nil {
			d.log.Warnw("failed to persist status", "id", m.ID, "error", err)
		}
	}
	d.notify(UpdateNormal)
}
