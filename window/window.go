// Package window implements a sliding window over a sequence of items that
// grows at both ends.
//
// Every item is addressed by a logical index that never changes once the
// item is stored. Prepending moves the start of the store (ItemsOffset)
// down instead of renumbering existing items, so offsets can become
// negative after heavy prepending. The window is a contiguous range
// [offset, offset+count) in the same coordinate space.
package window

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

var (
	// ErrNoGenerator is returned when items must be backfilled but no
	// generator was supplied.
	ErrNoGenerator = errors.New("window: cannot backfill items without a generator")
	// ErrFocusOutOfRange is returned by AdjustWindow when the focus
	// position is outside [0, 1].
	ErrFocusOutOfRange = errors.New("window: focus position must be in the [0, 1] interval")
	// ErrInvalidArgument reports a negative size or count.
	ErrInvalidArgument = errors.New("window: invalid argument")
)

// Position selects the end of the sequence an item is inserted at.
type Position int

const (
	// Top is the older end of the sequence.
	Top Position = iota
	// Bottom is the newer end of the sequence.
	Bottom
)

func (p Position) String() string {
	switch p {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Generator materializes the item stored at a logical index.
// It is called only for indices below ItemsOffset, in descending order.
type Generator[T any] func(index int) T

// Option configures a Sequence.
type Option func(*options)

type options struct {
	log *zap.SugaredLogger
}

// WithLogger sets the logger used for backfill and recompute events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Sequence is a windowed view over a bidirectionally growing store.
//
// A Sequence is not safe for concurrent use; see Locked.
type Sequence[T any] struct {
	pageSize int
	gen      Generator[T]
	log      *zap.SugaredLogger

	// front holds prepended items in insertion order (the oldest item is
	// last); back holds the remaining items oldest first.
	front []T
	back  []T

	itemsOffset  int
	windowOffset int
	windowCount  int

	// Memoized WindowItems state. Only WindowItems writes these.
	cache           []T
	lastStartOffset int
	lastItemsCount  int
	lastItemsOffset int
	lastWindowCount int
}

// New returns a Sequence whose newest logical index is count-1 and
// backfills the min(pageSize, count) newest items through gen. The window
// covers exactly the backfilled items.
func New[T any](count, pageSize int, gen Generator[T], opts ...Option) (*Sequence[T], error) {
	if count < 0 || pageSize < 0 {
		return nil, fmt.Errorf("%w: count=%d pageSize=%d", ErrInvalidArgument, count, pageSize)
	}
	s := newSequence(count, pageSize, gen, opts)
	if err := s.generate(min(pageSize, count)); err != nil {
		return nil, err
	}
	return s, nil
}

// FromItems returns a Sequence holding items, oldest first, with a window
// covering all of them.
func FromItems[T any](items []T, pageSize int, opts ...Option) *Sequence[T] {
	s := newSequence[T](0, max(pageSize, 0), nil, opts)
	for _, item := range items {
		s.Insert(item, Bottom)
	}
	return s
}

func newSequence[T any](count, pageSize int, gen Generator[T], opts []Option) *Sequence[T] {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Sequence[T]{
		pageSize:     pageSize,
		gen:          gen,
		log:          o.log,
		itemsOffset:  count,
		windowOffset: count,
	}
}

// generate prepends n generated items.
func (s *Sequence[T]) generate(n int) error {
	if n <= 0 {
		return nil
	}
	if s.gen == nil {
		return ErrNoGenerator
	}
	s.log.Debugw("backfilling items", "count", n, "from", s.itemsOffset-1, "to", s.itemsOffset-n)
	for range n {
		s.Insert(s.gen(s.itemsOffset-1), Top)
	}
	return nil
}

// Insert adds item at the given end of the store. The window grows to
// include the item only when its edge touches that end of the store.
func (s *Sequence[T]) Insert(item T, pos Position) {
	switch pos {
	case Top:
		expand := s.itemsOffset == s.windowOffset
		s.front = append(s.front, item)
		s.itemsOffset--
		if expand {
			s.windowOffset--
			s.windowCount++
		}
	case Bottom:
		if s.itemsOffset+s.Len() == s.windowOffset+s.windowCount {
			s.windowCount++
		}
		s.back = append(s.back, item)
	default:
		panic(fmt.Sprintf("window: unknown insert position %v", pos))
	}
}

// WindowItems returns the items inside the window, oldest first.
//
// The result is memoized: a read with no intervening mutation returns the
// previous result, and a single append that the window tracked extends it
// in place. Any other change recomputes the slice. The returned slice must
// not be modified.
func (s *Sequence[T]) WindowItems() []T {
	start := s.windowOffset - s.itemsOffset
	n := s.Len()
	switch {
	case n == s.lastItemsCount+1 &&
		start == s.lastStartOffset &&
		s.itemsOffset == s.lastItemsOffset &&
		s.windowCount == s.lastWindowCount+1 &&
		start+s.windowCount == n:
		s.cache = append(s.cache, s.at(n-1))
	case n == s.lastItemsCount && start == s.lastStartOffset && s.windowCount == s.lastWindowCount:
	default:
		s.log.Debugw("recomputing window",
			"windowOffset", s.windowOffset, "windowCount", s.windowCount,
			"itemsOffset", s.itemsOffset, "itemsCount", n)
		s.cache = s.slice(start, start+s.windowCount)
	}
	s.lastItemsCount = n
	s.lastStartOffset = start
	s.lastItemsOffset = s.itemsOffset
	s.lastWindowCount = s.windowCount
	return s.cache[:len(s.cache):len(s.cache)]
}

// HasPrevious reports whether the window starts after logical index zero,
// the oldest index a generator-backed sequence can produce.
func (s *Sequence[T]) HasPrevious() bool {
	return s.windowOffset > 0
}

// HasMore reports whether stored items exist below the window.
func (s *Sequence[T]) HasMore() bool {
	return s.windowOffset+s.windowCount < s.itemsOffset+s.Len()
}

// LoadPrevious grows the window toward older items by up to one page,
// never past logical index zero, backfilling from the generator as needed.
func (s *Sequence[T]) LoadPrevious() {
	if s.windowOffset <= 0 {
		return
	}
	prevOffset, prevCount := s.windowOffset, s.windowCount
	next := max(0, prevOffset-s.pageSize)
	if needed := s.itemsOffset - next; needed > 0 {
		if err := s.generate(needed); err != nil {
			s.log.Errorw("load previous", "error", err)
			return
		}
	}
	s.windowOffset = next
	s.windowCount = prevCount + (prevOffset - next)
}

// LoadNext grows the window toward newer items by up to one page. It only
// reveals items that are already stored.
func (s *Sequence[T]) LoadNext() {
	if s.Len() == 0 {
		return
	}
	after := s.itemsOffset + s.Len() - s.windowOffset - s.windowCount
	s.windowCount += min(s.pageSize, after)
}

// AdjustWindow shrinks the window to maxWindowSize when it is larger,
// keeping the point at focus (0 is the top, 1 the bottom) of the excess as
// the anchor. It reports whether the window changed.
func (s *Sequence[T]) AdjustWindow(focus float64, maxWindowSize int) (bool, error) {
	if !(focus >= 0 && focus <= 1) {
		return false, fmt.Errorf("%w: got %v", ErrFocusOutOfRange, focus)
	}
	if maxWindowSize < 0 {
		return false, fmt.Errorf("%w: maxWindowSize=%d", ErrInvalidArgument, maxWindowSize)
	}
	diff := s.windowCount - maxWindowSize
	if diff <= 0 {
		return false, nil
	}
	s.windowOffset += int(math.Floor(focus * float64(diff)))
	s.windowCount = maxWindowSize
	return true, nil
}

// Len returns the number of stored items.
func (s *Sequence[T]) Len() int { return len(s.front) + len(s.back) }

// PageSize returns the pagination step.
func (s *Sequence[T]) PageSize() int { return s.pageSize }

// ItemsOffset returns the logical index of the oldest stored item.
func (s *Sequence[T]) ItemsOffset() int { return s.itemsOffset }

// Window returns the logical offset and length of the window.
func (s *Sequence[T]) Window() (offset, count int) {
	return s.windowOffset, s.windowCount
}

// At returns the item stored at a logical index.
func (s *Sequence[T]) At(index int) (T, bool) {
	i := index - s.itemsOffset
	if i < 0 || i >= s.Len() {
		var zero T
		return zero, false
	}
	return s.at(i), true
}

// Items returns a copy of the whole store, oldest first.
func (s *Sequence[T]) Items() []T {
	return s.slice(0, s.Len())
}

// Stats returns the current coordinates of the store and window.
func (s *Sequence[T]) Stats() Stats {
	return Stats{
		ItemsOffset:  s.itemsOffset,
		ItemsCount:   s.Len(),
		WindowOffset: s.windowOffset,
		WindowCount:  s.windowCount,
		PageSize:     s.pageSize,
	}
}

// at returns the item at store position i (0 is the oldest).
func (s *Sequence[T]) at(i int) T {
	if i < len(s.front) {
		return s.front[len(s.front)-1-i]
	}
	return s.back[i-len(s.front)]
}

func (s *Sequence[T]) slice(start, end int) []T {
	out := make([]T, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, s.at(i))
	}
	return out
}

// Stats describes a Sequence in logical coordinates.
type Stats struct {
	ItemsOffset  int `json:"itemsOffset"`
	ItemsCount   int `json:"itemsCount"`
	WindowOffset int `json:"windowOffset"`
	WindowCount  int `json:"windowCount"`
	PageSize     int `json:"pageSize"`
}

// WindowEnd returns the logical index just past the window.
func (st Stats) WindowEnd() int { return st.WindowOffset + st.WindowCount }

// ItemsEnd returns the logical index just past the newest stored item.
func (st Stats) ItemsEnd() int { return st.ItemsOffset + st.ItemsCount }

func (st Stats) String() string {
	return fmt.Sprintf("window [%d, %d) items [%d, %d) page %d",
		st.WindowOffset, st.WindowEnd(), st.ItemsOffset, st.ItemsEnd(), st.PageSize)
}
