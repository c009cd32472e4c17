package window

import "sync"

// Locked guards a Sequence with a single mutex so it can be shared between
// goroutines. Every method holds the lock for the whole transition.
type Locked[T any] struct {
	mu  sync.Mutex
	seq *Sequence[T]
}

// NewLocked wraps seq. seq must not be used directly afterwards.
func NewLocked[T any](seq *Sequence[T]) *Locked[T] {
	return &Locked[T]{seq: seq}
}

// Do runs fn with the lock held, for compound transitions such as a load
// followed by an adjustment.
func (l *Locked[T]) Do(fn func(s *Sequence[T])) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.seq)
}

func (l *Locked[T]) Insert(item T, pos Position) {
	l.Do(func(s *Sequence[T]) { s.Insert(item, pos) })
}

func (l *Locked[T]) WindowItems() (items []T) {
	l.Do(func(s *Sequence[T]) { items = s.WindowItems() })
	return items
}

func (l *Locked[T]) HasPrevious() (ok bool) {
	l.Do(func(s *Sequence[T]) { ok = s.HasPrevious() })
	return ok
}

func (l *Locked[T]) HasMore() (ok bool) {
	l.Do(func(s *Sequence[T]) { ok = s.HasMore() })
	return ok
}

func (l *Locked[T]) LoadPrevious() {
	l.Do(func(s *Sequence[T]) { s.LoadPrevious() })
}

func (l *Locked[T]) LoadNext() {
	l.Do(func(s *Sequence[T]) { s.LoadNext() })
}

func (l *Locked[T]) AdjustWindow(focus float64, maxWindowSize int) (changed bool, err error) {
	l.Do(func(s *Sequence[T]) { changed, err = s.AdjustWindow(focus, maxWindowSize) })
	return changed, err
}

func (l *Locked[T]) Len() (n int) {
	l.Do(func(s *Sequence[T]) { n = s.Len() })
	return n
}

func (l *Locked[T]) Items() (items []T) {
	l.Do(func(s *Sequence[T]) { items = s.Items() })
	return items
}

func (l *Locked[T]) Stats() (st Stats) {
	l.Do(func(s *Sequence[T]) { st = s.Stats() })
	return st
}
