// Package taskqueue runs asynchronous tasks one after another.
//
// A task receives a done callback and signals completion by calling it,
// possibly from another goroutine. The next task starts only after the
// running one calls done.
package taskqueue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Add after the queue has been closed.
var ErrStopped = errors.New("taskqueue: queue closed")

// Task is a unit of work. It must call done exactly once when finished;
// extra calls are ignored.
type Task func(done func())

// Queue is a serial task queue. The zero value is not usable; use New.
// A new queue is stopped: tasks accumulate until Start is called.
type Queue struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	tasks    []Task
	stopped  bool
	closed   bool
	busy     bool
	finished func()
	idle     chan struct{} // closed and replaced whenever the queue drains
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for task tracing.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// New returns a stopped queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		log:     zap.NewNop().Sugar(),
		stopped: true,
		idle:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Add enqueues a task and starts it if the queue is running and idle.
func (q *Queue) Add(t Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrStopped
	}
	q.tasks = append(q.tasks, t)
	next := q.nextLocked()
	q.mu.Unlock()
	q.run(next)
	return nil
}

// Start resumes processing.
func (q *Queue) Start() {
	q.mu.Lock()
	q.stopped = false
	next := q.nextLocked()
	q.mu.Unlock()
	q.run(next)
}

// Stop prevents further tasks from starting. A running task still
// completes.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
}

// Close stops the queue, drops pending tasks and rejects new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.stopped = true
	q.tasks = nil
	q.signalIdleLocked()
	q.mu.Unlock()
}

// Flush drops all pending tasks. A running task is unaffected.
func (q *Queue) Flush() {
	q.mu.Lock()
	n := len(q.tasks)
	q.tasks = nil
	q.signalIdleLocked()
	q.mu.Unlock()
	if n > 0 {
		q.log.Debugw("flushed tasks", "count", n)
	}
}

// IsEmpty reports whether no tasks are pending.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) == 0
}

// IsBusy reports whether a task is running.
func (q *Queue) IsBusy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// IsStopped reports whether the queue is stopped.
func (q *Queue) IsStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// OnAllTasksFinished registers fn to be called each time the last pending
// task finishes. fn runs on the goroutine that called done.
func (q *Queue) OnAllTasksFinished(fn func()) {
	q.mu.Lock()
	q.finished = fn
	q.mu.Unlock()
}

// Wait blocks until no task is running or pending, or ctx is done.
// A stopped queue with pending tasks does not become idle.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.busy && len(q.tasks) == 0 {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// nextLocked pops the next task if one may start now.
func (q *Queue) nextLocked() Task {
	if q.stopped || q.busy || len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.busy = true
	return t
}

func (q *Queue) signalIdleLocked() {
	if q.busy || len(q.tasks) > 0 {
		return
	}
	close(q.idle)
	q.idle = make(chan struct{})
}

// run executes tasks until one completes asynchronously or the queue has
// nothing left to start. Synchronous completions are handled in a loop so
// long chains do not grow the stack.
func (q *Queue) run(t Task) {
	for t != nil {
		var (
			once      sync.Once
			mu        sync.Mutex
			returned  bool
			completed bool
		)
		done := func() {
			once.Do(func() {
				mu.Lock()
				completed = true
				inline := !returned
				mu.Unlock()
				if !inline {
					q.run(q.finish())
				}
			})
		}
		t(done)
		mu.Lock()
		returned = true
		c := completed
		mu.Unlock()
		if !c {
			return
		}
		t = q.finish()
	}
}

// finish marks the running task complete and returns the next task to run.
func (q *Queue) finish() Task {
	q.mu.Lock()
	q.busy = false
	next := q.nextLocked()
	var fn func()
	if next == nil && len(q.tasks) == 0 {
		fn = q.finished
		q.signalIdleLocked()
	}
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
	return next
}
