package transcript

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tmc/chatwindow/message"
)

// Follower watches a transcript file and delivers messages appended to it.
type Follower struct {
	path    string
	deliver func([]*message.Msg)
	log     *zap.SugaredLogger

	mu        sync.Mutex
	delivered int
}

// FollowOption configures a Follower.
type FollowOption func(*Follower)

// WithFollowLogger sets the follower's logger.
func WithFollowLogger(log *zap.SugaredLogger) FollowOption {
	return func(f *Follower) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFollower returns a follower for path that has already delivered the
// first from messages.
func NewFollower(path string, from int, deliver func([]*message.Msg), opts ...FollowOption) *Follower {
	f := &Follower{
		path:      path,
		deliver:   deliver,
		log:       zap.NewNop().Sugar(),
		delivered: from,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Delivered returns the number of messages delivered so far.
func (f *Follower) Delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered
}

// Check reloads the file and delivers messages past those already
// delivered. A file that shrank resets the count without delivering.
func (f *Follower) Check() error {
	t, err := Load(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	var fresh []*message.Msg
	switch n := len(t.Messages); {
	case n > f.delivered:
		fresh = t.Messages[f.delivered:]
		f.delivered = n
	case n < f.delivered:
		f.log.Warnw("transcript shrank", "path", f.path, "had", f.delivered, "now", n)
		f.delivered = n
	}
	f.mu.Unlock()
	if len(fresh) > 0 {
		f.log.Debugw("new transcript messages", "path", f.path, "count", len(fresh))
		f.deliver(fresh)
	}
	return nil
}

// Run watches the file until ctx is done. The parent directory is watched
// so that files replaced by rename are still seen. Errors while reloading
// are logged; Run returns nil when ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(f.path)

	// Pick up anything written before the watch was in place.
	if err := f.Check(); err != nil {
		f.log.Debugw("initial transcript check", "path", f.path, "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := f.Check(); err != nil {
				f.log.Warnw("failed to reload transcript", "path", f.path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.log.Warnw("watch error", "path", f.path, "error", err)
		}
	}
}
