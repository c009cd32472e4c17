package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tmc/chatwindow"
	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/options"
	"github.com/tmc/chatwindow/store"
	"github.com/tmc/chatwindow/transcript"
	"github.com/tmc/chatwindow/window"
)

// conversation is an opened message source wrapped in a data source.
type conversation struct {
	ds      *chatwindow.DataSource
	factory *message.Factory
	title   string
	// follow is set when new transcript messages should be streamed in.
	follow  func(ctx context.Context, deliver func([]*message.Msg)) error
	closers []func() error
}

func (c *conversation) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openConversation(ctx context.Context, cfg *options.Config, log *zap.SugaredLogger) (*conversation, error) {
	now := clock()
	factory := message.NewFactory(cfg.Seed, now)
	// The newest generated message is the most recent one.
	factory.Epoch = now.Add(-time.Duration(cfg.Count) * factory.Interval)
	conv := &conversation{factory: factory, title: cfg.Source}
	seqOpts := []window.Option{window.WithLogger(log.Named("window"))}
	dsOpts := []chatwindow.Option{
		chatwindow.WithMaxWindowSize(cfg.MaxWindow),
		chatwindow.WithSender(chatwindow.NewSender(cfg.SendDelay, cfg.FailureRate, cfg.Seed, log.Named("sender"))),
		chatwindow.WithLogger(log.Named("datasource")),
		chatwindow.WithClock(clock),
	}
	if newID != nil {
		dsOpts = append(dsOpts, chatwindow.WithIDFunc(newID))
	}

	var (
		seq *window.Sequence[*message.Msg]
		// loaded sources start with every message in the window
		loaded bool
		err    error
	)
	switch cfg.Source {
	case options.SourceFake:
		seq, err = window.New(cfg.Count, cfg.PageSize, factory.Generator(), seqOpts...)
		if err != nil {
			return nil, err
		}
	case options.SourceTutorial:
		seq, loaded = window.FromItems(message.Tutorial(now), cfg.PageSize, seqOpts...), true
		conv.title = "tutorial"
	case options.SourceSQLite:
		st, err := store.Open(ctx, cfg.Database, store.WithLogger(log.Named("store")))
		if err != nil {
			return nil, err
		}
		conv.closers = append(conv.closers, st.Close)
		n, err := st.Count(ctx)
		if err != nil {
			conv.Close()
			return nil, err
		}
		if n == 0 && cfg.Count > 0 {
			log.Infow("seeding empty database", "path", cfg.Database, "count", cfg.Count)
			if err := st.Seed(ctx, factory, cfg.Count); err != nil {
				conv.Close()
				return nil, err
			}
			n = cfg.Count
		}
		seq, err = window.New(n, cfg.PageSize, st.Generator(ctx, cfg.PageSize), seqOpts...)
		if err != nil {
			conv.Close()
			return nil, err
		}
		dsOpts = append(dsOpts, chatwindow.WithPersister(st))
		conv.title = cfg.Database
	case options.SourceTranscript:
		t, err := transcript.Load(cfg.Transcript)
		if err != nil {
			return nil, err
		}
		seq, loaded = window.FromItems(t.Messages, cfg.PageSize, seqOpts...), true
		conv.title = t.Title
		if cfg.Follow {
			from := len(t.Messages)
			conv.follow = func(ctx context.Context, deliver func([]*message.Msg)) error {
				f := transcript.NewFollower(cfg.Transcript, from, deliver, transcript.WithFollowLogger(log.Named("follow")))
				return f.Run(ctx)
			}
		}
	case options.SourceCgpt:
		f, err := os.Open(cfg.Transcript)
		if err != nil {
			return nil, err
		}
		t, err := transcript.ImportCgpt(f, now)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Transcript, err)
		}
		seq, loaded = window.FromItems(t.Messages, cfg.PageSize, seqOpts...), true
		conv.title = t.Title
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}

	conv.ds = chatwindow.NewDataSource(window.NewLocked(seq), dsOpts...)
	if loaded {
		// Show the newest page, like a generated conversation.
		if _, err := conv.ds.AdjustNumberOfMessages(cfg.PageSize, 1); err != nil {
			conv.Close()
			return nil, err
		}
	}
	return conv, nil
}
