package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/tmc/chatwindow"
	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/options"
)

func newConsole(opts options.RunOptions, conv *conversation) *chatwindow.Console {
	return chatwindow.NewConsole(conv.ds,
		chatwindow.WithWidth(opts.Width),
		chatwindow.WithFactory(conv.factory),
		chatwindow.WithLocation(location),
	)
}

// runScript executes console commands from the command line or stdin.
// Failing commands are reported and the script continues.
func runScript(ctx context.Context, opts options.RunOptions, conv *conversation, log *zap.SugaredLogger) error {
	h := &InputHandler{
		Files:   opts.InputFiles,
		Strings: opts.InputStrings,
		Args:    opts.PositionalArgs,
		Stdin:   opts.Stdin,
	}
	sources, err := h.Process()
	if err != nil {
		return err
	}
	console := newConsole(opts, conv)
	failed := 0
	for _, src := range sources {
		log.Debugw("running commands", "type", src.Type, "name", src.Name)
		for i, line := range src.Lines() {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := console.Exec(ctx, line)
			if err != nil {
				failed++
				fmt.Fprintf(opts.Stderr, "%s:%d: %v\n", src.Name, i+1, err)
				continue
			}
			if out != "" {
				fmt.Fprintln(opts.Stdout, out)
			}
		}
	}
	if failed > 0 {
		log.Infow("script finished with errors", "failed", failed)
	}
	return nil
}

var replCompleter = readline.NewPrefixCompleter(
	readline.PcItem("next"),
	readline.PcItem("prev"),
	readline.PcItem("adjust"),
	readline.PcItem("send"),
	readline.PcItem("incoming"),
	readline.PcItem("prepend"),
	readline.PcItem("read"),
	readline.PcItem("show"),
	readline.PcItem("list"),
	readline.PcItem("state"),
	readline.PcItem("wait"),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)

// runREPL runs the line console until EOF, quit, or ctx is done.
func runREPL(ctx context.Context, opts options.RunOptions, conv *conversation, log *zap.SugaredLogger) error {
	cfg := &readline.Config{
		Prompt:          "chat> ",
		HistoryFile:     expandTilde(opts.ReadlineHistoryFile),
		AutoComplete:    replCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          opts.Stdout,
		Stderr:          opts.Stderr,
		FuncIsTerminal: func() bool {
			return isTerminal(opts.Stdin) && isTerminal(opts.Stdout)
		},
	}
	if rc, ok := opts.Stdin.(io.ReadCloser); ok {
		cfg.Stdin = rc
	} else {
		cfg.Stdin = io.NopCloser(opts.Stdin)
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// Unblock Readline when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-done:
		}
	}()

	if conv.follow != nil {
		go func() {
			err := conv.follow(ctx, func(msgs []*message.Msg) {
				conv.ds.AppendMessages(msgs)
				fmt.Fprintf(rl.Stderr(), "%d new message(s)\n", len(msgs))
				rl.Refresh()
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warnw("stopped following transcript", "error", err)
			}
		}()
	}

	console := newConsole(opts, conv)
	fmt.Fprintln(rl.Stdout(), "type help for commands, quit to exit")
	for {
		line, err := rl.Readline()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		line = strings.TrimSpace(line)
		if line == "quit" || line == "exit" {
			return nil
		}
		out, err := console.Exec(ctx, line)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Fprintln(rl.Stdout(), out)
		}
	}
}
