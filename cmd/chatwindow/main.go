// Command chatwindow browses long conversations through a sliding window.
//
// Usage:
//
//	chatwindow [flags] [command]
//
// Flags:
//
//	-s, --source string          Where messages come from: fake, tutorial, sqlite, transcript, cgpt (default "fake")
//	-n, --count int              Messages in a fake conversation, or to seed into an empty database (default 1000)
//	    --page-size int          Messages loaded per page (default 50)
//	    --max-window int         Largest window kept after paging (default 500)
//	    --database string        SQLite database for --source=sqlite
//	-t, --transcript string      Transcript file for --source=transcript or cgpt
//	    --follow                 Append messages written to the transcript while running
//	    --seed int               Seed for generated messages and send failures (default 1)
//	    --send-delay duration    Simulated network delay for outgoing messages (default 2s)
//	    --failure-rate float     Probability that an outgoing message fails
//	-i, --input stringArray      Console command to run (repeatable)
//	-f, --file stringArray       File of console commands. Use '-' for stdin
//	    --tui                    Always use the full-screen view
//	    --repl                   Use the line console
//	-o, --export string          Write the conversation to this transcript after the run
//	    --width int              Render width outside the full-screen view (default 60)
//	    --config string          Path to the configuration file
//	-v, --verbose                Verbose output
//	    --debug                  Debug output
//	-h, --help                   Display help information
//	    --examples string        Show usage examples: all, or a comma-separated list of sections
//
// Without commands, chatwindow opens the full-screen view when attached to
// a terminal and otherwise reads console commands from stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tmc/chatwindow"
	"github.com/tmc/chatwindow/options"
	"github.com/tmc/chatwindow/presenter"
	"github.com/tmc/chatwindow/transcript"
	"github.com/tmc/chatwindow/ui/chatlist"
)

// Overridden in tests to make output reproducible.
var (
	clock    = time.Now
	newID    func() string
	location = time.Local
)

func main() {
	opts, fs, err := initFlags(os.Args, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, opts, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initFlags(args []string, stdin io.Reader) (options.RunOptions, *pflag.FlagSet, error) {
	opts := options.RunOptions{
		Stdin:  stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	name := "chatwindow"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	// Configuration values are read back through viper in options.LoadConfig.
	fs.StringP("source", "s", options.SourceFake, "Where messages come from: "+strings.Join(options.Sources, ", "))
	fs.IntP("count", "n", 1000, "Messages in a fake conversation, or to seed into an empty database")
	fs.Int("page-size", 50, "Messages loaded per page")
	fs.Int("max-window", chatwindow.DefaultMaxWindowSize, "Largest window kept after paging")
	fs.String("database", "", "SQLite database for --source=sqlite")
	fs.StringP("transcript", "t", "", "Transcript file for --source=transcript or cgpt")
	fs.Bool("follow", false, "Append messages written to the transcript while running")
	fs.Int64("seed", 1, "Seed for generated messages and send failures")
	fs.Duration("send-delay", 2*time.Second, "Simulated network delay for outgoing messages")
	fs.Float64("failure-rate", 0, "Probability that an outgoing message fails")

	fs.StringArrayVarP(&opts.InputStrings, "input", "i", nil, "Console command to run (repeatable)")
	fs.StringArrayVarP(&opts.InputFiles, "file", "f", nil, "File of console commands. Use '-' for stdin")
	tui := fs.Bool("tui", false, "Always use the full-screen view")
	repl := fs.Bool("repl", false, "Use the line console")
	fs.StringVarP(&opts.Export, "export", "o", "", "Write the conversation to this transcript after the run")
	fs.IntVar(&opts.Width, "width", chatwindow.DefaultWidth, "Render width outside the full-screen view")

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to the configuration file")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	fs.BoolVar(&opts.DebugMode, "debug", false, "Debug output")
	fs.BoolVarP(&opts.PrintUsage, "help", "h", false, "Display help information")
	fs.StringVar(&opts.Examples, "examples", "", "Show usage examples: all, or a comma-separated list of sections")

	// hidden flags
	fs.StringVar(&opts.ReadlineHistoryFile, "readline-history-file", "~/.chatwindow_history", "File to store readline history in")
	fs.MarkHidden("readline-history-file")

	fs.Usage = func() { printUsage(opts.Stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return opts, fs, err
	}
	opts.PositionalArgs = fs.Args()

	switch {
	case *tui && *repl:
		return opts, fs, errors.New("--tui and --repl are mutually exclusive")
	case *tui:
		opts.Mode = options.ModeTUI
	case *repl:
		opts.Mode = options.ModeREPL
	}
	return opts, fs, nil
}

func run(ctx context.Context, opts options.RunOptions, fs *pflag.FlagSet) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.PrintUsage {
		printUsage(opts.Stdout, fs)
		return nil
	}
	if opts.Examples != "" {
		printExamples(opts.Stdout, opts.Stderr, opts.Examples)
		return nil
	}

	cfg, err := options.LoadConfig(opts.ConfigPath, opts.Stderr, fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts.Config = cfg

	log, err := NewLogger(opts.Stderr, opts.Verbose, opts.DebugMode || cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	conv, err := openConversation(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conv.Close()

	mode := selectMode(opts)
	log.Debugw("starting", "mode", mode, "source", cfg.Source, "stats", conv.ds.Stats().String())

	switch mode {
	case options.ModeTUI:
		err = chatlist.Run(ctx, chatlist.Config{
			DataSource:  conv.ds,
			Registry:    presenter.Default(nil),
			Factory:     conv.factory,
			Location:    location,
			CompactSize: 2 * cfg.PageSize,
			Flags:       []string{cfg.Source},
			Follow:      conv.follow,
			Logger:      log.Named("ui"),
			Stdin:       opts.Stdin,
			Stdout:      opts.Stdout,
		})
	case options.ModeREPL:
		err = runREPL(ctx, opts, conv, log)
	default:
		if conv.follow != nil {
			log.Infow("--follow is ignored when running commands", "transcript", cfg.Transcript)
		}
		err = runScript(ctx, opts, conv, log)
	}
	if err != nil {
		return err
	}

	if err := conv.ds.Wait(ctx); err != nil {
		return err
	}
	if opts.Export != "" {
		t := &transcript.Transcript{Title: conv.title, Messages: conv.ds.Messages()}
		if err := transcript.Save(opts.Export, t); err != nil {
			return fmt.Errorf("failed to export conversation: %w", err)
		}
		log.Infow("exported conversation", "path", opts.Export, "messages", len(t.Messages))
	}
	return nil
}

// selectMode resolves ModeAuto: commands on the command line run as a
// script, a terminal gets the full-screen view and anything else is read
// as a script from stdin.
func selectMode(opts options.RunOptions) options.Mode {
	switch {
	case opts.Mode != options.ModeAuto:
		return opts.Mode
	case opts.HasScript():
		return options.ModeScript
	case isTerminal(opts.Stdin) && isTerminal(opts.Stdout):
		return options.ModeTUI
	}
	return options.ModeScript
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
