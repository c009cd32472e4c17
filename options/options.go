package options

import (
	"io"
)

// Mode selects how the CLI interacts with the user.
type Mode int

const (
	// ModeAuto picks the TUI on a terminal and script mode otherwise.
	ModeAuto Mode = iota
	ModeTUI
	ModeREPL
	ModeScript
)

func (m Mode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeREPL:
		return "repl"
	case ModeScript:
		return "script"
	}
	return "auto"
}

// RunOptions contains all the options that are relevant to run chatwindow.
type RunOptions struct {
	// Config options
	*Config `json:"config,omitempty" yaml:"config,omitempty"`

	// --- Input source flags ---
	// InputStrings are console commands given with -i.
	InputStrings []string `json:"inputStrings,omitempty" yaml:"inputStrings,omitempty"`
	// InputFiles are files of console commands given with -f ("-" is stdin).
	InputFiles     []string `json:"inputFiles,omitempty" yaml:"inputFiles,omitempty"`
	PositionalArgs []string `json:"positionalArgs,omitempty" yaml:"positionalArgs,omitempty"`

	Mode       Mode   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Export     string `json:"export,omitempty" yaml:"export,omitempty"` // Write the conversation here after the run
	Width      int    `json:"width,omitempty" yaml:"width,omitempty"`   // Render width outside the TUI
	PrintUsage bool
	// Examples names usage example sections to print, or "all".
	Examples string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// Verbosity options
	Verbose   bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	DebugMode bool `json:"debugMode,omitempty" yaml:"debugMode,omitempty"`

	ReadlineHistoryFile string `json:"readlineHistoryFile,omitempty" yaml:"readlineHistoryFile,omitempty"`

	// --- I/O handles passed in ---
	Stdout io.Writer `json:"-" yaml:"-"`
	Stderr io.Writer `json:"-" yaml:"-"`
	Stdin  io.Reader `json:"-" yaml:"-"` // Passed during initFlags

	ConfigPath string `json:"configPath,omitempty" yaml:"configPath,omitempty"`
}

// HasScript reports whether commands were given on the command line.
func (o *RunOptions) HasScript() bool {
	return len(o.InputStrings) > 0 || len(o.InputFiles) > 0 || len(o.PositionalArgs) > 0
}
