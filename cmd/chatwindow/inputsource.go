package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// InputSource is a block of console commands and where it came from.
type InputSource struct {
	Type  string // "stdin", "file", "string", or "arg"
	Name  string
	Value string
}

// Lines splits the source into command lines.
func (s InputSource) Lines() []string {
	if s.Value == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s.Value, "\n"), "\n")
}

type InputHandler struct {
	Files   []string
	Strings []string
	Args    []string
	Stdin   io.Reader
}

// Process reads the set of inputs, this will block on stdin if it is included.
// Positional arguments form a single command. Piped stdin that no "-" file
// claimed is read last.
func (h *InputHandler) Process() ([]InputSource, error) {
	var sources []InputSource
	stdinContent, err := h.readStdin()
	if err != nil {
		return nil, err
	}

	stdinUsed := false
	for _, file := range h.Files {
		if file == "-" {
			sources = append(sources, InputSource{Type: "stdin", Name: "-", Value: stdinContent})
			stdinUsed = true
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading file %s: %w", file, err)
		}
		sources = append(sources, InputSource{Type: "file", Name: file, Value: string(content)})
	}

	for _, s := range h.Strings {
		sources = append(sources, InputSource{Type: "string", Name: "-i", Value: s})
	}

	if len(h.Args) > 0 {
		sources = append(sources, InputSource{Type: "arg", Name: "args", Value: strings.Join(h.Args, " ")})
	}

	if !stdinUsed && stdinContent != "" {
		sources = append(sources, InputSource{Type: "stdin", Name: "-", Value: stdinContent})
	}

	return sources, nil
}

func (h *InputHandler) readStdin() (string, error) {
	if h.Stdin == nil || !isPiped(h.Stdin) {
		return "", nil
	}
	input, err := io.ReadAll(h.Stdin)
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	return string(input), nil
}

// isPiped reports whether r is something other than an interactive terminal.
func isPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
