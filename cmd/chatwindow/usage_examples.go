package main

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

//go:embed docs/usage_examples.md
var usageExamplesFile string

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "chatwindow browses long conversations through a sliding window")
	fmt.Fprintln(w)
	if fs != nil {
		fmt.Fprintf(w, "Usage of %s:\n", fs.Name())
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, extractSection("Basic Usage"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "More examples with --examples=all or --examples=<section>:", strings.Join(sections(), ", "))
}

// printExamples prints the named sections of the usage examples, or all of
// them. Unknown sections are reported on stderr.
func printExamples(stdout, stderr io.Writer, show string) {
	if show == "all" {
		fmt.Fprintln(stdout, usageExamplesFile)
		return
	}
	for _, section := range strings.Split(show, ",") {
		content := extractSection(strings.TrimSpace(section))
		if content == "" {
			fmt.Fprintf(stderr, "Unknown section: %s\n", section)
			continue
		}
		fmt.Fprintln(stdout, content)
	}
}

func extractSection(sectionName string) string {
	lines := strings.Split(usageExamplesFile, "\n")
	inSection := false
	var sectionContent []string

	for _, line := range lines {
		if strings.HasPrefix(line, "## "+sectionName) {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(line, "## ") {
			break
		}
		if inSection {
			sectionContent = append(sectionContent, line)
		}
	}

	return strings.TrimSpace(strings.Join(sectionContent, "\n"))
}

func sections() []string {
	var out []string
	for _, line := range strings.Split(usageExamplesFile, "\n") {
		if name, ok := strings.CutPrefix(line, "## "); ok {
			out = append(out, name)
		}
	}
	return out
}
