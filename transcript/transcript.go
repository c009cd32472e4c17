// Package transcript reads and writes conversations as YAML documents.
package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"sigs.k8s.io/yaml"

	"github.com/tmc/chatwindow/message"
)

// Transcript is a titled, ordered conversation.
type Transcript struct {
	Title    string         `json:"title,omitempty"`
	Messages []*message.Msg `json:"messages"`
}

// Decode reads a transcript from r.
func Decode(r io.Reader) (*Transcript, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	for i, m := range t.Messages {
		if m == nil {
			return nil, fmt.Errorf("failed to parse transcript: message %d is empty", i)
		}
		if m.Type == "" {
			m.Type = message.TypeText
		}
		if m.ID == "" {
			m.ID = fmt.Sprint(i)
		}
	}
	return &t, nil
}

// Encode writes t to w as YAML.
func Encode(w io.Writer, t *Transcript) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// Load reads the transcript at path.
func Load(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Save writes t to path. The file is replaced atomically so followers never
// observe a partial document.
func Save(path string, t *Transcript) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create transcript file %q: %w", path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write transcript file %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace transcript file %q: %w", path, err)
	}
	return nil
}

// cgptHistory is the history file format written by cgpt.
type cgptHistory struct {
	Backend  string                `json:"backend"`
	Model    string                `json:"model"`
	Messages []llms.MessageContent `json:"messages"`
}

// ImportCgpt converts a cgpt history file into a transcript. Human turns
// become outgoing messages, AI turns incoming messages and system prompts
// system notices. History files carry no timestamps, so messages are spaced
// a minute apart ending at now.
func ImportCgpt(r io.Reader, now time.Time) (*Transcript, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var h cgptHistory
	if err := yaml.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	t := &Transcript{Title: strings.TrimSpace(h.Backend + " " + h.Model)}
	for _, mc := range h.Messages {
		var texts []string
		for _, p := range mc.Parts {
			switch p := p.(type) {
			case llms.TextContent:
				texts = append(texts, p.Text)
			case llms.ImageURLContent:
				t.Messages = append(t.Messages, importMsg(mc.Role, message.TypePhoto, p.URL))
			}
		}
		if len(texts) == 0 {
			continue
		}
		typ := message.TypeText
		if mc.Role == llms.ChatMessageTypeSystem || mc.Role == llms.ChatMessageTypeTool {
			typ = message.TypeSystem
		}
		t.Messages = append(t.Messages, importMsg(mc.Role, typ, strings.Join(texts, "\n")))
	}
	start := now.Add(-time.Duration(len(t.Messages)-1) * time.Minute)
	for i, m := range t.Messages {
		m.ID = fmt.Sprintf("cgpt-%d", i)
		m.Time = start.Add(time.Duration(i) * time.Minute)
	}
	return t, nil
}

func importMsg(role llms.ChatMessageType, typ message.Type, text string) *message.Msg {
	if typ == message.TypeSystem {
		return message.NewSystem("", text, time.Time{})
	}
	m := message.New("", typ, text, role != llms.ChatMessageTypeHuman, time.Time{})
	m.Status = message.StatusSent
	return m
}
