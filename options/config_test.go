package options

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadConfigPrecedence(t *testing.T) {
	def := Config{
		Source:    SourceFake,
		Count:     1000,
		PageSize:  50,
		MaxWindow: 500,
		Seed:      1,
		SendDelay: 2 * time.Second,
	}
	with := func(f func(c *Config)) Config {
		c := def
		f(&c)
		return c
	}
	tests := []struct {
		name, configYAML string
		env              map[string]string
		flags            []string
		want             Config
		wantLogs         string
	}{
		{
			name: "defaults",
			want: def,
		},
		{
			name:  "dashed flags are normalized",
			flags: []string{"--page-size=20", "--max-window=80", "--send-delay=150ms"},
			want: with(func(c *Config) {
				c.PageSize, c.MaxWindow, c.SendDelay = 20, 80, 150*time.Millisecond
			}),
		},
		{
			name: "env overrides defaults",
			env:  map[string]string{"CHATWINDOW_SOURCE": "tutorial", "CHATWINDOW_COUNT": "7"},
			want: with(func(c *Config) { c.Source, c.Count = SourceTutorial, 7 }),
		},
		{
			name:       "config file overrides defaults",
			configYAML: "source: sqlite\ndatabase: chat.db\npageSize: 25\nfailureRate: 0.5",
			want: with(func(c *Config) {
				c.Source, c.Database, c.PageSize, c.FailureRate = SourceSQLite, "chat.db", 25, 0.5
			}),
			wantLogs: "chatwindow: successfully read config from",
		},
		{
			name:       "flag overrides config file",
			configYAML: "source: sqlite\npageSize: 25",
			flags:      []string{"--source=tutorial"},
			want:       with(func(c *Config) { c.Source, c.PageSize = SourceTutorial, 25 }),
		},
		{
			name:       "flag overrides env",
			env:        map[string]string{"CHATWINDOW_COUNT": "7"},
			configYAML: "count: 9",
			flags:      []string{"--count=3"},
			want:       with(func(c *Config) { c.Count = 3 }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var configPath string
			if tt.configYAML != "" {
				f, err := os.CreateTemp("", "config.*.yaml")
				if err != nil {
					t.Fatal(err)
				}
				defer os.Remove(f.Name())
				if _, err := f.WriteString(tt.configYAML); err != nil {
					t.Fatal(err)
				}
				f.Close()
				configPath = f.Name()
			}

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			fs.String("source", SourceFake, "")
			fs.Int("count", 1000, "")
			fs.Int("page-size", 50, "")
			fs.Int("max-window", 500, "")
			fs.Duration("send-delay", 2*time.Second, "")
			fs.String("config", "", "")
			fs.Bool("verbose", true, "")
			if configPath != "" {
				fs.Set("config", configPath)
			}
			if err := fs.Parse(tt.flags); err != nil {
				t.Fatal(err)
			}

			var stderr bytes.Buffer
			cfg, err := LoadConfig("", &stderr, fs)
			if err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(*cfg, tt.want) {
				t.Errorf("Config = %+v, want %+v", *cfg, tt.want)
			}
			if tt.wantLogs != "" && !strings.Contains(stderr.String(), tt.wantLogs) {
				t.Errorf("Logs = %q, want to contain %q", stderr.String(), tt.wantLogs)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Config{Source: SourceFake, PageSize: 10}
	tests := []struct {
		name    string
		mod     func(c *Config)
		wantErr string
	}{
		{name: "valid", mod: func(c *Config) {}},
		{name: "unknown source", mod: func(c *Config) { c.Source = "irc" }, wantErr: "unknown source"},
		{name: "negative count", mod: func(c *Config) { c.Count = -1 }, wantErr: "count"},
		{name: "zero page", mod: func(c *Config) { c.PageSize = 0 }, wantErr: "page size"},
		{name: "negative max", mod: func(c *Config) { c.MaxWindow = -1 }, wantErr: "max window"},
		{name: "failure rate", mod: func(c *Config) { c.FailureRate = 2 }, wantErr: "failure rate"},
		{name: "sqlite without database", mod: func(c *Config) { c.Source = SourceSQLite }, wantErr: "--database"},
		{name: "cgpt without file", mod: func(c *Config) { c.Source = SourceCgpt }, wantErr: "--transcript"},
		{name: "follow fake", mod: func(c *Config) { c.Follow = true }, wantErr: "--follow"},
		{name: "follow transcript", mod: func(c *Config) {
			c.Source, c.Transcript, c.Follow = SourceTranscript, "t.yaml", true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ok
			tt.mod(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
