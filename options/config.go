// Package options provides configuration management for the chatwindow CLI.
package options

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sources a conversation can be loaded from.
const (
	SourceFake       = "fake"
	SourceTutorial   = "tutorial"
	SourceSQLite     = "sqlite"
	SourceTranscript = "transcript"
	SourceCgpt       = "cgpt"
)

// Sources lists the valid values of Config.Source.
var Sources = []string{SourceFake, SourceTutorial, SourceSQLite, SourceTranscript, SourceCgpt}

// Config holds the configuration for the chatwindow CLI.
type Config struct {
	// Source selects where messages come from.
	Source string `yaml:"source"`
	// Count is the number of messages in a fake conversation, or the number
	// of messages to seed into an empty database.
	Count     int `yaml:"count"`
	PageSize  int `yaml:"pageSize"`
	MaxWindow int `yaml:"maxWindow"`

	Database   string `yaml:"database"`
	Transcript string `yaml:"transcript"`
	Follow     bool   `yaml:"follow"`
	Seed       int64  `yaml:"seed"`

	// SendDelay is how long the simulated network takes to send a message.
	SendDelay time.Duration `yaml:"sendDelay"`
	// FailureRate is the probability in [0, 1] that a send fails.
	FailureRate float64 `yaml:"failureRate"`

	Debug bool `yaml:"debug"`
}

// Validate checks values that flags and config files cannot constrain.
func (c *Config) Validate() error {
	valid := false
	for _, s := range Sources {
		if c.Source == s {
			valid = true
		}
	}
	switch {
	case !valid:
		return fmt.Errorf("unknown source %q (want one of %s)", c.Source, strings.Join(Sources, ", "))
	case c.Count < 0:
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	case c.MaxWindow < 0:
		return fmt.Errorf("max window must not be negative, got %d", c.MaxWindow)
	case c.FailureRate < 0 || c.FailureRate > 1:
		return fmt.Errorf("failure rate must be in [0, 1], got %v", c.FailureRate)
	case c.Source == SourceSQLite && c.Database == "":
		return fmt.Errorf("source %q needs --database", c.Source)
	case (c.Source == SourceTranscript || c.Source == SourceCgpt) && c.Transcript == "":
		return fmt.Errorf("source %q needs --transcript", c.Source)
	case c.Follow && c.Source != SourceTranscript:
		return fmt.Errorf("--follow needs source %q", SourceTranscript)
	}
	return nil
}

// LoadConfig loads the configuration from various sources in the following order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (CHATWINDOW_*)
// 3. Configuration file
// 4. Default values (lowest priority)
//
// If a config file is not found, it falls back to using defaults and flags.
func LoadConfig(path string, stderr io.Writer, flagSet *pflag.FlagSet) (*Config, error) {
	if flagSet == nil {
		flagSet = pflag.CommandLine
	}
	cfg := &Config{}
	v := viper.New()

	SetupViper(v, flagSet)
	if path != "" {
		v.SetConfigFile(path)
	}
	SetupFlagNormalization(flagSet)

	// Read config file first
	if err := HandleConfigFile(v, stderr, flagSet); err != nil {
		return nil, err
	}

	// Then bind flags (so they override config)
	if err := v.BindPFlags(flagSet); err != nil {
		return nil, fmt.Errorf("unable to bind flags: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if debug, _ := flagSet.GetBool("debug"); debug {
		fmt.Fprintf(stderr, "chatwindow: source is %q\n", cfg.Source)
	}
	return cfg, nil
}

// SetupViper configures viper with default values and settings
func SetupViper(v *viper.Viper, flagSet *pflag.FlagSet) {
	// Set defaults
	v.SetDefault("source", SourceFake)
	v.SetDefault("count", 1000)
	v.SetDefault("pageSize", 50)
	v.SetDefault("maxWindow", 500)
	v.SetDefault("seed", 1)
	v.SetDefault("sendDelay", 2*time.Second)
	v.SetDefault("failureRate", 0.0)

	// Setup paths and env
	v.AddConfigPath("/etc/chatwindow/")
	v.AddConfigPath("$HOME/.chatwindow")
	v.AddConfigPath(".")
	v.SetConfigName("config")

	// Setup env vars
	v.SetEnvPrefix("CHATWINDOW")
	v.AutomaticEnv()

	// Set config file if specified in flags
	if flagConfigFilePath := flagSet.Lookup("config"); flagConfigFilePath != nil && flagConfigFilePath.Changed {
		v.SetConfigFile(flagConfigFilePath.Value.String())
	}
}

// SetupFlagNormalization configures flag normalization to handle dashes in flag names
func SetupFlagNormalization(flagSet *pflag.FlagSet) {
	normalizeFunc := flagSet.GetNormalizeFunc()
	flagSet.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		result := normalizeFunc(fs, name)
		name = strings.ReplaceAll(string(result), "-", "")
		return pflag.NormalizedName(name)
	})
}

// HandleConfigFile handles loading the configuration file
func HandleConfigFile(v *viper.Viper, stderr io.Writer, flagSet *pflag.FlagSet) error {
	verbose, _ := flagSet.GetBool("verbose")
	if configFlag := flagSet.Lookup("config"); configFlag != nil && configFlag.Changed {
		configFile := configFlag.Value.String()
		if verbose {
			fmt.Fprintf(stderr, "chatwindow: trying to read config file: %s\n", configFile)
		}

		// Check if file exists and is readable
		if _, err := os.Stat(configFile); err != nil {
			if verbose {
				fmt.Fprintf(stderr, "chatwindow: config file %s not accessible: %v\n", configFile, err)
			}
			return nil
		}

		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if debug, _ := flagSet.GetBool("debug"); debug {
				fmt.Fprintln(stderr, "chatwindow: config file not found, using defaults")
			}
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to read config file: %w", err)
	}

	if verbose {
		fmt.Fprintf(stderr, "chatwindow: successfully read config from %s\n", v.ConfigFileUsed())
	}
	return nil
}
