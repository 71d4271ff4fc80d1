// Package config loads gbtrace settings from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the working directory.
const FileName = "gbtrace.toml"

// Config represents configuration for the gbtrace tool
type Config struct {
	Debug         bool            `toml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	LogLevel      string          `toml:"log_level" json:"log_level,omitempty" jsonschema:"title=Log Level,description=Log level when GBTRACE_LOG_LEVEL is unset,enum=debug,enum=info,enum=warn,enum=error"`
	NoColor       bool            `toml:"no_color" json:"no_color" jsonschema:"title=No Color,description=Disable ANSI styling in output"`
	ShowRegisters bool            `toml:"show_registers" json:"show_registers" jsonschema:"title=Show Registers,description=Print the register snapshot next to each entry,default=true"`
	Histogram     HistogramConfig `toml:"histogram" json:"histogram"`
	Loops         LoopConfig      `toml:"loops" json:"loops"`
	Output        OutputConfig    `toml:"output" json:"output"`
}

type HistogramConfig struct {
	Top int `toml:"top" json:"top" jsonschema:"title=Top,description=Rows shown in the instruction histogram,minimum=1,default=20"`
}

type LoopConfig struct {
	WindowSize            int `toml:"window_size" json:"window_size" jsonschema:"description=PC window length for windowed loop detection,minimum=1,default=5"`
	MinIterations         int `toml:"min_iterations" json:"min_iterations" jsonschema:"description=Window repeats that count as a loop,minimum=1,default=3"`
	MinRepeats            int `toml:"min_repeats" json:"min_repeats" jsonschema:"description=Visits that make a PC hot,minimum=1,default=5"`
	TightThreshold        int `toml:"tight_threshold" json:"tight_threshold" jsonschema:"description=Consecutive identical instructions that count as a tight loop,minimum=1,default=10"`
	SequenceMinIterations int `toml:"sequence_min_iterations" json:"sequence_min_iterations" jsonschema:"description=Back-to-back repeats that count as a sequence run,minimum=1,default=3"`
	MaxSequenceLen        int `toml:"max_sequence_len" json:"max_sequence_len" jsonschema:"description=Longest pattern tried for sequence runs,minimum=2,default=10"`
}

type OutputConfig struct {
	Limit int    `toml:"limit" json:"limit" jsonschema:"description=Rows shown per list before eliding (0 shows all),minimum=0,default=20"`
	Theme string `toml:"theme" json:"theme" jsonschema:"description=Markdown theme for reports and the browser,enum=charm,enum=dmg,default=charm"`
}

// Themes lists the accepted output.theme values.
var Themes = []string{"charm", "dmg"}

// LogLevels lists the accepted log_level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ShowRegisters: true,
		Histogram:     HistogramConfig{Top: 20},
		Loops: LoopConfig{
			WindowSize:            5,
			MinIterations:         3,
			MinRepeats:            5,
			TightThreshold:        10,
			SequenceMinIterations: 3,
			MaxSequenceLen:        10,
		},
		Output: OutputConfig{Limit: 20, Theme: "charm"},
	}
}

// Load decodes the TOML file at path over the defaults and validates the
// result. Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve picks the config file: explicit path, then GBTRACE_CONFIG, then
// gbtrace.toml in dir. Without any file it returns the defaults.
func Resolve(explicit, dir string) (Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	if env := os.Getenv("GBTRACE_CONFIG"); env != "" {
		cfg, err := Load(env)
		return cfg, env, err
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := Load(candidate)
		return cfg, candidate, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, "", fmt.Errorf("cannot access config: %w", err)
	}
	return Default(), "", nil
}

// Validate rejects thresholds that would make an analysis meaningless.
func (c Config) Validate() error {
	checks := []struct {
		key   string
		value int
		min   int
	}{
		{"histogram.top", c.Histogram.Top, 1},
		{"loops.window_size", c.Loops.WindowSize, 1},
		{"loops.min_iterations", c.Loops.MinIterations, 1},
		{"loops.min_repeats", c.Loops.MinRepeats, 1},
		{"loops.tight_threshold", c.Loops.TightThreshold, 1},
		{"loops.sequence_min_iterations", c.Loops.SequenceMinIterations, 1},
		{"loops.max_sequence_len", c.Loops.MaxSequenceLen, 2},
		{"output.limit", c.Output.Limit, 0},
	}
	for _, ch := range checks {
		if ch.value < ch.min {
			return fmt.Errorf("%s must be at least %d, got %d", ch.key, ch.min, ch.value)
		}
	}
	if c.LogLevel != "" && !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(LogLevels, ", "), c.LogLevel)
	}
	if !slices.Contains(Themes, c.Output.Theme) {
		return fmt.Errorf("output.theme must be one of %s, got %q", strings.Join(Themes, ", "), c.Output.Theme)
	}
	return nil
}
