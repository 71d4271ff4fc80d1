package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
no_color = true
log_level = "warn"

[loops]
window_size = 8
min_repeats = 50

[output]
limit = 0
theme = "dmg"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.NoColor || cfg.Loops.WindowSize != 8 || cfg.Loops.MinRepeats != 50 || cfg.Output.Limit != 0 || cfg.Output.Theme != "dmg" || cfg.LogLevel != "warn" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// untouched keys keep defaults
	if cfg.Loops.MinIterations != 3 || cfg.Histogram.Top != 20 || !cfg.ShowRegisters {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero window", "[loops]\nwindow_size = 0\n", "loops.window_size"},
		{"short sequence", "[loops]\nmax_sequence_len = 1\n", "loops.max_sequence_len"},
		{"negative limit", "[output]\nlimit = -1\n", "output.limit"},
		{"unknown theme", "[output]\ntheme = \"sepia\"\n", "output.theme"},
		{"unknown log level", "log_level = \"trace\"\n", "log_level"},
		{"unknown key", "colour = true\n", "unknown key"},
		{"bad syntax", "[loops\n", "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("GBTRACE_CONFIG", "")

	dir := t.TempDir()
	cfg, path, err := Resolve("", dir)
	if err != nil || path != "" || cfg.Loops.WindowSize != 5 {
		t.Fatalf("Resolve without file = %+v, %q, %v", cfg, path, err)
	}

	want := writeConfig(t, dir, "[histogram]\ntop = 5\n")
	cfg, path, err = Resolve("", dir)
	if err != nil || path != want || cfg.Histogram.Top != 5 {
		t.Fatalf("Resolve from dir = %+v, %q, %v", cfg, path, err)
	}

	other := filepath.Join(t.TempDir(), "other.toml")
	if err := os.WriteFile(other, []byte("[histogram]\ntop = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GBTRACE_CONFIG", other)
	cfg, path, err = Resolve("", dir)
	if err != nil || path != other || cfg.Histogram.Top != 7 {
		t.Fatalf("Resolve from env = %+v, %q, %v", cfg, path, err)
	}
}
