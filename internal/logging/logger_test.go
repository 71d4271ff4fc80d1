package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"info", log.InfoLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewLoggerWithWriterUsesEnv(t *testing.T) {
	t.Setenv("GBTRACE_LOG_LEVEL", "warn")
	t.Setenv("GBTRACE_LOG_PREFIX", "test ")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf, "")
	defer lg.Close()

	lg.Info("hidden")
	lg.Warn("shown", "entries", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "test") {
		t.Errorf("warn message missing or unprefixed: %q", out)
	}
}

func TestLevelPrefersEnvironment(t *testing.T) {
	t.Setenv("GBTRACE_LOG_LEVEL", "")
	if got := Level("warn"); got != "warn" {
		t.Errorf("Level(warn) without env = %q", got)
	}
	if IsDebug("info") {
		t.Error("IsDebug(info) = true")
	}

	t.Setenv("GBTRACE_LOG_LEVEL", "debug")
	if got := Level("warn"); got != "debug" {
		t.Errorf("Level(warn) with env = %q, want debug", got)
	}
	if !IsDebug("") {
		t.Error("IsDebug should follow GBTRACE_LOG_LEVEL")
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tests := []struct {
		trace string
		want  string
	}{
		{"/tmp/roms/cpu_instrs.json", "gbtrace-cpu_instrs-20240309-140507.log"},
		{"halt_bug.jsonl.zst", "gbtrace-halt_bug-20240309-140507.log"},
		{"traces/boot.JSON.gz", "gbtrace-boot-20240309-140507.log"},
		{"dump.bin", "gbtrace-dump.bin-20240309-140507.log"},
		{"", "gbtrace-20240309-140507-debug.log"},
	}
	for _, tt := range tests {
		t.Run(tt.trace, func(t *testing.T) {
			if got := FileName(tt.trace, now); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.trace, got, tt.want)
			}
		})
	}
}

func TestNewLoggerWritesNextToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GBTRACE_LOG_TO_FILE", "1")
	t.Setenv("GBTRACE_LOG_LEVEL", "")

	lg := NewLogger(Options{Level: "info", Dir: dir, Trace: "boot.json"})
	lg.Info("loaded", "entries", 5)
	if err := lg.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if filepath.Dir(lg.Path()) != dir || !strings.HasPrefix(filepath.Base(lg.Path()), "gbtrace-boot-") {
		t.Fatalf("log path = %q, want gbtrace-boot-* in %s", lg.Path(), dir)
	}
	data, err := os.ReadFile(lg.Path())
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "loaded") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestNewLoggerStderrByDefault(t *testing.T) {
	t.Setenv("GBTRACE_LOG_TO_FILE", "")
	lg := NewLogger(Options{})
	if lg.Path() != "" {
		t.Errorf("Path() = %q, want stderr logger", lg.Path())
	}
	if err := lg.Close(); err != nil {
		t.Errorf("Close on stderr logger = %v", err)
	}
}
