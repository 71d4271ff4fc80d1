// Package logging provides structured logging with file output support.
// Settings come from the config file and can be overridden by environment
// variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options select the logger's level and where a log file goes.
type Options struct {
	Level string // debug, info, warn or error; "" is info
	Dir   string // directory for the log file, "" for the current one
	Trace string // trace being analyzed; names the log file
}

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
	path   string
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Path is the log file being written, or "" when logging to stderr.
func (lc *LoggerCloser) Path() string { return lc.path }

// ParseLevel maps a level name to a log level. Unknown names give info.
func ParseLevel(name string) log.Level {
	switch name {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Level returns GBTRACE_LOG_LEVEL when set, otherwise configured.
func Level(configured string) string {
	if env := os.Getenv("GBTRACE_LOG_LEVEL"); env != "" {
		return env
	}
	return configured
}

// FileName names the log for a run over trace: the trace's base name with
// its .json/.jsonl/.gz/.zst suffixes removed, then the start time.
func FileName(trace string, now time.Time) string {
	stamp := now.Format("20060102-150405")
	stem := filepath.Base(trace)
	for {
		ext := filepath.Ext(stem)
		switch strings.ToLower(ext) {
		case ".json", ".jsonl", ".gz", ".zst":
			stem = strings.TrimSuffix(stem, ext)
			continue
		}
		break
	}
	if trace == "" || stem == "" || stem == "." {
		return fmt.Sprintf("gbtrace-%s-debug.log", stamp)
	}
	return fmt.Sprintf("gbtrace-%s-%s.log", stem, stamp)
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer, level string) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(Level(level)))

	prefix := os.Getenv("GBTRACE_LOG_PREFIX")
	if prefix == "" {
		prefix = "gbtrace "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a logger from opts and the environment:
// GBTRACE_LOG_LEVEL: overrides opts.Level
// GBTRACE_LOG_PREFIX: prefix for log messages (default: "gbtrace ")
// GBTRACE_LOG_TO_FILE: when set to "1", logs to FileName in opts.Dir instead of stderr
func NewLogger(opts Options) *LoggerCloser {
	if os.Getenv("GBTRACE_LOG_TO_FILE") != "1" {
		return NewLoggerWithWriter(os.Stderr, opts.Level)
	}

	path := filepath.Join(opts.Dir, FileName(opts.Trace, time.Now()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		lg := NewLoggerWithWriter(os.Stderr, opts.Level)
		lg.Warn("Cannot open log file, using stderr", "path", path, "error", err)
		return lg
	}
	lg := NewLoggerWithWriter(f, opts.Level)
	lg.path = path
	return lg
}

// IsDebug reports whether the resolved level is debug.
func IsDebug(configured string) bool {
	return Level(configured) == "debug"
}
