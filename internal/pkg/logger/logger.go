package logger

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// StdLogger is a structured logger backed by log/slog.
type StdLogger struct {
	log *slog.Logger
}

// NewStd creates a StdLogger writing text records to stderr. Debug and
// info records are only emitted when verbose is set.
func NewStd(verbose bool) *StdLogger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return New(os.Stderr, level)
}

// NewLeveled creates a StdLogger from a level name (debug, info, warn, error).
func NewLeveled(level string) *StdLogger {
	return New(os.Stderr, ParseLevel(level))
}

// New creates a StdLogger on an arbitrary writer.
func New(w io.Writer, level slog.Level) *StdLogger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &StdLogger{log: slog.New(handler)}
}

// ParseLevel maps a level name to a slog level; unknown names mean warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (l *StdLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, attrs(fields)...)
}

func (l *StdLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, attrs(fields)...)
}

func (l *StdLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, attrs(fields)...)
}

func (l *StdLogger) Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.log.Error(msg, args...)
}

// attrs converts a field map to slog attributes in key order so records
// are stable across runs.
func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
