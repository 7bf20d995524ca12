package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerWritesFieldsInKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug)

	log.Info("cache hit", map[string]interface{}{"stage": "L_graphs", "context": "demo"})

	out := buf.String()
	if !strings.Contains(out, "msg=\"cache hit\"") {
		t.Fatalf("missing message in %q", out)
	}
	if strings.Index(out, "context=demo") > strings.Index(out, "stage=L_graphs") {
		t.Fatalf("fields not sorted: %q", out)
	}
}

func TestLoggerLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Debug("hidden", nil)
	log.Error("build failed", errors.New("boom"), nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Fatalf("error attribute missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"error":   slog.LevelError,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
