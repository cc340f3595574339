package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/skylink-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"trace", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNew_FileOutputWritesDefaultFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "skylink.log")

	logger := New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   path,
	}, "1.2.3")
	logger.With("component", "monitor").Info("monitor armed", "mode", "putting")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("parsing log entry %q: %v", data, err)
	}

	want := map[string]string{
		"msg":       "monitor armed",
		"service":   ServiceName,
		"version":   "1.2.3",
		"component": "monitor",
		"mode":      "putting",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, entry[k], v)
		}
	}
}

func TestNew_FileOutputWithoutPathFallsBack(t *testing.T) {
	logger := New(config.LoggingConfig{Output: "file"}, "test")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestOpenOutput_EmptyFileIsError(t *testing.T) {
	w, err := openOutput(config.LoggingConfig{Output: "file"})
	if err == nil || !strings.Contains(err.Error(), "logging.file") {
		t.Errorf("openOutput() error = %v, want logging.file error", err)
	}
	if w != os.Stderr {
		t.Error("expected stderr fallback")
	}
}

func TestLogger_With(t *testing.T) {
	logger := Default()
	child := logger.With("component", "relay")

	if child == nil || child == logger {
		t.Error("expected a distinct child logger")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped", "key", "value")
}
