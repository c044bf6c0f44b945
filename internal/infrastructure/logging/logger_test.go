package logging

import (
	"log/slog"
	"testing"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		logger := New(config.LoggingConfig{
			Level:  "debug",
			Format: format,
			Output: "stderr",
		}, "test")
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New() with format %q returned nil logger", format)
		}
	}
}

func TestWith_ReturnsIndependentLogger(t *testing.T) {
	base := Default()
	child := base.With("component", "drain")
	if child == base {
		t.Error("With() returned the receiver, want a new logger")
	}
	if child.Logger == nil {
		t.Error("With() returned logger with nil slog.Logger")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() = nil")
	}
}
