package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		level       string
		wantDebug   bool
		wantWarning bool
	}{
		{"debug", true, true},
		{"INFO", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"nonsense", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		logger := Setup(tt.level, "")
		if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("Setup(%q): debug enabled = %v, want %v", tt.level, got, tt.wantDebug)
		}
		if got := logger.Enabled(context.Background(), slog.LevelWarn); got != tt.wantWarning {
			t.Errorf("Setup(%q): warn enabled = %v, want %v", tt.level, got, tt.wantWarning)
		}
	}
}

func TestSetupJSONFormat(t *testing.T) {
	logger := Setup("info", "json")
	if _, ok := logger.Handler().(*slog.JSONHandler); !ok {
		t.Errorf("handler = %T, want *slog.JSONHandler", logger.Handler())
	}

	logger = Setup("info", "")
	if _, ok := logger.Handler().(*slog.TextHandler); !ok {
		t.Errorf("handler = %T, want *slog.TextHandler", logger.Handler())
	}
}
