package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentGateway, Output: &buf})

	logger.Info("refreshing", FieldAttempt, 1)
	out := buf.String()
	if !strings.Contains(out, "component=gateway") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "attempt=1") {
		t.Errorf("missing attempt in %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentAuth).Warn("logout failed")
	out = buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=auth") {
		t.Errorf("expected a single auth component, got %q", out)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentHTTP).
		WithRequestID("").
		WithHTTPRequest("GET", "api.local", "/accounts/", "").
		WithHTTPResponse(200, 12, true)

	if _, ok := fields[FieldRequestID]; ok {
		t.Error("empty request id should not be recorded")
	}
	if _, ok := fields[FieldQuery]; ok {
		t.Error("empty query should not be recorded")
	}
	if got := len(fields.ToSlice()); got != len(fields)*2 {
		t.Errorf("ToSlice length = %d, want %d", got, len(fields)*2)
	}
}
