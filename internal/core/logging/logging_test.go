package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("info", "json", &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("started", "port", 50051)

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
		}
		if line["msg"] != "started" {
			t.Errorf("msg = %v, want started", line["msg"])
		}
		if line["service"] != "waypoint" {
			t.Errorf("service = %v, want waypoint", line["service"])
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("info", "text", &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("started")
		if !strings.Contains(buf.String(), "msg=started") {
			t.Errorf("text output = %q, want msg=started", buf.String())
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("warn", "json", &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("info logged at warn level: %q", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := New("info", "xml", &bytes.Buffer{}); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
