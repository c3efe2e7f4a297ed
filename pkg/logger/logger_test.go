package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Format: JSON, Output: &buf, Service: "bookings"})

	log.Debug("hidden")
	log.With("worker", "sweeper").Info("pass finished", "expired", 2)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "bookings" {
		t.Errorf("expected service attribute, got %v", record[SERVICE])
	}
	if record["worker"] != "sweeper" {
		t.Errorf("expected worker attribute, got %v", record["worker"])
	}
	if record["expired"] != float64(2) {
		t.Errorf("expected expired=2, got %v", record["expired"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
