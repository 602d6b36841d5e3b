package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "contacts"})

	log.Info("contact fixed", "contact_id", "abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "contacts" {
		t.Errorf("service = %v, want contacts", record[SERVICE])
	}
	if record["contact_id"] != "abc" {
		t.Errorf("contact_id = %v, want abc", record["contact_id"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn record should be written at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: TEXT}).With("worker", "reconciler")

	log.Info("started")
	if !bytes.Contains(buf.Bytes(), []byte("worker=reconciler")) {
		t.Errorf("expected child attribute in %q", buf.String())
	}
}
