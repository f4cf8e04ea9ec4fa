package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("debug", &buf).WithComponent("test")
	l.Infow("dataset.written", map[string]any{"dataset": "email_spam", "rows": 2})

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if rec["level"] != "info" {
		t.Fatalf("unexpected level: %#v", rec["level"])
	}
	if rec["msg"] != "dataset.written" {
		t.Fatalf("unexpected msg: %#v", rec["msg"])
	}
	if rec["component"] != "test" {
		t.Fatalf("unexpected component: %#v", rec["component"])
	}
	if rec["dataset"] != "email_spam" {
		t.Fatalf("unexpected field dataset: %#v", rec["dataset"])
	}
	if rec["rows"] != float64(2) {
		t.Fatalf("unexpected field rows: %#v", rec["rows"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("error", &buf)
	l.Info("should_not_log")
	l.Error("should_log %d", 1)
	out := strings.TrimSpace(buf.String())
	lines := strings.Split(out, "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if rec["level"] != "error" {
		t.Fatalf("unexpected level: %#v", rec["level"])
	}
	if rec["msg"] != "should_log 1" {
		t.Fatalf("unexpected msg: %#v", rec["msg"])
	}
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	New("info", "console", &buf).Info("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Fatalf("expected message in console output: %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatalf("console output should not be JSON: %q", out)
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Errorw("ignored", map[string]any{"a": 1})
}
