package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("hidden")
	Debug("hidden too")
	Warn("shown", "key", "value")
	Error("failed", errors.New("boom"), "id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("lines below WARN should be dropped, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown key=value") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed err=boom id=7") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestKVQuoting(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("fetch", "title", "Poker Night", "dangling")

	out := buf.String()
	if !strings.Contains(out, `title="Poker Night"`) {
		t.Errorf("values with spaces should be quoted, got %q", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("odd trailing key should be ignored, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
