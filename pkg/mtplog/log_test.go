package mtplog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	defer SetLevel(slog.LevelWarn)
	defer SetLogger(Default)

	var buf bytes.Buffer
	SetLogger(New(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	SetLevel(slog.LevelWarn)
	if got := Level(); got != slog.LevelWarn {
		t.Fatalf("Level() = %v, want %v", got, slog.LevelWarn)
	}

	Debug(ComponentMTP, "should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected debug record to be suppressed, got %q", buf.String())
	}

	Warn(ComponentMTP, "should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected warn record in output, got %q", buf.String())
	}
}

func TestLogAtTagsComponent(t *testing.T) {
	defer SetLogger(Default)

	var buf bytes.Buffer
	SetLogger(New(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Info(ComponentSession, "opened session", "id", 1)

	out := buf.String()
	if !strings.Contains(out, "component=session") {
		t.Errorf("expected component=session in %q", out)
	}
	if !strings.Contains(out, "opened session") {
		t.Errorf("expected message in %q", out)
	}
}

func TestSetFormatSwitchesHandler(t *testing.T) {
	defer SetFormat(FormatText)

	SetFormat(FormatJSON)
	if Default.Handler() == nil {
		t.Fatal("expected a handler after SetFormat")
	}
}
