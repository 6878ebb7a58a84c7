package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"splice/internal/logging"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Running", statusOK, "yes", false)
	if !strings.Contains(line, "Running:") {
		t.Fatalf("missing label in %q", line)
	}
	if !strings.Contains(line, "[OK] yes") {
		t.Fatalf("missing status text in %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("unexpected color codes in %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Running", statusError, "no", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapping in %q", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Daemon", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Daemon ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers should never colorize")
	}
}

func TestBuildMediaStatusRows(t *testing.T) {
	rows := buildMediaStatusRows(map[string]int{
		"ready":   3,
		"error":   1,
		"pending": 0,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "error" || rows[0][1] != "1" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if rows[1][0] != "ready" || rows[1][1] != "3" {
		t.Fatalf("unexpected second row %v", rows[1])
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("5a1f2c3d-9b8e-4f00-a1b2-c3d4e5f60789"); got != "5a1f2c3d" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestFormatLogEvent(t *testing.T) {
	evt := logging.LogEvent{
		Timestamp: time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC),
		Level:     "INFO",
		Message:   "media ready",
		Component: "session",
		MediaID:   "5a1f2c3d-9b8e-4f00-a1b2-c3d4e5f60789",
		Fields:    map[string]string{"status": "ready"},
	}
	line := formatLogEvent(evt)
	for _, want := range []string{"INFO", "[session]", "media ready", "media=5a1f2c3d", "status=ready"} {
		if !strings.Contains(line, want) {
			t.Fatalf("formatted line %q missing %q", line, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("a very long value indeed", 10); got != "a very ..." {
		t.Fatalf("truncate = %q", got)
	}
}
