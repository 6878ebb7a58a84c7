package logging_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"splice/internal/logging"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	level   slog.Level
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestTeeHandlerDuplicates(t *testing.T) {
	first := &recordingHandler{}
	second := &recordingHandler{}
	logger := slog.New(logging.TeeHandler(first, second))

	logger.Info("hello")

	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("expected both handlers to receive the record, got %d and %d", first.count(), second.count())
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	quiet := &recordingHandler{level: slog.LevelError}
	loud := &recordingHandler{level: slog.LevelDebug}
	logger := slog.New(logging.TeeHandler(quiet, loud))

	logger.Info("info line")

	if quiet.count() != 0 {
		t.Fatalf("error-level handler should not receive info records, got %d", quiet.count())
	}
	if loud.count() != 1 {
		t.Fatalf("debug-level handler should receive the record, got %d", loud.count())
	}
}

func TestTeeLoggerWrapsBase(t *testing.T) {
	base := &recordingHandler{}
	extra := &recordingHandler{}
	logger := logging.TeeLogger(slog.New(base), extra)

	logger.Warn("split")

	if base.count() != 1 || extra.count() != 1 {
		t.Fatalf("expected duplication, got %d and %d", base.count(), extra.count())
	}
}
