// Package testutil provides test utilities for structured logging.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// CapturedRecord is a single log record observed by a CaptureHandler.
type CapturedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler is a slog.Handler that records every log record so tests
// can assert on emitted diagnostics.
type CaptureHandler struct {
	mu      sync.Mutex
	records []CapturedRecord
}

// NewCaptureLogger returns a logger backed by a CaptureHandler along with
// the handler for inspection.
func NewCaptureLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{}
	return slog.New(h), h
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, CapturedRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (h *CaptureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *CaptureHandler) WithGroup(string) slog.Handler      { return h }

// Records returns a copy of all captured records.
func (h *CaptureHandler) Records() []CapturedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CapturedRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Messages returns the messages of all captured records.
func (h *CaptureHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := make([]string, len(h.records))
	for i, r := range h.records {
		msgs[i] = r.Message
	}
	return msgs
}
