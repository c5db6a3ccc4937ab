package logging

import (
	"log/slog"
	"strings"
	"sync"
)

// TB is the part of testing.TB the test handler needs.
type TB interface {
	Helper()
	Log(args ...any)
}

// NewTestHandler returns a handler that writes each record as one line
// through tb.Log, so output is attached to the test that produced it and
// shown only when it fails or runs verbosely.
func NewTestHandler(tb TB, level Level) slog.Handler {
	out := &testWriter{tb: tb}
	return slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
}

// NewTestLogger wraps NewTestHandler in a logger.
func NewTestLogger(tb TB, level Level) *slog.Logger {
	return slog.New(NewTestHandler(tb, level))
}

// testWriter forwards whole lines to tb.Log. slog handlers emit one
// complete line per Write call.
type testWriter struct {
	mu sync.Mutex
	tb TB
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tb.Helper()
	w.tb.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}
