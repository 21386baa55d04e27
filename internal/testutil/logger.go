// Package testutil holds helpers shared by skillgraph package tests.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a debug-level slog.Logger routed through
// t.Log, so pipeline components under test (the scanner, the samplers)
// keep their log output attached to the test that produced it. The
// output only surfaces on failure or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	// slog terminates every record; t.Log adds its own newline.
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
