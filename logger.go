// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/pacer/surface"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for pacer and the surface package.
// By default, pacer produces no log output. Pass nil to restore silence.
//
// Log levels used by pacer:
//   - [slog.LevelDebug]: per-frame diagnostics (dt, indices, render time)
//   - [slog.LevelInfo]: lifecycle events (start, swapchain recreation, shutdown)
//   - [slog.LevelWarn]: malformed script lines, suboptimal surfaces, skipped saves
//
// Example:
//
//	pacer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	surface.SetLogger(l)
}

// Logger returns the current logger used by pacer.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
