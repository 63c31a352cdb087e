package validator

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

var nopLogger = slog.New(nopHandler{})

// SetLogger sets the logger used for validator debug output. Passing nil
// restores the default, which discards everything.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func slogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
