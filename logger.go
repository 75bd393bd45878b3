package embedview

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger can race with logging from the engine goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the default logger for embedview and the blit
// pipeline. By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default. Programs created with [WithLogger] keep their own logger.
//
// Log levels used by embedview:
//   - [slog.LevelDebug]: pipeline construction, bind group rebuilds, dropped frames
//   - [slog.LevelInfo]: widget lifecycle (engine started, program closed)
//   - [slog.LevelWarn]: degraded states (engine construction failed, prepare failed)
//
// Example:
//
//	embedview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
// Engines built outside this module can use it to share configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
