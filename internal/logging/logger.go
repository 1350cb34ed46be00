package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var global atomic.Pointer[slog.Logger]

// Global returns the structured logger used by library code. Until Init is
// called it writes warnings and above to stderr.
func Global() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, newTextLogger(os.Stderr, slog.LevelWarn))
	return global.Load()
}

// SetGlobal replaces the structured logger. A nil logger discards output.
func SetGlobal(logger *slog.Logger) {
	if logger == nil {
		logger = newTextLogger(io.Discard, slog.LevelError)
	}
	global.Store(logger)
}

// Init points the structured logger at w, usually a run log's Writer.
func Init(level slog.Level, w io.Writer) {
	SetGlobal(newTextLogger(w, level))
}

// Component returns the structured logger tagged with a component name.
func Component(name string) *slog.Logger {
	return Global().With("component", name)
}

func newTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) { Global().Debug(msg, args...) }
func Info(msg string, args ...any)  { Global().Info(msg, args...) }
func Warn(msg string, args ...any)  { Global().Warn(msg, args...) }
func Error(msg string, args ...any) { Global().Error(msg, args...) }
