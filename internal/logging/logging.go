// Package logging provides the per-run log file for the scv CLI and the
// structured logger used by library code.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	runLogPrefix    = "scv_tune_run_"
	timestampLayout = "20060102_150405"
	lineTimeLayout  = "2006-01-02 15:04:05"
)

// Logger writes leveled printf-style lines to one log file per tuning run.
// A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	verbose bool
	file    *os.File
	path    string
}

// Setup creates scv_tune_run_<timestamp>.log in logDir. It returns a nil
// logger when noLog is set.
func Setup(logDir string, verbose, noLog bool) (*Logger, error) {
	if noLog {
		return nil, nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	path := filepath.Join(logDir, runLogPrefix+time.Now().Format(timestampLayout)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	l := &Logger{verbose: verbose, file: file, path: path}
	l.Info("SCV tuner starting")
	l.Debug("Debug level logging enabled")
	l.Info("Log file: %s", path)
	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// FilePath returns the path to the log file.
func (l *Logger) FilePath() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Logger) Info(format string, args ...any)  { l.write("INFO", format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.write("WARN", format, args) }
func (l *Logger) Error(format string, args ...any) { l.write("ERROR", format, args) }

// Debug is written only for verbose runs.
func (l *Logger) Debug(format string, args ...any) {
	if l != nil && l.verbose {
		l.write("DEBUG", format, args)
	}
}

// Section writes a banner separating the stages of a run.
func (l *Logger) Section(title string) {
	l.write("INFO", "%s %s %s", []any{strings.Repeat("=", 8), title, strings.Repeat("=", 8)})
}

func (l *Logger) write(level, format string, args []any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format(lineTimeLayout), level, fmt.Sprintf(format, args...))
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.file, line)
}

// SlogLevel returns the structured logging level matching this logger.
func (l *Logger) SlogLevel() slog.Level {
	if l != nil && l.verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Writer returns the log file so the global structured logger shares it.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
