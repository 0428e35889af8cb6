// Package logger provides the process-wide structured logger: slog to
// stderr, optionally duplicated to a dated log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	slogger *slog.Logger
	logFile *os.File
)

// Init initializes the global logger. logDir may be empty for
// console-only output; jsonOutput selects JSON framing for production.
func Init(logDir string, jsonOutput bool) error {
	var writer io.Writer = os.Stderr

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		name := "feather-" + time.Now().Format("2006-01-02") + ".log"
		f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		writer = io.MultiWriter(os.Stderr, f)
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	slogger = slog.New(handler)
	slog.SetDefault(slogger)
	return nil
}

// Close closes the log file, if one is open.
func Close() error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// Slog returns the logger instance for callers that want to attach fields.
func Slog() *slog.Logger {
	if slogger == nil {
		return slog.Default()
	}
	return slogger
}

// Info logs at info level with alternating key/value args.
func Info(msg string, args ...any) { Slog().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Slog().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Slog().Error(msg, args...) }

// Debug logs at debug level.
func Debug(msg string, args ...any) { Slog().Debug(msg, args...) }

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	Slog().Error(msg, args...)
	os.Exit(1)
}
