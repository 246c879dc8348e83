// Package logging configures the process logger: a slog text handler on
// stderr, mirrored to a daily log file when a log directory is given.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilePrefix and FileLayout name the daily log file:
// ezdbgen_log_2024-01-31.txt.
const (
	FilePrefix = "ezdbgen_log_"
	FileLayout = "2006-01-02"
)

// Options configures Setup.
type Options struct {
	Verbose bool
	// Stderr receives the console log; nil means os.Stderr.
	Stderr io.Writer
	// Dir enables the daily log file when set.
	Dir string
	// Now stamps the log file name; nil means time.Now.
	Now func() time.Time
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return FilePrefix + t.Format(FileLayout) + ".txt"
}

// New builds the logger described by opts. The returned close function
// releases the log file and is never nil.
func New(opts Options) (*slog.Logger, func() error, error) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if opts.Stderr != nil {
		out = opts.Stderr
	}
	closeFn := func() error { return nil }

	if opts.Dir != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, closeFn, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(opts.Dir, FileName(now()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closeFn = f.Close
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler), closeFn, nil
}

// Setup builds the logger and installs it as the slog default.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	logger, closeFn, err := New(opts)
	if err != nil {
		return nil, closeFn, err
	}
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
