// Package logging builds the slog logger used by the client from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/objectfs/b2/pkg/config"
	"github.com/objectfs/b2/pkg/errors"
)

// ParseLogLevel parses a case-insensitive level name. WARNING is accepted as WARN.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.NewError(errors.ErrCodeInvalidConfig, fmt.Sprintf("invalid log level: %s", level)).
			WithComponent("logging")
	}
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, fmt.Sprintf("invalid log format: %s", format)).
			WithComponent("logging")
	}
}

// NewLogger builds a logger from cfg. Output goes to stdout unless a file is set,
// in which case the file is opened for append and returned so the caller can close it.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		output io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, errors.NewError(errors.ErrCodeInvalidConfig, "failed to open log file").
				WithComponent("logging").
				WithContext("file", cfg.File).
				WithCause(err)
		}
		output = file
		closer = file
	}

	handler, err := NewHandler(output, cfg.Format, level)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
