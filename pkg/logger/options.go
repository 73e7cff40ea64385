package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Option configures a logger created with New.
type Option func(*config)

// Format selects the slog handler New builds.
type Format string

const (
	// FormatText is slog's key=value text handler.
	FormatText Format = "text"

	// FormatJSON is slog's JSON handler, for log files and collectors.
	FormatJSON Format = "json"

	// FormatPretty is the colorized charmbracelet/log handler for terminals.
	FormatPretty Format = "pretty"
)

// ParseFormat maps a config value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (expected text, json or pretty)", s)
	}
}

// ParseLevel maps debug, info, warn or error to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", s)
	}
}

// WithFormat selects the output handler.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDebug lowers the level to Debug when true. It never raises a level set
// by WithLevel, so --debug and log.level compose.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters sets multiple output writers.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes source file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
