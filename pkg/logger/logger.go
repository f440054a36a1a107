// Package logger builds the slog loggers used across stacks: a pretty
// terminal handler for commands, JSON for log files and text otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level     slog.Level
	pretty    bool
	json      bool
	timestamp bool
	writer    io.Writer
}

// New creates a *slog.Logger. The default is a text handler at Info level
// writing to os.Stderr. WithJSON takes precedence over WithPretty.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:     slog.LevelInfo,
		timestamp: true,
		writer:    os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	handlerOpts := &slog.HandlerOptions{Level: c.level}

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(c.writer, handlerOpts))
	case c.pretty:
		return slog.New(charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: c.timestamp,
			TimeFormat:      time.Kitchen,
		}))
	default:
		return slog.New(slog.NewTextHandler(c.writer, handlerOpts))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
