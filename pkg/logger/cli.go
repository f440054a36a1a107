package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewCLI builds the logger for a stacks command. Pretty records without
// timestamps go to w. When logFile is set, JSON records are also appended to
// it at the same level. The returned func closes the log file.
func NewCLI(w io.Writer, logFile string, debug bool) (*slog.Logger, func() error, error) {
	pretty := New(
		WithDebug(debug),
		WithPretty(true),
		WithTimestamp(false),
		WithWriter(w),
	)

	if logFile == "" {
		return pretty, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := New(
		WithDebug(debug),
		WithJSON(true),
		WithWriter(f),
	)

	return Multi(pretty, file), f.Close, nil
}
