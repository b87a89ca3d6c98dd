package env

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelSQL sits between debug and info; store query tracing logs here.
const LevelSQL = slog.Level(-2)

// LogFileName is the log file written inside the state directory.
const LogFileName = "zap.log"

// ParseLevel maps a ZAP_LOGLEVEL value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace", "debug":
		return slog.LevelDebug, nil
	case "sql":
		return LevelSQL, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error", "fatal":
		return slog.LevelError, nil
	case "silent":
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected debug, sql, info, warn, or error)", level)
	}
}

// NewLogger builds a text logger writing to w at the given level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("name", "zap"), nil
}

// OpenLogFile opens (appending) the log file inside stateDir.
// The caller closes the returned file.
func OpenLogFile(stateDir string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(stateDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
