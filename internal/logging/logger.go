// Package logging configures JSONL logging under the XDG state directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelEnv overrides the log level (debug, info, warn, error).
const LevelEnv = "YATRA_LOG_LEVEL"

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New opens $XDG_STATE_HOME/yatra/log.jsonl for appending.
func New() (Runtime, error) {
	dir, err := StateDir()
	if err != nil {
		return Runtime{}, err
	}
	path := filepath.Join(dir, "log.jsonl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Runtime{}, fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, fmt.Errorf("open log %q: %w", path, err)
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: levelFromEnv()})
	return Runtime{Logger: slog.New(h), Path: path, closer: f}, nil
}

// StateDir is yatra's XDG state directory; logs and debug dumps live here.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "yatra"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", "yatra"), nil
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(os.Getenv(LevelEnv)))); err != nil {
		return slog.LevelInfo
	}
	return level
}
