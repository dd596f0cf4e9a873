// Package logging configures the widget's JSONL runtime log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Runtime owns the logger and the file behind it.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close closes the log file.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New opens (or appends to) state/parley/log.jsonl. verbose lowers the level to debug.
func New(verbose bool) (Runtime, error) {
	stateDir, err := StateDir()
	if err != nil {
		return Runtime{}, err
	}
	path := filepath.Join(stateDir, "parley", "log.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return Runtime{Logger: logger, Path: path, closer: f}, nil
}

// Discard is a Runtime for commands that never log.
func Discard() Runtime {
	return Runtime{Logger: slog.New(slog.DiscardHandler)}
}

// StateDir is XDG_STATE_HOME, falling back to ~/.local/state.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
