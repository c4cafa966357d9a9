// Package logging writes tilebuddy's structured JSONL log.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/version"
)

const (
	appDir   = "tilebuddy"
	fileName = "log.jsonl"

	// MaxBytes is the size at which an existing log moves aside to log.jsonl.1 on open.
	MaxBytes int64 = 4 << 20
)

// Runtime is an open log: the logger, where it writes, and the file to close.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New opens the log under the XDG state dir at level. Every record carries the pid and
// build version, since the daemon and short CLI runs share one file.
func New(level slog.Level) (Runtime, error) {
	dir, err := stateDir()
	if err != nil {
		return Runtime{}, err
	}
	return open(filepath.Join(dir, fileName), level, MaxBytes)
}

func open(path string, level slog.Level, limit int64) (Runtime, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, fmt.Errorf("create log dir: %w", err)
	}
	if err := rotate(path, limit); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, fmt.Errorf("open log: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})).
		With("pid", os.Getpid(), "version", version.Version)
	return Runtime{Logger: logger, Path: path, closer: f}, nil
}

// rotate keeps a single previous generation.
func rotate(path string, limit int64) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < limit {
		return nil
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("rotate log: %w", err)
	}
	return nil
}

func stateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve log dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", appDir), nil
}
