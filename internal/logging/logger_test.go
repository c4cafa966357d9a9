package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := stateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "tilebuddy"), dir)
}

func TestStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := stateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "tilebuddy"), dir)
}

func TestNewWritesJSONLines(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New(slog.LevelInfo)
	require.NoError(t, err)
	require.Equal(t, "log.jsonl", filepath.Base(runtime.Path))

	runtime.Logger.Debug("filtered-out", "component", "logging")
	runtime.Logger.Info("tile selected", "tile", "tile-i")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"tile selected"`)
	require.Contains(t, string(contents), `"tile":"tile-i"`)
	require.Contains(t, string(contents), `"pid":`)
	require.Contains(t, string(contents), `"version":`)
	require.NotContains(t, string(contents), "filtered-out")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestOpenRotatesOversizedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	old := strings.Repeat("x", 64)
	require.NoError(t, os.WriteFile(path, []byte(old), 0o600))

	runtime, err := open(path, slog.LevelInfo, 32)
	require.NoError(t, err)
	runtime.Logger.Info("fresh")
	require.NoError(t, runtime.Close())

	previous, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	require.Equal(t, old, string(previous))

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(current), `"msg":"fresh"`)
	require.NotContains(t, string(current), old)
}

func TestOpenKeepsSmallLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	runtime, err := open(path, slog.LevelInfo, MaxBytes)
	require.NoError(t, err)
	require.NoError(t, runtime.Close())

	_, err = os.Stat(path + ".1")
	require.ErrorIs(t, err, os.ErrNotExist)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), "{}\n"))
}

func TestCloseWithoutFile(t *testing.T) {
	require.NoError(t, Runtime{}.Close())
}
