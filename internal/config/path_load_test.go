package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "tilebuddy", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "tilebuddy", "config.jsonc"), resolved)
}

func TestResolveStoragePathPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	resolved, err := ResolveStoragePath(" /srv/board.db ")
	require.NoError(t, err)
	require.Equal(t, "/srv/board.db", resolved)

	resolved, err = ResolveStoragePath("~/boards/main.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "boards", "main.db"), resolved)

	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	resolved, err = ResolveStoragePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(data, "tilebuddy", "board.db"), resolved)

	t.Setenv("XDG_DATA_HOME", "")
	resolved, err = ResolveStoragePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "tilebuddy", "board.db"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
	require.Equal(t, "board.db", filepath.Base(loaded.StoragePath))
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	contents := `
{
  // board defaults for a Russian-speaking user
  "board": {
    "language": "RU",
    "grid_cols": 4,
  },
  "storage": {"path": "` + filepath.Join(dir, "board.db") + `"},
  "grpc": {"enable": false},
  /* voice through speech-dispatcher */
  "speech_cmd": "spd-say -l {lang} -e",
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, board.LanguageRussian, loaded.Config.Board.Language)
	require.Equal(t, 4, loaded.Config.Board.GridCols)
	require.False(t, loaded.Config.GRPC.Enable)
	require.Equal(t, []string{"spd-say", "-l", "{lang}", "-e"}, loaded.Config.Speech.Argv)
	require.Equal(t, filepath.Join(dir, "board.db"), loaded.StoragePath)
	require.Empty(t, loaded.Warnings)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "parse config")
	require.ErrorContains(t, err, path)
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("board.language = ru", Default())
	require.ErrorContains(t, err, "JSONC object")

	cfg, _, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
