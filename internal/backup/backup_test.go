package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "categories": [],
  "tiles": [],
  "preferences": {"language": "he", "gridCols": 3},
  "exportDate": "2026-10-18T00:00:00Z",
  "version": "1.0.0"
}`

func TestWriteAndReadPlainDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")

	require.NoError(t, Write(path, []byte(sampleDocument)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, sampleDocument, string(raw))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, sampleDocument, string(got))
}

func TestWriteCompressesXZSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.json.xz")

	require.NoError(t, Write(path, []byte(sampleDocument)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, IsCompressed(raw))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, sampleDocument, string(got))
}

func TestReadDetectsCompressionByContent(t *testing.T) {
	compressed, err := Compress([]byte(sampleDocument))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "renamed.json")
	require.NoError(t, os.WriteFile(path, compressed, 0o600))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, sampleDocument, string(got))
}

func TestWriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0o644))

	require.NoError(t, Write(path, []byte("{}")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{}", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDecodeRejectsCorruptStream(t *testing.T) {
	corrupt := append(append([]byte(nil), xzMagic...), bytes.Repeat([]byte{0x42}, 32)...)
	_, err := Decode(corrupt)
	require.Error(t, err)
}

func TestDecodePassesPlainDocument(t *testing.T) {
	got, err := Decode([]byte("{}"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(got))
	require.False(t, IsCompressed(got))
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "open backup")
}

func TestReadLimitedRejectsOversizedInput(t *testing.T) {
	_, err := readLimited(bytes.NewReader(make([]byte, MaxDocumentBytes+1)))
	require.ErrorIs(t, err, ErrTooLarge)
}
