package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMissingRecord(t *testing.T) {
	db := openMemory(t)

	_, ok, err := db.Load(context.Background(), board.DefaultPreference())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, store.StorageKey, db.Key())

	info, err := db.Stat(context.Background())
	require.NoError(t, err)
	require.False(t, info.Exists)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openMemory(t)
	db.now = func() time.Time { return time.UnixMilli(42) }
	ctx := context.Background()

	pref := board.DefaultPreference()
	pref.Language = board.LanguageHebrew
	rec := store.Record{
		SchemaVersion: store.SchemaVersion,
		Categories:    []board.Category{{ID: "c", Name: "C", NameTranslations: board.Translations{"en": "C"}}},
		Tiles:         []board.Tile{{ID: "t", Label: "T", CategoryID: "c", Type: board.TileNoun, Translations: board.Translations{}}},
		Preferences:   pref,
	}
	require.NoError(t, db.Save(ctx, rec))

	rec.Preferences.GridCols = 2
	require.NoError(t, db.Save(ctx, rec))

	got, ok, err := db.Load(ctx, board.DefaultPreference())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, got)

	info, err := db.Stat(ctx)
	require.NoError(t, err)
	require.True(t, info.Exists)
	require.Equal(t, store.SchemaVersion, info.SchemaVersion)
	require.Equal(t, int64(42), info.UpdatedAt.UnixMilli())

	require.NoError(t, db.Delete(ctx))
	_, ok, err = db.Load(ctx, board.DefaultPreference())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadLegacyRecordFillsDefaults(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, 0)`,
		store.StorageKey,
		`{"categories":[{"id":"c","name":"C","order":0}],"tiles":[{"id":"t","label":"T","categoryId":"c","type":"noun","order":0}],"preferences":{"language":"ru"}}`,
	)
	require.NoError(t, err)

	got, ok, err := db.Load(ctx, board.DefaultPreference())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, got.SchemaVersion)
	require.Nil(t, got.Tiles[0].Translations)
	require.Equal(t, board.LanguageRussian, got.Preferences.Language)
	require.Equal(t, 3, got.Preferences.GridCols)
	require.True(t, got.Preferences.ShowText)
}

func TestLoadCorruptRecord(t *testing.T) {
	db := openMemory(t)
	_, err := db.conn.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, '{', 0)`, store.StorageKey)
	require.NoError(t, err)

	_, _, err = db.Load(context.Background(), board.DefaultPreference())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode board record")
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.db")
	db, err := Open(path, "custom-key")
	require.NoError(t, err)
	require.Equal(t, "custom-key", db.Key())
	require.NoError(t, db.Save(context.Background(), store.Record{Preferences: board.DefaultPreference()}))
	require.NoError(t, db.Close())

	reopened, err := Open(path, "custom-key")
	require.NoError(t, err)
	defer reopened.Close()
	_, ok, err := reopened.Load(context.Background(), board.DefaultPreference())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreWritesThroughDB(t *testing.T) {
	conn, err := sql.Open("sqlite3", MemoryPath)
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	db, err := New(conn, "")
	require.NoError(t, err)
	defer db.Close()

	s := store.New(store.Options{Persister: db})
	s.ResetToSeedData()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
	s.Close()

	rec, ok, err := db.Load(context.Background(), board.DefaultPreference())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, store.SchemaVersion, rec.SchemaVersion)
	require.Len(t, rec.Tiles, 61)
}
