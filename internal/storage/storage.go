// Package storage keeps the durable board record in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB stores one board record under a fixed key.
type DB struct {
	conn *sql.DB
	key  string
	now  func() time.Time
}

// Info describes the stored record without decoding it.
type Info struct {
	Key           string
	Exists        bool
	SchemaVersion int
	Bytes         int
	UpdatedAt     time.Time
}

// Open opens (creating as needed) the database at path and applies the schema.
func Open(path string, key string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path is empty")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	conn.SetMaxOpenConns(1)

	db, err := New(conn, key)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an existing connection and applies the schema.
func New(conn *sql.DB, key string) (*DB, error) {
	if strings.TrimSpace(key) == "" {
		key = store.StorageKey
	}
	if err := migrate(conn); err != nil {
		return nil, err
	}
	return &DB{conn: conn, key: key, now: time.Now}, nil
}

func migrate(conn *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply storage schema: %w", err)
		}
	}
	return nil
}

// Key returns the storage identifier this DB reads and writes.
func (d *DB) Key() string {
	return d.key
}

// Load returns the stored record, if any. Preference keys missing from the stored
// document are filled from defaults.
func (d *DB) Load(ctx context.Context, defaults board.Preference) (store.Record, bool, error) {
	var (
		value   string
		version int
	)
	err := d.conn.QueryRowContext(ctx,
		`SELECT value, schema_version FROM kv WHERE key = ?`, d.key,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("load %q: %w", d.key, err)
	}

	rec, err := store.DecodeRecord([]byte(value), defaults)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("load %q: %w", d.key, err)
	}
	rec.SchemaVersion = version
	return rec, true, nil
}

// Save upserts rec under the storage key.
func (d *DB) Save(ctx context.Context, rec store.Record) error {
	data, err := store.EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, schema_version, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			schema_version = excluded.schema_version,
			updated_at = excluded.updated_at`,
		d.key, string(data), rec.SchemaVersion, d.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", d.key, err)
	}
	return nil
}

// Delete removes the stored record. Deleting a missing record is not an error.
func (d *DB) Delete(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, d.key); err != nil {
		return fmt.Errorf("delete %q: %w", d.key, err)
	}
	return nil
}

// Stat reports metadata about the stored record.
func (d *DB) Stat(ctx context.Context) (Info, error) {
	info := Info{Key: d.key}
	var updated int64
	err := d.conn.QueryRowContext(ctx,
		`SELECT schema_version, length(value), updated_at FROM kv WHERE key = ?`, d.key,
	).Scan(&info.SchemaVersion, &info.Bytes, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("stat %q: %w", d.key, err)
	}
	info.Exists = true
	info.UpdatedAt = time.UnixMilli(updated)
	return info, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.conn.Close()
}
