package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// SchemaVersion tags durable records written by this build.
//
// Version 1 records predate localization (tiles without translations); version 2 adds
// translations, nameTranslations, and variantTranslations.
const SchemaVersion = 2

// StorageKey is the fixed identifier the durable record is stored under.
const StorageKey = "pecs-aac-storage"

// Record is the durable subset of AppState.
type Record struct {
	// SchemaVersion is carried by the storage layer, not the JSON document.
	// Zero means the record was written without a tag.
	SchemaVersion int `json:"-"`

	Categories  []board.Category `json:"categories"`
	Tiles       []board.Tile     `json:"tiles"`
	Preferences board.Preference `json:"preferences"`
}

// Empty reports whether the record holds no board content.
func (r Record) Empty() bool {
	return len(r.Categories) == 0 && len(r.Tiles) == 0
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := Record{
		SchemaVersion: r.SchemaVersion,
		Categories:    make([]board.Category, len(r.Categories)),
		Tiles:         make([]board.Tile, len(r.Tiles)),
		Preferences:   r.Preferences,
	}
	for i, c := range r.Categories {
		out.Categories[i] = c.Clone()
	}
	for i, t := range r.Tiles {
		out.Tiles[i] = t.Clone()
	}
	return out
}

// DecodeRecord parses a durable JSON document, filling preference keys it lacks from defaults.
func DecodeRecord(data []byte, defaults board.Preference) (Record, error) {
	rec := Record{Preferences: defaults}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode board record: %w", err)
	}
	return rec, nil
}

// EncodeRecord renders the JSON document for r.
func EncodeRecord(r Record) ([]byte, error) {
	if r.Categories == nil {
		r.Categories = []board.Category{}
	}
	if r.Tiles == nil {
		r.Tiles = []board.Tile{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode board record: %w", err)
	}
	return data, nil
}

// Persister writes the durable record somewhere that survives the process.
type Persister interface {
	Save(ctx context.Context, rec Record) error
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(context.Context, Record) error

// Save calls f.
func (f PersistFunc) Save(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
