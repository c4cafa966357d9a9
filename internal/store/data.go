package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// ExportVersion is the transport format version written by ExportData.
const ExportVersion = "1.0.0"

// Export is the transport document produced by ExportData and accepted by ImportData.
type Export struct {
	Categories  []board.Category `json:"categories"`
	Tiles       []board.Tile     `json:"tiles"`
	Preferences board.Preference `json:"preferences"`
	Version     string           `json:"version"`
	Timestamp   int64            `json:"timestamp"`
}

// ExportData serializes the durable subset with a format version and epoch-millis timestamp.
func (s *Store) ExportData() (string, error) {
	rec := s.Record()
	doc := Export{
		Categories:  rec.Categories,
		Tiles:       rec.Tiles,
		Preferences: rec.Preferences,
		Version:     ExportVersion,
		Timestamp:   s.now().UnixMilli(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export board data: %w", err)
	}
	return string(data), nil
}

// ImportData replaces categories and tiles from payload, merges its preferences over the
// defaults, and clears the sentence. Entities exported before localization are filled
// from the seed the way RepairFromSeed does. A rejected payload sets the error field,
// leaves the board untouched, and returns an error wrapping ErrInvalidImport.
func (s *Store) ImportData(payload string) error {
	rec, err := s.parseImport(payload)
	if err != nil {
		s.SetError(err.Error())
		s.logger.Warn("board import rejected", "error", err.Error())
		return err
	}

	var report RepairReport
	s.apply("import", func(st *State) effect {
		st.Categories = rec.Categories
		st.Tiles = rec.Tiles
		st.Preferences = rec.Preferences
		st.Sentence = []board.SentenceItem{}
		st.Error = ""
		normalizeOrders(st)
		report = s.fillFromSeed(st)
		return durable
	})
	s.pushContrast(rec.Preferences.HighContrast)
	s.logger.Info("board import applied",
		"categories", len(rec.Categories),
		"tiles", len(rec.Tiles),
		"filled", report.Filled,
	)
	return nil
}

func (s *Store) parseImport(payload string) (Record, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &top); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for _, key := range []string{"categories", "tiles", "preferences"} {
		raw, ok := top[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return Record{}, fmt.Errorf("%w: missing %q", ErrInvalidImport, key)
		}
	}

	rec := Record{Preferences: s.defaults}
	if err := json.Unmarshal(top["categories"], &rec.Categories); err != nil {
		return Record{}, fmt.Errorf("%w: categories: %v", ErrInvalidImport, err)
	}
	if err := json.Unmarshal(top["tiles"], &rec.Tiles); err != nil {
		return Record{}, fmt.Errorf("%w: tiles: %v", ErrInvalidImport, err)
	}
	if err := json.Unmarshal(top["preferences"], &rec.Preferences); err != nil {
		return Record{}, fmt.Errorf("%w: preferences: %v", ErrInvalidImport, err)
	}
	if err := validateImport(rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return rec, nil
}

func validateImport(rec Record) error {
	categoryIDs := make(map[string]struct{}, len(rec.Categories))
	for i, c := range rec.Categories {
		if c.ID == "" {
			return fmt.Errorf("categories[%d]: empty id", i)
		}
		if _, dup := categoryIDs[c.ID]; dup {
			return fmt.Errorf("categories[%d]: duplicate id %q", i, c.ID)
		}
		categoryIDs[c.ID] = struct{}{}
	}

	tileIDs := make(map[string]struct{}, len(rec.Tiles))
	for i, t := range rec.Tiles {
		if t.ID == "" {
			return fmt.Errorf("tiles[%d]: empty id", i)
		}
		if _, dup := tileIDs[t.ID]; dup {
			return fmt.Errorf("tiles[%d]: duplicate id %q", i, t.ID)
		}
		if _, err := board.ParseTileType(string(t.Type)); err != nil {
			return fmt.Errorf("tiles[%d]: %w", i, err)
		}
		tileIDs[t.ID] = struct{}{}
	}

	if !rec.Preferences.Language.Supported() {
		return fmt.Errorf("preferences: unsupported language %q", rec.Preferences.Language)
	}
	if rec.Preferences.GridCols < board.MinGridCols || rec.Preferences.GridCols > board.MaxGridCols {
		return fmt.Errorf("preferences: gridCols %d out of range", rec.Preferences.GridCols)
	}
	return nil
}

// ResetToSeedData replaces categories and tiles with the seed catalog and clears the
// sentence. Preferences are kept as they are.
func (s *Store) ResetToSeedData() {
	catalog := s.catalog.Clone()
	s.apply("reset", func(st *State) effect {
		st.Categories = catalog.Categories
		st.Tiles = catalog.Tiles
		st.Sentence = []board.SentenceItem{}
		return durable
	})
	s.logger.Info("board reset to seed data",
		"seed_version", catalog.Version,
		"categories", len(catalog.Categories),
		"tiles", len(catalog.Tiles),
	)
}

// RepairReport summarizes a RepairFromSeed pass.
type RepairReport struct {
	// Filled counts entities whose missing translations were restored from the seed.
	Filled int `json:"filled"`
	// Kept counts user-added entities that had no seed counterpart and were left as-is.
	Kept int `json:"kept"`
}

// RepairFromSeed upgrades entities written before localization. Entities that share an id
// with the seed catalog receive its translations, and its image when they have none.
// Everything else gets an empty translation map. Nothing is added or removed.
func (s *Store) RepairFromSeed() RepairReport {
	var report RepairReport
	s.apply("repair", func(st *State) effect {
		report = s.fillFromSeed(st)
		return durable
	})
	s.logger.Info("board repaired from seed", "filled", report.Filled, "kept", report.Kept)
	return report
}

func (s *Store) fillFromSeed(st *State) RepairReport {
	var report RepairReport
	for i := range st.Categories {
		c := &st.Categories[i]
		if c.NameTranslations != nil {
			continue
		}
		if seeded, ok := s.catalog.Category(c.ID); ok {
			c.NameTranslations = seeded.NameTranslations
			if c.Icon == "" {
				c.Icon = seeded.Icon
			}
			if c.Color == "" {
				c.Color = seeded.Color
			}
			report.Filled++
			continue
		}
		c.NameTranslations = board.Translations{}
		report.Kept++
	}

	for i := range st.Tiles {
		t := &st.Tiles[i]
		if t.Translations != nil {
			continue
		}
		if seeded, ok := s.catalog.Tile(t.ID); ok {
			t.Translations = seeded.Translations
			if t.VariantTranslations == nil {
				t.VariantTranslations = seeded.VariantTranslations
			}
			if t.ImageURI == "" {
				t.ImageURI = seeded.ImageURI
			}
			report.Filled++
			continue
		}
		t.Translations = board.Translations{}
		report.Kept++
	}
	return report
}

// NeedsRepair reports whether any category or tile predates localization.
func (s *Store) NeedsRepair() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.state.Categories {
		if c.NameTranslations == nil {
			return true
		}
	}
	for _, t := range s.state.Tiles {
		if t.Translations == nil {
			return true
		}
	}
	return false
}

// Empty reports whether the store has neither categories nor tiles.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Categories) == 0 && len(s.state.Tiles) == 0
}
