// Package board defines the AAC board data model shared by the store, seed catalog, and transports.
package board

import (
	"fmt"
	"strings"
)

// Language is a UI/speech locale code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
	LanguageHebrew  Language = "he"
)

// PivotLanguage is the fallback language for UI strings missing a translation.
const PivotLanguage = LanguageEnglish

var supportedLanguages = []Language{LanguageEnglish, LanguageRussian, LanguageHebrew}

// SupportedLanguages returns the closed set of languages, in display order.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// Supported reports whether l is one of SupportedLanguages.
func (l Language) Supported() bool {
	for _, candidate := range supportedLanguages {
		if candidate == l {
			return true
		}
	}
	return false
}

// TileType is the grammatical/display grouping tag of a tile.
type TileType string

const (
	TileCore      TileType = "core"
	TileNoun      TileType = "noun"
	TileVerb      TileType = "verb"
	TileAdjective TileType = "adjective"
	TilePronoun   TileType = "pronoun"
	TilePhrase    TileType = "phrase"
)

var validTileTypes = map[TileType]struct{}{
	TileCore:      {},
	TileNoun:      {},
	TileVerb:      {},
	TileAdjective: {},
	TilePronoun:   {},
	TilePhrase:    {},
}

// ParseTileType validates a raw tile type tag.
func ParseTileType(raw string) (TileType, error) {
	t := TileType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validTileTypes[t]; !ok {
		return "", fmt.Errorf("unknown tile type %q", raw)
	}
	return t, nil
}

// Translations maps a language code to localized text.
//
// A nil map means the entity predates localization; an empty map means it has none.
type Translations map[Language]string

// Clone returns an independent copy, preserving nil.
func (t Translations) Clone() Translations {
	if t == nil {
		return nil
	}
	out := make(Translations, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Category is a named, ordered grouping of tiles.
type Category struct {
	ID               string       `json:"id" yaml:"id"`
	Name             string       `json:"name" yaml:"name"`
	Icon             string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color            string       `json:"color,omitempty" yaml:"color,omitempty"`
	Order            int          `json:"order" yaml:"order"`
	NameTranslations Translations `json:"nameTranslations" yaml:"nameTranslations"`
}

// Clone returns a deep copy of c.
func (c Category) Clone() Category {
	c.NameTranslations = c.NameTranslations.Clone()
	return c
}

// Tile is a single selectable word, phrase, or concept.
type Tile struct {
	ID                  string                `json:"id" yaml:"id"`
	Label               string                `json:"label" yaml:"label"`
	CategoryID          string                `json:"categoryId" yaml:"categoryId"`
	ImageURI            string                `json:"imageUri,omitempty" yaml:"imageUri,omitempty"`
	Type                TileType              `json:"type" yaml:"type"`
	Variants            []string              `json:"variants,omitempty" yaml:"variants,omitempty"`
	TTSOverride         string                `json:"ttsOverride,omitempty" yaml:"ttsOverride,omitempty"`
	Order               int                   `json:"order" yaml:"order"`
	IsFavorite          bool                  `json:"isFavorite,omitempty" yaml:"isFavorite,omitempty"`
	Translations        Translations          `json:"translations" yaml:"translations"`
	VariantTranslations map[Language][]string `json:"variantTranslations,omitempty" yaml:"variantTranslations,omitempty"`
}

// Clone returns a deep copy of t.
func (t Tile) Clone() Tile {
	if t.Variants != nil {
		t.Variants = append([]string(nil), t.Variants...)
	}
	t.Translations = t.Translations.Clone()
	if t.VariantTranslations != nil {
		vt := make(map[Language][]string, len(t.VariantTranslations))
		for lang, variants := range t.VariantTranslations {
			vt[lang] = append([]string(nil), variants...)
		}
		t.VariantTranslations = vt
	}
	return t
}

// Preference is the singleton user settings record.
type Preference struct {
	Language      Language `json:"language"`
	TTSVoice      string   `json:"ttsVoice,omitempty"`
	GridCols      int      `json:"gridCols"`
	HighContrast  bool     `json:"highContrast"`
	ShowText      bool     `json:"showText"`
	Vibration     bool     `json:"vibration"`
	PinHash       string   `json:"pinHash,omitempty"`
	CaregiverMode bool     `json:"caregiverMode"`
}

const (
	MinGridCols = 2
	MaxGridCols = 4
)

// DefaultPreference returns the first-run settings record.
func DefaultPreference() Preference {
	return Preference{
		Language:      LanguageEnglish,
		GridCols:      3,
		HighContrast:  false,
		ShowText:      true,
		Vibration:     true,
		CaregiverMode: false,
	}
}

// SentenceItem is a snapshot of a tile taken when it was added to the sentence.
type SentenceItem struct {
	TileID      string   `json:"tileId"`
	Label       string   `json:"label"`
	Type        TileType `json:"type"`
	ImageURI    string   `json:"imageUri,omitempty"`
	TTSOverride string   `json:"ttsOverride,omitempty"`
}

// Snapshot copies the sentence-relevant fields of t.
func Snapshot(t Tile) SentenceItem {
	return SentenceItem{
		TileID:      t.ID,
		Label:       t.Label,
		Type:        t.Type,
		ImageURI:    t.ImageURI,
		TTSOverride: t.TTSOverride,
	}
}

// ImageKind classifies a tile's imageUri.
type ImageKind int

const (
	ImageNone ImageKind = iota
	ImageGlyph
	ImageReference
)

func (k ImageKind) String() string {
	switch k {
	case ImageGlyph:
		return "glyph"
	case ImageReference:
		return "reference"
	default:
		return "none"
	}
}

// ClassifyImage reports whether uri is a literal glyph or a fetchable reference.
// Values starting with "http" or "/" are references; anything else non-empty is a glyph.
func ClassifyImage(uri string) ImageKind {
	switch {
	case uri == "":
		return ImageNone
	case strings.HasPrefix(uri, "http"), strings.HasPrefix(uri, "/"):
		return ImageReference
	default:
		return ImageGlyph
	}
}

// SearchFilters narrows a tile search.
type SearchFilters struct {
	Query         string   `json:"query,omitempty"`
	Type          TileType `json:"type,omitempty"`
	CategoryID    string   `json:"categoryId,omitempty"`
	FavoritesOnly bool     `json:"favoritesOnly,omitempty"`
}
