package board

import "fmt"

// NewCategory carries caller-supplied fields for a category; id and order are assigned by the store.
type NewCategory struct {
	Name             string       `json:"name"`
	Icon             string       `json:"icon,omitempty"`
	Color            string       `json:"color,omitempty"`
	NameTranslations Translations `json:"nameTranslations,omitempty"`
}

// NewTile carries caller-supplied fields for a tile; id and order are assigned by the store.
type NewTile struct {
	Label               string                `json:"label"`
	CategoryID          string                `json:"categoryId"`
	ImageURI            string                `json:"imageUri,omitempty"`
	Type                TileType              `json:"type"`
	Variants            []string              `json:"variants,omitempty"`
	TTSOverride         string                `json:"ttsOverride,omitempty"`
	IsFavorite          bool                  `json:"isFavorite,omitempty"`
	Translations        Translations          `json:"translations,omitempty"`
	VariantTranslations map[Language][]string `json:"variantTranslations,omitempty"`
}

// CategoryPatch lists the category fields to change; nil fields are retained.
type CategoryPatch struct {
	Name             *string      `json:"name,omitempty"`
	Icon             *string      `json:"icon,omitempty"`
	Color            *string      `json:"color,omitempty"`
	NameTranslations Translations `json:"nameTranslations,omitempty"`
}

// Apply merges p into c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.NameTranslations != nil {
		c.NameTranslations = p.NameTranslations.Clone()
	}
}

// TilePatch lists the tile fields to change; nil fields are retained.
type TilePatch struct {
	Label        *string      `json:"label,omitempty"`
	CategoryID   *string      `json:"categoryId,omitempty"`
	ImageURI     *string      `json:"imageUri,omitempty"`
	Type         *TileType    `json:"type,omitempty"`
	Variants     *[]string    `json:"variants,omitempty"`
	TTSOverride  *string      `json:"ttsOverride,omitempty"`
	IsFavorite   *bool        `json:"isFavorite,omitempty"`
	Translations Translations `json:"translations,omitempty"`
}

// Apply merges p into t. Category moves are handled by the store so order stays unique.
func (p TilePatch) Apply(t *Tile) {
	if p.Label != nil {
		t.Label = *p.Label
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.ImageURI != nil {
		t.ImageURI = *p.ImageURI
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Variants != nil {
		t.Variants = append([]string(nil), (*p.Variants)...)
	}
	if p.TTSOverride != nil {
		t.TTSOverride = *p.TTSOverride
	}
	if p.IsFavorite != nil {
		t.IsFavorite = *p.IsFavorite
	}
	if p.Translations != nil {
		t.Translations = p.Translations.Clone()
	}
}

// PreferencePatch lists the preference keys to change; nil keys are retained.
type PreferencePatch struct {
	Language      *Language `json:"language,omitempty"`
	TTSVoice      *string   `json:"ttsVoice,omitempty"`
	GridCols      *int      `json:"gridCols,omitempty"`
	HighContrast  *bool     `json:"highContrast,omitempty"`
	ShowText      *bool     `json:"showText,omitempty"`
	Vibration     *bool     `json:"vibration,omitempty"`
	PinHash       *string   `json:"pinHash,omitempty"`
	CaregiverMode *bool     `json:"caregiverMode,omitempty"`
}

// Apply shallow-merges p into pref.
func (p PreferencePatch) Apply(pref *Preference) {
	if p.Language != nil {
		pref.Language = *p.Language
	}
	if p.TTSVoice != nil {
		pref.TTSVoice = *p.TTSVoice
	}
	if p.GridCols != nil {
		pref.GridCols = *p.GridCols
	}
	if p.HighContrast != nil {
		pref.HighContrast = *p.HighContrast
	}
	if p.ShowText != nil {
		pref.ShowText = *p.ShowText
	}
	if p.Vibration != nil {
		pref.Vibration = *p.Vibration
	}
	if p.PinHash != nil {
		pref.PinHash = *p.PinHash
	}
	if p.CaregiverMode != nil {
		pref.CaregiverMode = *p.CaregiverMode
	}
}

// IsZero reports whether p changes nothing.
func (p PreferencePatch) IsZero() bool {
	return p == PreferencePatch{}
}

// Validate rejects values outside the closed language set or the grid column range.
func (p PreferencePatch) Validate() error {
	if p.Language != nil && !p.Language.Supported() {
		return fmt.Errorf("unsupported language %q", *p.Language)
	}
	if p.GridCols != nil && (*p.GridCols < MinGridCols || *p.GridCols > MaxGridCols) {
		return fmt.Errorf("gridCols must be between %d and %d, got %d", MinGridCols, MaxGridCols, *p.GridCols)
	}
	return nil
}
