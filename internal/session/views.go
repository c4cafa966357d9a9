package session

import (
	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/bootstrap"
	"github.com/daxxac/talk-tile-buddy/internal/fsm"
	"github.com/daxxac/talk-tile-buddy/internal/locale"
	"github.com/daxxac/talk-tile-buddy/internal/transcript"
)

// Status summarizes the session for `status` and health checks.
type Status struct {
	State         fsm.State          `json:"state"`
	Decision      bootstrap.Decision `json:"decision,omitempty"`
	Categories    int                `json:"categories"`
	Tiles         int                `json:"tiles"`
	Orphans       int                `json:"orphans"`
	Sentence      int                `json:"sentence"`
	Language      board.Language     `json:"language"`
	Direction     locale.Direction   `json:"direction"`
	CaregiverMode bool               `json:"caregiverMode"`
	HighContrast  bool               `json:"highContrast"`
	IsLoading     bool               `json:"isLoading"`
	Error         string             `json:"error,omitempty"`
}

// CategoryView is a category with its text resolved for the current language.
type CategoryView struct {
	board.Category
	DisplayName string `json:"displayName"`
	TileCount   int    `json:"tileCount"`
}

// TileView is a tile with its text resolved for the current language.
type TileView struct {
	board.Tile
	Text      string `json:"text"`
	ImageKind string `json:"imageKind"`
}

// SentenceView is the in-progress utterance as shown above the grid.
type SentenceView struct {
	Items       []board.SentenceItem `json:"items"`
	Words       []transcript.Word    `json:"words"`
	Transcript  string               `json:"transcript"`
	Direction   locale.Direction     `json:"direction"`
	Placeholder string               `json:"placeholder,omitempty"`
}

// PreferenceView is the settings record with the PIN hash withheld.
type PreferenceView struct {
	board.Preference
	PinSet       bool             `json:"pinSet"`
	LanguageName string           `json:"languageName"`
	Direction    locale.Direction `json:"direction"`
}

// SpeakResult reports what was handed to the speaker.
type SpeakResult struct {
	Text     string         `json:"text"`
	Language board.Language `json:"language"`
	Words    int            `json:"words"`
}

// PINPayload carries caregiver PIN input.
type PINPayload struct {
	PIN     string `json:"pin,omitempty"`
	Current string `json:"current,omitempty"`
}

// Document carries an export/import transport document.
type Document struct {
	Body string `json:"document"`
}

func tileView(t board.Tile, lang board.Language) TileView {
	return TileView{
		Tile:      t,
		Text:      locale.TileText(t, lang),
		ImageKind: board.ClassifyImage(t.ImageURI).String(),
	}
}

func preferenceView(p board.Preference) PreferenceView {
	view := PreferenceView{
		Preference:   p,
		PinSet:       p.PinHash != "",
		LanguageName: locale.DisplayName(p.Language),
		Direction:    locale.TextDirection(p.Language),
	}
	view.PinHash = ""
	return view
}
