// Package locale resolves localized display text for tiles, categories, and UI chrome.
package locale

import "github.com/daxxac/talk-tile-buddy/internal/board"

// Direction is the text direction of a language.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

var directions = map[board.Language]Direction{
	board.LanguageEnglish: LTR,
	board.LanguageRussian: LTR,
	board.LanguageHebrew:  RTL,
}

var displayNames = map[board.Language]string{
	board.LanguageEnglish: "English",
	board.LanguageRussian: "Русский",
	board.LanguageHebrew:  "עברית",
}

var flags = map[board.Language]string{
	board.LanguageEnglish: "🇺🇸",
	board.LanguageRussian: "🇷🇺",
	board.LanguageHebrew:  "🇮🇱",
}

// TileText returns the tile's translation for lang, falling back to its label.
func TileText(tile board.Tile, lang board.Language) string {
	if text := tile.Translations[lang]; text != "" {
		return text
	}
	return tile.Label
}

// CategoryName returns the category's translation for lang, falling back to its name.
func CategoryName(category board.Category, lang board.Language) string {
	if text := category.NameTranslations[lang]; text != "" {
		return text
	}
	return category.Name
}

// TextDirection reports the writing direction for lang; unknown languages are LTR.
func TextDirection(lang board.Language) Direction {
	if dir, ok := directions[lang]; ok {
		return dir
	}
	return LTR
}

// DisplayName returns the native name of lang, or the code itself when unknown.
func DisplayName(lang board.Language) string {
	if name, ok := displayNames[lang]; ok {
		return name
	}
	return string(lang)
}

// Flag returns the flag glyph shown next to lang in selectors.
func Flag(lang board.Language) string {
	return flags[lang]
}
