package locale

import (
	"testing"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/stretchr/testify/require"
)

func TestTileTextFallsBackToLabel(t *testing.T) {
	tile := board.Tile{
		Label:        "want",
		Translations: board.Translations{board.LanguageEnglish: "want", board.LanguageRussian: "хочу", board.LanguageHebrew: ""},
	}

	require.Equal(t, "хочу", TileText(tile, board.LanguageRussian))
	require.Equal(t, "want", TileText(tile, board.LanguageHebrew), "empty translation falls back")
	require.Equal(t, "want", TileText(tile, board.Language("fr")))
	require.Equal(t, "legacy", TileText(board.Tile{Label: "legacy"}, board.LanguageRussian), "nil translations")
}

func TestCategoryNameFallsBackToName(t *testing.T) {
	category := board.Category{
		Name:             "Food & Drink",
		NameTranslations: board.Translations{board.LanguageRussian: "Еда и напитки"},
	}

	require.Equal(t, "Еда и напитки", CategoryName(category, board.LanguageRussian))
	require.Equal(t, "Food & Drink", CategoryName(category, board.LanguageHebrew))
}

func TestTextDirection(t *testing.T) {
	require.Equal(t, RTL, TextDirection(board.LanguageHebrew))
	require.Equal(t, LTR, TextDirection(board.LanguageRussian))
	require.Equal(t, LTR, TextDirection(board.LanguageEnglish))
	require.Equal(t, LTR, TextDirection(board.Language("xx")))
}

func TestUIStringFallsBackToPivotThenKey(t *testing.T) {
	require.Equal(t, "Моё предложение", UIString(KeySentenceTitle, board.LanguageRussian))
	require.Equal(t, "No tiles found", UIString(KeySearchEmpty, board.LanguageHebrew))
	require.Equal(t, "Board imported", UIString(KeyImportDone, board.LanguageRussian))
	require.Equal(t, "My Sentence", UIString(KeySentenceTitle, board.Language("de")))
	require.Equal(t, "no.such.key", UIString(Key("no.such.key"), board.LanguageEnglish))
}

func TestEveryKeyHasPivotText(t *testing.T) {
	for _, table := range uiStrings {
		for key := range table {
			require.NotEmpty(t, uiStrings[board.PivotLanguage][key], key)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw    string
		want   board.Language
		wantOK bool
	}{
		{raw: "ru", want: board.LanguageRussian, wantOK: true},
		{raw: "ru-RU", want: board.LanguageRussian, wantOK: true},
		{raw: "ru_RU.UTF-8", want: board.LanguageRussian, wantOK: true},
		{raw: "he-IL", want: board.LanguageHebrew, wantOK: true},
		{raw: "en-GB", want: board.LanguageEnglish, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "C", wantOK: false},
		{raw: "ja-JP", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := Normalize(tc.raw)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "he_IL.UTF-8")
	require.Equal(t, board.LanguageHebrew, FromEnv())

	t.Setenv("LANG", "C")
	require.Equal(t, board.LanguageEnglish, FromEnv())
}

func TestDisplayNameAndFlag(t *testing.T) {
	require.Equal(t, "Русский", DisplayName(board.LanguageRussian))
	require.Equal(t, "xx", DisplayName(board.Language("xx")))
	require.NotEmpty(t, Flag(board.LanguageHebrew))
}
