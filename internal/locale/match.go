package locale

import (
	"os"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"golang.org/x/text/language"
)

var (
	matchOrder = board.SupportedLanguages()
	matcher    = language.NewMatcher(supportedTags(matchOrder))
)

func supportedTags(langs []board.Language) []language.Tag {
	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, language.MustParse(string(lang)))
	}
	return tags
}

// Normalize maps a BCP-47 tag or POSIX locale ("ru_RU.UTF-8") onto a supported language.
func Normalize(raw string) (board.Language, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ".@"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "_", "-")
	if raw == "" {
		return "", false
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}

	_, index, confidence := matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(matchOrder) {
		return "", false
	}
	return matchOrder[index], true
}

// FromEnv detects the user's language from the POSIX locale variables.
func FromEnv() board.Language {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang, ok := Normalize(os.Getenv(name)); ok {
			return lang
		}
	}
	return board.PivotLanguage
}
