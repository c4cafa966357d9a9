package store

import (
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// Search returns displayable tiles matching filters, in grid order. The query matches
// case-insensitively against the label, variants, and text in the current language.
func (s *Store) Search(filters board.SearchFilters) []board.Tile {
	query := strings.ToLower(strings.TrimSpace(filters.Query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	lang := s.state.Preferences.Language

	return displayTiles(&s.state, func(t board.Tile) bool {
		if filters.CategoryID != "" && t.CategoryID != filters.CategoryID {
			return false
		}
		if filters.Type != "" && t.Type != filters.Type {
			return false
		}
		if filters.FavoritesOnly && !t.IsFavorite {
			return false
		}
		return query == "" || matchesQuery(t, lang, query)
	})
}

func matchesQuery(t board.Tile, lang board.Language, query string) bool {
	candidates := make([]string, 0, 2+len(t.Variants)+len(t.VariantTranslations[lang]))
	candidates = append(candidates, t.Label, t.Translations[lang])
	candidates = append(candidates, t.Variants...)
	candidates = append(candidates, t.VariantTranslations[lang]...)
	for _, text := range candidates {
		if text != "" && strings.Contains(strings.ToLower(text), query) {
			return true
		}
	}
	return false
}
