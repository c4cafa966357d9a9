package store

import (
	"sort"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// Categories returns the categories in display order.
func (s *Store) Categories() []board.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]board.Category, len(s.state.Categories))
	for i, c := range s.state.Categories {
		out[i] = c.Clone()
	}
	sortCategories(out)
	return out
}

// Category looks up a category by id.
func (s *Store) Category(id string) (board.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := categoryIndex(&s.state, id); i >= 0 {
		return s.state.Categories[i].Clone(), true
	}
	return board.Category{}, false
}

// AddCategory appends a category with a fresh id and order equal to the current count.
func (s *Store) AddCategory(data board.NewCategory) board.Category {
	var created board.Category
	s.apply("category.add", func(st *State) effect {
		created = board.Category{
			ID:               s.newID(),
			Name:             data.Name,
			Icon:             data.Icon,
			Color:            data.Color,
			Order:            len(st.Categories),
			NameTranslations: data.NameTranslations.Clone(),
		}
		if created.NameTranslations == nil {
			created.NameTranslations = board.Translations{}
		}
		st.Categories = append(st.Categories, created)
		return durable
	})
	return created.Clone()
}

// UpdateCategory merges patch into the category with id. Unknown ids are ignored.
func (s *Store) UpdateCategory(id string, patch board.CategoryPatch) bool {
	return s.apply("category.update", func(st *State) effect {
		i := categoryIndex(st, id)
		if i < 0 {
			return unchanged
		}
		patch.Apply(&st.Categories[i])
		return durable
	}) != unchanged
}

// DeleteCategory removes the category, its tiles, and sentence items produced by those tiles.
func (s *Store) DeleteCategory(id string) bool {
	return s.apply("category.delete", func(st *State) effect {
		i := categoryIndex(st, id)
		if i < 0 {
			return unchanged
		}
		st.Categories = append(st.Categories[:i], st.Categories[i+1:]...)
		sortCategories(st.Categories)
		for rank := range st.Categories {
			st.Categories[rank].Order = rank
		}

		removed := make(map[string]struct{})
		kept := st.Tiles[:0]
		for _, t := range st.Tiles {
			if t.CategoryID == id {
				removed[t.ID] = struct{}{}
				continue
			}
			kept = append(kept, t)
		}
		st.Tiles = kept
		dropSentenceItems(st, removed)
		return durable
	}) != unchanged
}

// ReorderCategories assigns order by position in ids. Categories missing from ids keep
// their relative order after the listed ones; unknown and repeated ids are ignored.
func (s *Store) ReorderCategories(ids []string) bool {
	return s.apply("category.reorder", func(st *State) effect {
		sortCategories(st.Categories)
		pos := make(map[string]int, len(st.Categories))
		for i, c := range st.Categories {
			pos[c.ID] = i
		}

		next := make([]board.Category, 0, len(st.Categories))
		taken := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			i, ok := pos[id]
			if !ok {
				continue
			}
			if _, dup := taken[id]; dup {
				continue
			}
			taken[id] = struct{}{}
			next = append(next, st.Categories[i])
		}
		for _, c := range st.Categories {
			if _, ok := taken[c.ID]; !ok {
				next = append(next, c)
			}
		}

		changed := false
		for rank := range next {
			if next[rank].Order != rank || st.Categories[rank].ID != next[rank].ID {
				changed = true
			}
			next[rank].Order = rank
		}
		st.Categories = next
		if !changed {
			return unchanged
		}
		return durable
	}) != unchanged
}

func categoryIndex(st *State, id string) int {
	for i, c := range st.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func sortCategories(categories []board.Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Order < categories[j].Order
	})
}
