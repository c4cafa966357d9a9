package store

import (
	"sort"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// Tiles returns the displayable tiles of categoryID in order. An empty categoryID returns
// the tiles of every existing category, ordered by category then tile order. Orphan tiles
// are never returned.
func (s *Store) Tiles(categoryID string) []board.Tile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return displayTiles(&s.state, func(t board.Tile) bool {
		return categoryID == "" || t.CategoryID == categoryID
	})
}

// Tile looks up a tile by id, orphaned or not.
func (s *Store) Tile(id string) (board.Tile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := tileIndex(&s.state, id); i >= 0 {
		return s.state.Tiles[i].Clone(), true
	}
	return board.Tile{}, false
}

// Orphans returns tiles whose category no longer exists.
func (s *Store) Orphans() []board.Tile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []board.Tile
	for _, t := range s.state.Tiles {
		if categoryIndex(&s.state, t.CategoryID) < 0 {
			out = append(out, t.Clone())
		}
	}
	return out
}

// AddTile appends a tile with a fresh id and the next order within its category.
func (s *Store) AddTile(data board.NewTile) board.Tile {
	var created board.Tile
	s.apply("tile.add", func(st *State) effect {
		created = board.Tile{
			ID:                  s.newID(),
			Label:               data.Label,
			CategoryID:          data.CategoryID,
			ImageURI:            data.ImageURI,
			Type:                data.Type,
			Variants:            data.Variants,
			TTSOverride:         data.TTSOverride,
			Order:               countTiles(st, data.CategoryID),
			IsFavorite:          data.IsFavorite,
			Translations:        data.Translations,
			VariantTranslations: data.VariantTranslations,
		}.Clone()
		if created.Type == "" {
			created.Type = board.TileNoun
		}
		if created.Translations == nil {
			created.Translations = board.Translations{}
		}
		st.Tiles = append(st.Tiles, created)
		return durable
	})
	return created.Clone()
}

// UpdateTile merges patch into the tile with id. Unknown ids are ignored.
// Moving a tile to another category places it last there and closes the gap it left.
func (s *Store) UpdateTile(id string, patch board.TilePatch) bool {
	return s.apply("tile.update", func(st *State) effect {
		i := tileIndex(st, id)
		if i < 0 {
			return unchanged
		}
		from := st.Tiles[i].CategoryID
		patch.Apply(&st.Tiles[i])
		if to := st.Tiles[i].CategoryID; to != from {
			st.Tiles[i].Order = countTiles(st, to) - 1
			compactTiles(st, from)
		}
		return durable
	}) != unchanged
}

// DeleteTile removes the tile and every sentence item it produced.
func (s *Store) DeleteTile(id string) bool {
	return s.apply("tile.delete", func(st *State) effect {
		i := tileIndex(st, id)
		if i < 0 {
			return unchanged
		}
		categoryID := st.Tiles[i].CategoryID
		st.Tiles = append(st.Tiles[:i], st.Tiles[i+1:]...)
		compactTiles(st, categoryID)
		dropSentenceItems(st, map[string]struct{}{id: {}})
		return durable
	}) != unchanged
}

// ReorderTiles assigns order within categoryID by position in ids, with the same
// retention rules as ReorderCategories. Ids of tiles in other categories are ignored.
func (s *Store) ReorderTiles(categoryID string, ids []string) bool {
	return s.apply("tile.reorder", func(st *State) effect {
		idx := make([]int, 0)
		for i, t := range st.Tiles {
			if t.CategoryID == categoryID {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			return unchanged
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return st.Tiles[idx[a]].Order < st.Tiles[idx[b]].Order
		})

		byID := make(map[string]int, len(idx))
		for _, i := range idx {
			byID[st.Tiles[i].ID] = i
		}
		ranked := make([]int, 0, len(idx))
		taken := make(map[int]struct{}, len(idx))
		for _, id := range ids {
			i, ok := byID[id]
			if !ok {
				continue
			}
			if _, dup := taken[i]; dup {
				continue
			}
			taken[i] = struct{}{}
			ranked = append(ranked, i)
		}
		for _, i := range idx {
			if _, ok := taken[i]; !ok {
				ranked = append(ranked, i)
			}
		}

		changed := false
		for rank, i := range ranked {
			if st.Tiles[i].Order != rank {
				changed = true
				st.Tiles[i].Order = rank
			}
		}
		if !changed {
			return unchanged
		}
		return durable
	}) != unchanged
}

// ToggleFavorite flips the favorite flag and reports the new value.
func (s *Store) ToggleFavorite(id string) (bool, bool) {
	var favorite bool
	found := s.apply("tile.favorite", func(st *State) effect {
		i := tileIndex(st, id)
		if i < 0 {
			return unchanged
		}
		st.Tiles[i].IsFavorite = !st.Tiles[i].IsFavorite
		favorite = st.Tiles[i].IsFavorite
		return durable
	}) != unchanged
	return favorite, found
}

func tileIndex(st *State, id string) int {
	for i, t := range st.Tiles {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// displayTiles returns clones of non-orphan tiles accepted by keep, ordered by category
// order then tile order.
func displayTiles(st *State, keep func(board.Tile) bool) []board.Tile {
	categoryRank := make(map[string]int, len(st.Categories))
	for _, c := range st.Categories {
		categoryRank[c.ID] = c.Order
	}
	out := make([]board.Tile, 0)
	for _, t := range st.Tiles {
		if _, ok := categoryRank[t.CategoryID]; !ok {
			continue
		}
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := categoryRank[out[i].CategoryID], categoryRank[out[j].CategoryID]
		if ci != cj {
			return ci < cj
		}
		return out[i].Order < out[j].Order
	})
	return out
}
