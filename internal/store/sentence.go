package store

import "github.com/daxxac/talk-tile-buddy/internal/board"

// Sentence returns the in-progress utterance.
func (s *Store) Sentence() []board.SentenceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]board.SentenceItem{}, s.state.Sentence...)
}

// AddToSentence appends a snapshot of tile.
func (s *Store) AddToSentence(tile board.Tile) board.SentenceItem {
	item := board.Snapshot(tile)
	s.apply("sentence.add", func(st *State) effect {
		st.Sentence = append(st.Sentence, item)
		return transient
	})
	return item
}

// AddTileToSentence snapshots the live tile with id into the sentence.
func (s *Store) AddTileToSentence(id string) (board.SentenceItem, bool) {
	var item board.SentenceItem
	found := s.apply("sentence.add", func(st *State) effect {
		i := tileIndex(st, id)
		if i < 0 {
			return unchanged
		}
		item = board.Snapshot(st.Tiles[i])
		st.Sentence = append(st.Sentence, item)
		return transient
	}) != unchanged
	return item, found
}

// RemoveFromSentence removes the item at index. Out-of-range indexes are ignored.
func (s *Store) RemoveFromSentence(index int) bool {
	return s.apply("sentence.remove", func(st *State) effect {
		if index < 0 || index >= len(st.Sentence) {
			return unchanged
		}
		st.Sentence = append(st.Sentence[:index], st.Sentence[index+1:]...)
		return transient
	}) != unchanged
}

// ClearSentence empties the sentence.
func (s *Store) ClearSentence() {
	s.apply("sentence.clear", func(st *State) effect {
		st.Sentence = []board.SentenceItem{}
		return transient
	})
}

// ReorderSentence moves the item at from so it ends up at index to. Both indexes refer to
// the list before the move; invalid indexes are ignored.
func (s *Store) ReorderSentence(from, to int) bool {
	return s.apply("sentence.move", func(st *State) effect {
		n := len(st.Sentence)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return unchanged
		}
		item := st.Sentence[from]
		rest := append(append([]board.SentenceItem{}, st.Sentence[:from]...), st.Sentence[from+1:]...)
		next := make([]board.SentenceItem, 0, n)
		next = append(next, rest[:to]...)
		next = append(next, item)
		next = append(next, rest[to:]...)
		st.Sentence = next
		return transient
	}) != unchanged
}

func dropSentenceItems(st *State, tileIDs map[string]struct{}) {
	if len(tileIDs) == 0 {
		return
	}
	kept := make([]board.SentenceItem, 0, len(st.Sentence))
	for _, item := range st.Sentence {
		if _, gone := tileIDs[item.TileID]; gone {
			continue
		}
		kept = append(kept, item)
	}
	st.Sentence = kept
}
