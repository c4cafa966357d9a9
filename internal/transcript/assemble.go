// Package transcript derives the spoken utterance from the in-progress sentence.
package transcript

import (
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/locale"
)

// Word is one resolved sentence item.
type Word struct {
	TileID string `json:"tileId"`
	Text   string `json:"text"`
	// Live is false when the source tile no longer exists and the snapshot was used.
	Live bool `json:"live"`
}

// Resolve returns the text of each sentence item, in order.
//
// A live tile speaks its ttsOverride, else its text in lang. A deleted tile falls back to
// the snapshot's ttsOverride, else the snapshot label.
func Resolve(sentence []board.SentenceItem, tiles []board.Tile, lang board.Language) []Word {
	byID := make(map[string]board.Tile, len(tiles))
	for _, tile := range tiles {
		byID[tile.ID] = tile
	}

	words := make([]Word, 0, len(sentence))
	for _, item := range sentence {
		word := Word{TileID: item.TileID}
		if live, ok := byID[item.TileID]; ok {
			word.Live = true
			word.Text = item.TTSOverride
			if word.Text == "" {
				word.Text = locale.TileText(live, lang)
			}
		} else {
			word.Text = item.TTSOverride
			if word.Text == "" {
				word.Text = item.Label
			}
		}
		words = append(words, word)
	}
	return words
}

// Build joins the resolved sentence with single spaces. Items that resolve to blank text
// are skipped so they never produce doubled separators.
func Build(sentence []board.SentenceItem, tiles []board.Tile, lang board.Language) string {
	words := Resolve(sentence, tiles, lang)
	parts := make([]string, 0, len(words))
	for _, word := range words {
		if strings.TrimSpace(word.Text) == "" {
			continue
		}
		parts = append(parts, word.Text)
	}
	return strings.Join(parts, " ")
}
