// Package seed provides the built-in default board used to initialize or repair the store.
package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is an immutable snapshot of the default categories and tiles.
type Catalog struct {
	Version    int              `yaml:"version"`
	Categories []board.Category `yaml:"categories"`
	Tiles      []board.Tile     `yaml:"tiles"`
}

var (
	loadOnce sync.Once
	builtin  Catalog
	loadErr  error
)

// Load returns a private copy of the embedded catalog; callers may mutate it freely.
func Load() (Catalog, error) {
	loadOnce.Do(func() {
		builtin, loadErr = Parse(catalogYAML)
	})
	if loadErr != nil {
		return Catalog{}, loadErr
	}
	return builtin.Clone(), nil
}

// MustLoad is Load for callers that treat a broken embedded catalog as a build defect.
func MustLoad() Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode seed catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid seed catalog: %w", err)
	}
	return c, nil
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	out := Catalog{
		Version:    c.Version,
		Categories: make([]board.Category, len(c.Categories)),
		Tiles:      make([]board.Tile, len(c.Tiles)),
	}
	for i, category := range c.Categories {
		out.Categories[i] = category.Clone()
	}
	for i, tile := range c.Tiles {
		out.Tiles[i] = tile.Clone()
	}
	return out
}

// Category looks up a seed category by id.
func (c Catalog) Category(id string) (board.Category, bool) {
	for _, category := range c.Categories {
		if category.ID == id {
			return category.Clone(), true
		}
	}
	return board.Category{}, false
}

// Tile looks up a seed tile by id.
func (c Catalog) Tile(id string) (board.Tile, bool) {
	for _, tile := range c.Tiles {
		if tile.ID == id {
			return tile.Clone(), true
		}
	}
	return board.Tile{}, false
}

// Validate checks the structural invariants the store relies on.
func (c Catalog) Validate() error {
	if c.Version <= 0 {
		return fmt.Errorf("version must be > 0")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}

	categoryOrders := make(map[int]string, len(c.Categories))
	categoryIDs := make(map[string]struct{}, len(c.Categories))
	for _, category := range c.Categories {
		if category.ID == "" {
			return fmt.Errorf("category %q has an empty id", category.Name)
		}
		if _, dup := categoryIDs[category.ID]; dup {
			return fmt.Errorf("duplicate category id %q", category.ID)
		}
		if other, dup := categoryOrders[category.Order]; dup {
			return fmt.Errorf("categories %q and %q share order %d", other, category.ID, category.Order)
		}
		if category.NameTranslations == nil {
			return fmt.Errorf("category %q has no nameTranslations", category.ID)
		}
		categoryIDs[category.ID] = struct{}{}
		categoryOrders[category.Order] = category.ID
	}

	tileIDs := make(map[string]struct{}, len(c.Tiles))
	tileOrders := make(map[string]map[int]string)
	for _, tile := range c.Tiles {
		if tile.ID == "" {
			return fmt.Errorf("tile %q has an empty id", tile.Label)
		}
		if _, dup := tileIDs[tile.ID]; dup {
			return fmt.Errorf("duplicate tile id %q", tile.ID)
		}
		if _, ok := categoryIDs[tile.CategoryID]; !ok {
			return fmt.Errorf("tile %q references unknown category %q", tile.ID, tile.CategoryID)
		}
		if _, err := board.ParseTileType(string(tile.Type)); err != nil {
			return fmt.Errorf("tile %q: %w", tile.ID, err)
		}
		if tile.Translations == nil {
			return fmt.Errorf("tile %q has no translations", tile.ID)
		}
		orders := tileOrders[tile.CategoryID]
		if orders == nil {
			orders = make(map[int]string)
			tileOrders[tile.CategoryID] = orders
		}
		if other, dup := orders[tile.Order]; dup {
			return fmt.Errorf("tiles %q and %q share order %d in %q", other, tile.ID, tile.Order, tile.CategoryID)
		}
		orders[tile.Order] = tile.ID
		tileIDs[tile.ID] = struct{}{}
	}
	return nil
}
