package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/fsm"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	rec   store.Record
	found bool
	err   error
	calls int
}

func (f *fakeLoader) Load(_ context.Context, defaults board.Preference) (store.Record, bool, error) {
	f.calls++
	if f.err != nil {
		return store.Record{}, false, f.err
	}
	if f.rec.Preferences == (board.Preference{}) {
		f.rec.Preferences = defaults
	}
	return f.rec, f.found, nil
}

type contrastRecorder struct {
	mu     sync.Mutex
	values []bool
}

func (c *contrastRecorder) SetHighContrast(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, enabled)
}

func newStore(t *testing.T, contrast store.ContrastSink) *store.Store {
	t.Helper()
	s := store.New(store.Options{Contrast: contrast})
	t.Cleanup(s.Close)
	return s
}

func TestRunSeedsEmptyStorage(t *testing.T) {
	s := newStore(t, nil)
	c := New(nil, s, &fakeLoader{})

	result := c.Run(context.Background())

	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateReady, result.State)
	require.Equal(t, DecisionSeeded, result.Decision)
	require.Len(t, s.Snapshot().Tiles, 61)
}

func TestRunSeedingPreservesStoredPreferences(t *testing.T) {
	s := newStore(t, nil)
	pref := board.DefaultPreference()
	pref.Language = board.LanguageRussian
	pref.GridCols = 4
	loader := &fakeLoader{found: true, rec: store.Record{SchemaVersion: store.SchemaVersion, Preferences: pref}}

	result := New(nil, s, loader).Run(context.Background())

	require.Equal(t, DecisionSeeded, result.Decision)
	require.Equal(t, pref, s.Preferences())
	require.NotEmpty(t, s.Categories())
}

func TestRunLoadsCurrentRecordUntouched(t *testing.T) {
	s := newStore(t, nil)
	rec := store.Record{
		SchemaVersion: store.SchemaVersion,
		Categories:    []board.Category{{ID: "mine", Name: "Mine", NameTranslations: board.Translations{}}},
		Tiles:         []board.Tile{{ID: "u1", Label: "teddy", CategoryID: "mine", Type: board.TileNoun, Translations: board.Translations{}}},
	}
	result := New(nil, s, &fakeLoader{found: true, rec: rec}).Run(context.Background())

	require.Equal(t, DecisionLoaded, result.Decision)
	require.True(t, result.Found)
	tiles := s.Tiles("")
	require.Len(t, tiles, 1)
	require.Equal(t, "teddy", tiles[0].Label)
}

func TestRunRepairsLegacyRecordWithoutDroppingUserTiles(t *testing.T) {
	s := newStore(t, nil)
	rec := store.Record{
		Categories: []board.Category{{ID: "food", Name: "Food & Drink"}},
		Tiles: []board.Tile{
			{ID: "tile-apple", Label: "apple", CategoryID: "food", Type: board.TileNoun},
			{ID: "u1", Label: "grandma's soup", CategoryID: "food", Type: board.TileNoun, Order: 1},
		},
	}
	result := New(nil, s, &fakeLoader{found: true, rec: rec}).Run(context.Background())

	require.Equal(t, DecisionRepaired, result.Decision)
	require.Equal(t, 0, result.FromSchema)
	require.Equal(t, store.RepairReport{Filled: 2, Kept: 1}, result.Repair)
	require.Len(t, s.Snapshot().Tiles, 2)
	soup, ok := s.Tile("u1")
	require.True(t, ok)
	require.Equal(t, "grandma's soup", soup.Label)
	apple, _ := s.Tile("tile-apple")
	require.Equal(t, "תפוח", apple.Translations[board.LanguageHebrew])
}

func TestRunRepairsStaleTaggedRecord(t *testing.T) {
	s := newStore(t, nil)
	rec := store.Record{
		SchemaVersion: 1,
		Categories:    []board.Category{{ID: "food", Name: "Food", NameTranslations: board.Translations{}}},
		Tiles:         []board.Tile{{ID: "u1", Label: "x", CategoryID: "food", Type: board.TileNoun, Translations: board.Translations{}}},
	}
	result := New(nil, s, &fakeLoader{found: true, rec: rec}).Run(context.Background())

	require.Equal(t, DecisionRepaired, result.Decision)
	require.Equal(t, store.RepairReport{}, result.Repair)
}

func TestRunRepairsCurrentTagMissingTranslations(t *testing.T) {
	s := newStore(t, nil)
	rec := store.Record{
		SchemaVersion: store.SchemaVersion,
		Categories:    []board.Category{{ID: "food", Name: "Food & Drink"}},
		Tiles:         []board.Tile{{ID: "tile-apple", Label: "apple", CategoryID: "food", Type: board.TileNoun}},
	}
	result := New(nil, s, &fakeLoader{found: true, rec: rec}).Run(context.Background())

	require.Equal(t, DecisionRepaired, result.Decision)
	require.Equal(t, store.RepairReport{Filled: 2}, result.Repair)
	require.False(t, s.NeedsRepair())
}

func TestImportedLegacyBoardSurvivesRestartLocalized(t *testing.T) {
	var (
		mu    sync.Mutex
		saved store.Record
	)
	first := store.New(store.Options{Persister: store.PersistFunc(func(_ context.Context, rec store.Record) error {
		mu.Lock()
		defer mu.Unlock()
		saved = rec
		return nil
	})})
	t.Cleanup(first.Close)
	require.Equal(t, DecisionSeeded, New(nil, first, &fakeLoader{}).Run(context.Background()).Decision)

	legacy := `{
		"categories": [{"id":"food","name":"Food & Drink"}],
		"tiles": [
			{"id":"tile-apple","label":"apple","categoryId":"food","type":"noun"},
			{"id":"u1","label":"grandma's soup","categoryId":"food","type":"noun","order":1}
		],
		"preferences": {}
	}`
	require.NoError(t, first.ImportData(legacy))
	require.NoError(t, first.Flush(context.Background()))

	mu.Lock()
	rec := saved.Clone()
	mu.Unlock()
	require.Equal(t, store.SchemaVersion, rec.SchemaVersion)

	second := newStore(t, nil)
	result := New(nil, second, &fakeLoader{found: true, rec: rec}).Run(context.Background())
	require.NoError(t, result.Err)
	require.False(t, second.NeedsRepair())

	apple, ok := second.Tile("tile-apple")
	require.True(t, ok)
	require.Equal(t, "תפוח", apple.Translations[board.LanguageHebrew])
	soup, ok := second.Tile("u1")
	require.True(t, ok)
	require.NotNil(t, soup.Translations)
}

func TestRunAppliesContrastFlag(t *testing.T) {
	recorder := &contrastRecorder{}
	s := newStore(t, recorder)
	pref := board.DefaultPreference()
	pref.HighContrast = true
	loader := &fakeLoader{found: true, rec: store.Record{SchemaVersion: store.SchemaVersion, Preferences: pref}}

	New(nil, s, loader).Run(context.Background())

	require.Equal(t, []bool{true}, recorder.values)
}

func TestRunOnlyOnce(t *testing.T) {
	s := newStore(t, nil)
	loader := &fakeLoader{}
	c := New(nil, s, loader)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, 1, loader.calls)
	<-c.Done()
	require.Equal(t, fsm.StateReady, c.Result().State)
}

func TestRunLoadFailureLeavesStoreEmptyAndFlagsError(t *testing.T) {
	s := newStore(t, nil)
	c := New(nil, s, &fakeLoader{err: errors.New("database is locked")})

	result := c.Run(context.Background())

	require.Error(t, result.Err)
	require.Equal(t, fsm.StateError, result.State)
	require.True(t, s.Empty())
	require.Contains(t, s.Snapshot().Error, "database is locked")
}

func TestRecoveredAfterFailure(t *testing.T) {
	s := newStore(t, nil)
	c := New(nil, s, &fakeLoader{err: errors.New("disk I/O error")})
	require.False(t, c.Recovered())

	c.Run(context.Background())
	s.ResetToSeedData()

	require.True(t, c.Recovered())
	require.Equal(t, fsm.StateReady, c.State())
	require.Equal(t, DecisionRecovered, c.Result().Decision)
	require.NoError(t, c.Result().Err)
	require.False(t, c.Recovered())
}

func TestResultBeforeRun(t *testing.T) {
	c := New(nil, newStore(t, nil), nil)
	require.Equal(t, fsm.StatePending, c.Result().State)
}
