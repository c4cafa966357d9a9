// Package store holds the board session state and persists its durable subset.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/seed"
	"github.com/google/uuid"
)

// ErrInvalidImport wraps every import payload rejection.
var ErrInvalidImport = errors.New("invalid import payload")

// State is the aggregate root observed by presentation collaborators.
type State struct {
	Categories  []board.Category     `json:"categories"`
	Tiles       []board.Tile         `json:"tiles"`
	Preferences board.Preference     `json:"preferences"`
	Sentence    []board.SentenceItem `json:"sentence"`
	IsLoading   bool                 `json:"isLoading"`
	Error       string               `json:"error,omitempty"`
}

// Change describes one applied mutation.
type Change struct {
	Op      string `json:"op"`
	Durable bool   `json:"durable"`
	Seq     uint64 `json:"seq"`
}

// ContrastSink receives the global presentation contrast flag.
type ContrastSink interface {
	SetHighContrast(enabled bool)
}

// Options configures a Store. Zero values select production defaults.
type Options struct {
	Logger    *slog.Logger
	Persister Persister
	Catalog   *seed.Catalog
	Defaults  *board.Preference
	Contrast  ContrastSink
	NewID     func() string
	Now       func() time.Time
}

// Store is the single state container for one board session. All methods are safe for
// concurrent use; each mutation completes under the lock before the next one starts.
type Store struct {
	logger   *slog.Logger
	catalog  seed.Catalog
	defaults board.Preference
	contrast ContrastSink
	newID    func() string
	now      func() time.Time
	writer   *writer

	mu           sync.RWMutex
	state        State
	loadedSchema int
	seq          uint64

	subMu     sync.Mutex
	subs      map[int]func(Change)
	nextSubID int
}

// New constructs a Store holding the default preferences and no board content.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	var catalog seed.Catalog
	if opts.Catalog != nil {
		catalog = opts.Catalog.Clone()
	} else {
		catalog = seed.MustLoad()
	}
	defaults := board.DefaultPreference()
	if opts.Defaults != nil {
		defaults = *opts.Defaults
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		logger:   logger,
		catalog:  catalog,
		defaults: defaults,
		contrast: opts.Contrast,
		newID:    newID,
		now:      now,
		state: State{
			Categories:  []board.Category{},
			Tiles:       []board.Tile{},
			Preferences: defaults,
			Sentence:    []board.SentenceItem{},
		},
		subs: make(map[int]func(Change)),
	}
	if opts.Persister != nil {
		s.writer = newWriter(opts.Persister, logger)
	}
	return s
}

// Defaults returns the preference record used for first run and import merges.
func (s *Store) Defaults() board.Preference {
	return s.defaults
}

// Catalog returns a copy of the seed catalog the store resets to.
func (s *Store) Catalog() seed.Catalog {
	return s.catalog.Clone()
}

// Hydrate installs a previously persisted record as the current state without writing it back.
func (s *Store) Hydrate(rec Record) {
	rec = rec.Clone()
	s.mu.Lock()
	s.state.Categories = rec.Categories
	s.state.Tiles = rec.Tiles
	s.state.Preferences = rec.Preferences
	s.state.Sentence = []board.SentenceItem{}
	normalizeOrders(&s.state)
	s.loadedSchema = rec.SchemaVersion
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.logger.Info("board state hydrated",
		"schema_version", rec.SchemaVersion,
		"categories", len(rec.Categories),
		"tiles", len(rec.Tiles),
	)
	s.notify(Change{Op: "hydrate", Seq: seq})
}

// LoadedSchemaVersion reports the schema tag of the hydrated record (0 when untagged or never hydrated).
func (s *Store) LoadedSchemaVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedSchema
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Record returns the durable subset of the current state.
func (s *Store) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordLocked()
}

// Subscribe registers fn for change notifications and returns its unsubscribe func.
// fn runs synchronously after each mutation, outside the state lock.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Flush waits for pending durable writes to be attempted.
func (s *Store) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.flush(ctx)
}

// Close flushes pending writes and stops the background writer.
func (s *Store) Close() {
	if s.writer == nil {
		return
	}
	s.writer.close()
}

type effect int

const (
	unchanged effect = iota
	transient
	durable
)

// apply runs m under the state lock, then persists and notifies according to its effect.
func (s *Store) apply(op string, m func(st *State) effect) effect {
	s.mu.Lock()
	eff := m(&s.state)
	var rec Record
	if eff == durable {
		rec = s.recordLocked()
	}
	if eff != unchanged {
		s.seq++
	}
	seq := s.seq
	s.mu.Unlock()

	if eff == unchanged {
		return eff
	}
	if eff == durable && s.writer != nil {
		s.writer.enqueue(rec)
	}
	s.notify(Change{Op: op, Durable: eff == durable, Seq: seq})
	return eff
}

func (s *Store) notify(change Change) {
	s.subMu.Lock()
	listeners := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Store) recordLocked() Record {
	rec := Record{
		SchemaVersion: SchemaVersion,
		Categories:    s.state.Categories,
		Tiles:         s.state.Tiles,
		Preferences:   s.state.Preferences,
	}
	return rec.Clone()
}

func cloneState(st State) State {
	out := State{
		Categories:  make([]board.Category, len(st.Categories)),
		Tiles:       make([]board.Tile, len(st.Tiles)),
		Preferences: st.Preferences,
		Sentence:    append([]board.SentenceItem{}, st.Sentence...),
		IsLoading:   st.IsLoading,
		Error:       st.Error,
	}
	for i, c := range st.Categories {
		out.Categories[i] = c.Clone()
	}
	for i, t := range st.Tiles {
		out.Tiles[i] = t.Clone()
	}
	return out
}

// normalizeOrders sorts categories by order and renumbers them densely, then does the same
// for the tiles of each category. Orphan tiles keep their relative order as their own group.
func normalizeOrders(st *State) {
	sortCategories(st.Categories)
	for i := range st.Categories {
		st.Categories[i].Order = i
	}

	groups := make(map[string][]int)
	for i, t := range st.Tiles {
		groups[t.CategoryID] = append(groups[t.CategoryID], i)
	}
	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return st.Tiles[idx[a]].Order < st.Tiles[idx[b]].Order
		})
		for rank, i := range idx {
			st.Tiles[i].Order = rank
		}
	}
}

// compactTiles renumbers the tiles of one category densely, keeping their relative order.
func compactTiles(st *State, categoryID string) {
	idx := make([]int, 0)
	for i, t := range st.Tiles {
		if t.CategoryID == categoryID {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return st.Tiles[idx[a]].Order < st.Tiles[idx[b]].Order
	})
	for rank, i := range idx {
		st.Tiles[i].Order = rank
	}
}

func countTiles(st *State, categoryID string) int {
	n := 0
	for _, t := range st.Tiles {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n
}
