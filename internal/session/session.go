// Package session serves board commands for one running board session.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/bootstrap"
	"github.com/daxxac/talk-tile-buddy/internal/fsm"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/pin"
	"github.com/daxxac/talk-tile-buddy/internal/store"
)

var (
	// ErrUnknownCommand is returned for command names the controller does not serve.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotReady means bootstrap has not finished.
	ErrNotReady = errors.New("board is not ready")
	// ErrCaregiverRequired refuses a board edit while caregiver mode is off.
	ErrCaregiverRequired = errors.New("caregiver mode required")
)

// Speaker voices a transcript.
type Speaker interface {
	Speak(ctx context.Context, text string, lang board.Language, voice string) error
}

// SpeakFunc adapts a function to the Speaker interface.
type SpeakFunc func(context.Context, string, board.Language, string) error

func (f SpeakFunc) Speak(ctx context.Context, text string, lang board.Language, voice string) error {
	return f(ctx, text, lang, voice)
}

// Feedback is the session-facing subset of user feedback behavior.
type Feedback interface {
	CueSelect(context.Context)
	CueSpeak(context.Context)
	CueClear(context.Context)
	Notify(ctx context.Context, title string, body string)
}

// noopFeedback preserves command flow when no feedback is wired.
type noopFeedback struct{}

func (noopFeedback) CueSelect(context.Context)              {}
func (noopFeedback) CueSpeak(context.Context)               {}
func (noopFeedback) CueClear(context.Context)               {}
func (noopFeedback) Notify(context.Context, string, string) {}

type handlerFunc func(ctx context.Context, req ipc.Request) (message string, data any, err error)

// Controller owns the store for one session and dispatches commands against it.
type Controller struct {
	logger   *slog.Logger
	store    *store.Store
	boot     *bootstrap.Controller
	speaker  Speaker
	feedback Feedback

	handlers map[string]handlerFunc
	// unguarded commands never wait for bootstrap.
	unguarded map[string]struct{}
	// recovery commands wait for bootstrap to settle, then also run when it failed.
	recovery map[string]struct{}
	// caregiverOnly commands edit or replace the board.
	caregiverOnly map[string]struct{}
}

// NewController constructs a session controller with safe default fallbacks.
// A nil boot controller means the store is already reconciled.
func NewController(
	logger *slog.Logger,
	st *store.Store,
	boot *bootstrap.Controller,
	speaker Speaker,
	feedback Feedback,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	if speaker == nil {
		speaker = SpeakFunc(func(context.Context, string, board.Language, string) error { return nil })
	}
	if feedback == nil {
		feedback = noopFeedback{}
	}

	c := &Controller{
		logger:   logger,
		store:    st,
		boot:     boot,
		speaker:  speaker,
		feedback: feedback,
	}
	c.handlers = c.routes()
	c.unguarded = commandSet("status", "state", "loading", "error")
	c.recovery = commandSet("reset", "import")
	c.caregiverOnly = commandSet(
		"category.add", "category.update", "category.delete", "category.reorder",
		"tile.add", "tile.update", "tile.delete", "tile.reorder",
		"import", "reset",
	)
	return c
}

// Store returns the session's state container.
func (c *Controller) Store() *store.Store {
	return c.store
}

// State returns the bootstrap lifecycle state.
func (c *Controller) State() fsm.State {
	if c.boot == nil {
		return fsm.StateReady
	}
	return c.boot.State()
}

// Subscribe forwards store change notifications to fn until the returned func is called.
func (c *Controller) Subscribe(fn func(store.Change)) func() {
	return c.store.Subscribe(fn)
}

// Commands lists the served command names in sorted order.
func (c *Controller) Commands() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle serves one board command.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	handler, ok := c.handlers[req.Command]
	if !ok {
		return ipc.Failure(string(c.State()), fmt.Errorf("%w: %s", ErrUnknownCommand, req.Command))
	}

	if err := c.awaitReady(ctx, req.Command); err != nil {
		return ipc.Failure(string(c.State()), err)
	}
	if err := c.authorize(req); err != nil {
		c.logger.Warn("board command refused", "command", req.Command, "error", err.Error())
		return ipc.Failure(string(c.State()), err)
	}

	message, data, err := handler(ctx, req)
	state := string(c.State())
	if err != nil {
		c.logger.Warn("board command failed", "command", req.Command, "error", err.Error())
		return ipc.Failure(state, err)
	}
	c.logger.Debug("board command", "command", req.Command, "args", req.Args)
	return ipc.Success(state, message, data)
}

// awaitReady blocks board commands until bootstrap settles. Recovery commands also run
// once it has settled in the error state.
func (c *Controller) awaitReady(ctx context.Context, command string) error {
	if c.boot == nil {
		return nil
	}
	if _, ok := c.unguarded[command]; ok {
		return nil
	}
	select {
	case <-c.boot.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	state := c.boot.State()
	if state.Ready() {
		return nil
	}
	if _, ok := c.recovery[command]; ok && state == fsm.StateError {
		return nil
	}
	return fmt.Errorf("%w (state %s)", ErrNotReady, state)
}

// authorize admits caregiver-only commands when caregiver mode is on, or when the request
// carries the caregiver PIN. An unset PIN accepts any value.
func (c *Controller) authorize(req ipc.Request) error {
	if _, ok := c.caregiverOnly[req.Command]; !ok {
		return nil
	}
	pref := c.store.Preferences()
	if pref.CaregiverMode {
		return nil
	}
	if req.CaregiverPIN == nil {
		return fmt.Errorf("%w: turn on caregiver mode or pass the caregiver PIN", ErrCaregiverRequired)
	}
	if err := pin.Verify(pref.PinHash, *req.CaregiverPIN); err != nil {
		return fmt.Errorf("%w: %w", ErrCaregiverRequired, err)
	}
	return nil
}

func commandSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (c *Controller) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"status":           c.status,
		"state":            c.snapshot,
		"categories":       c.categories,
		"tiles":            c.tiles,
		"search":           c.search,
		"category.add":     c.addCategory,
		"category.update":  c.updateCategory,
		"category.delete":  c.deleteCategory,
		"category.reorder": c.reorderCategories,
		"tile.add":         c.addTile,
		"tile.update":      c.updateTile,
		"tile.delete":      c.deleteTile,
		"tile.reorder":     c.reorderTiles,
		"tile.favorite":    c.toggleFavorite,
		"sentence":         c.sentence,
		"sentence.add":     c.addToSentence,
		"sentence.remove":  c.removeFromSentence,
		"sentence.clear":   c.clearSentence,
		"sentence.move":    c.moveInSentence,
		"speak":            c.speak,
		"prefs":            c.preferences,
		"prefs.update":     c.updatePreferences,
		"caregiver.toggle": c.toggleCaregiver,
		"pin.set":          c.setPIN,
		"contrast":         c.setContrast,
		"export":           c.exportData,
		"import":           c.importData,
		"reset":            c.reset,
		"loading":          c.setLoading,
		"error":            c.setError,
	}
}
