// Package bootstrap brings the board store to a valid, non-empty state once per session.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/fsm"
	"github.com/daxxac/talk-tile-buddy/internal/store"
)

// Decision names the reconciliation branch taken at startup.
type Decision string

const (
	DecisionLoaded    Decision = "loaded"
	DecisionSeeded    Decision = "seeded"
	DecisionRepaired  Decision = "repaired"
	// DecisionRecovered marks a failed bootstrap whose board was later replaced wholesale.
	DecisionRecovered Decision = "recovered"
)

// Loader reads the persisted record, if any.
type Loader interface {
	Load(ctx context.Context, defaults board.Preference) (store.Record, bool, error)
}

// Result is the outcome of the single bootstrap run.
type Result struct {
	State      fsm.State          `json:"state"`
	Decision   Decision           `json:"decision,omitempty"`
	Repair     store.RepairReport `json:"repair"`
	Found      bool               `json:"found"`
	FromSchema int                `json:"fromSchema"`
	Err        error              `json:"-"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// Controller runs reconciliation exactly once and exposes its lifecycle state.
type Controller struct {
	logger *slog.Logger
	store  *store.Store
	loader Loader

	mu    sync.RWMutex
	state fsm.State

	once   sync.Once
	result Result
	done   chan struct{}
}

// New constructs a bootstrap controller. A nil loader behaves like empty storage.
func New(logger *slog.Logger, s *store.Store, loader Loader) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Controller{
		logger: logger,
		store:  s,
		loader: loader,
		state:  fsm.StatePending,
		done:   make(chan struct{}),
	}
}

// State returns the lifecycle state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed when Run settles, successfully or not.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Result returns the settled outcome; it is the zero Result until Done is closed.
func (c *Controller) Result() Result {
	select {
	case <-c.done:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.result
	default:
		return Result{State: c.State()}
	}
}

// Run reconciles persisted state with the seed catalog. Only the first call does work;
// later calls wait for and return the same result.
func (c *Controller) Run(ctx context.Context) Result {
	c.once.Do(func() {
		result := c.run(ctx)
		c.mu.Lock()
		c.result = result
		c.mu.Unlock()
		close(c.done)
	})
	<-c.done
	return c.Result()
}

// Recovered moves a failed bootstrap to ready after the board was replaced wholesale by a
// reset or import. It reports false, changing nothing, unless the controller is in error.
func (c *Controller) Recovered() bool {
	select {
	case <-c.done:
	default:
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != fsm.StateError {
		return false
	}
	state := c.state
	for _, event := range []fsm.Event{fsm.EventRetry, fsm.EventLoad, fsm.EventSeed, fsm.EventDone} {
		next, err := fsm.Transition(state, event)
		if err != nil {
			return false
		}
		state = next
	}
	c.state = state
	c.result.State = state
	c.result.Decision = DecisionRecovered
	c.result.Err = nil
	c.result.FinishedAt = time.Now()
	c.logger.Info("board bootstrap recovered")
	return true
}

func (c *Controller) run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	finish := func(err error) Result {
		if err != nil {
			_ = c.transition(fsm.EventFail)
			c.store.SetError(err.Error())
			c.logger.Error("board bootstrap failed", "error", err.Error())
		}
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	if err := c.transition(fsm.EventLoad); err != nil {
		return finish(err)
	}

	if c.loader != nil {
		rec, found, err := c.loader.Load(ctx, c.store.Defaults())
		if err != nil {
			return finish(fmt.Errorf("load persisted board: %w", err))
		}
		if found {
			c.store.Hydrate(rec)
			result.Found = true
			result.FromSchema = rec.SchemaVersion
		}
	}

	switch {
	case c.store.Empty():
		if err := c.transition(fsm.EventSeed); err != nil {
			return finish(err)
		}
		c.store.ResetToSeedData()
		result.Decision = DecisionSeeded
	case c.stale(result.FromSchema):
		if err := c.transition(fsm.EventRepair); err != nil {
			return finish(err)
		}
		result.Repair = c.store.RepairFromSeed()
		result.Decision = DecisionRepaired
	default:
		result.Decision = DecisionLoaded
	}

	c.store.SetHighContrast(c.store.Preferences().HighContrast)

	if err := c.transition(fsm.EventDone); err != nil {
		return finish(err)
	}
	c.logger.Info("board bootstrap complete",
		"decision", string(result.Decision),
		"found", result.Found,
		"from_schema", result.FromSchema,
		"repaired", result.Repair.Filled,
	)
	return finish(nil)
}

// stale reports whether the hydrated record needs a repair pass: its schema tag is older
// than the current one, or any entity still lacks translations whatever the tag says.
func (c *Controller) stale(fromSchema int) bool {
	if fromSchema > 0 && fromSchema < store.SchemaVersion {
		return true
	}
	return c.store.NeedsRepair()
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}
