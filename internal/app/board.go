package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/bootstrap"
	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/daxxac/talk-tile-buddy/internal/feedback"
	"github.com/daxxac/talk-tile-buddy/internal/output"
	"github.com/daxxac/talk-tile-buddy/internal/session"
	"github.com/daxxac/talk-tile-buddy/internal/storage"
	"github.com/daxxac/talk-tile-buddy/internal/store"
)

const flushTimeout = 3 * time.Second

// boardStack is one opened board: durable storage, the state store, its bootstrap, and
// the command controller that serves it.
type boardStack struct {
	db         *storage.DB
	store      *store.Store
	boot       *bootstrap.Controller
	feedback   *feedback.Feedback
	controller *session.Controller
	logger     *slog.Logger
}

func openBoard(loaded config.Loaded, logger *slog.Logger, fbOpts feedback.Options) (*boardStack, error) {
	cfg := loaded.Config

	db, err := storage.Open(loaded.StoragePath, cfg.Storage.Key)
	if err != nil {
		return nil, err
	}

	fbOpts.Logger = logger
	fb := feedback.New(cfg.Feedback, fbOpts)

	defaults := cfg.Board.Preference()
	st := store.New(store.Options{
		Logger:    logger,
		Persister: db,
		Defaults:  &defaults,
		Contrast:  fb,
	})
	boot := bootstrap.New(logger, st, db)
	speaker := output.NewSpeaker(cfg, logger)

	return &boardStack{
		db:         db,
		store:      st,
		boot:       boot,
		feedback:   fb,
		controller: session.NewController(logger, st, boot, speaker, fb),
		logger:     logger,
	}, nil
}

// Close waits for pending writes and cues, then releases storage.
func (b *boardStack) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := b.store.Flush(ctx); err != nil {
		b.logger.Warn("flush board state failed", "error", err.Error())
	}
	b.store.Close()
	b.feedback.Wait()
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}

func logBootstrapResult(logger *slog.Logger, result bootstrap.Result) {
	fields := []any{
		"state", result.State,
		"decision", result.Decision,
		"found", result.Found,
		"from_schema", result.FromSchema,
		"repair_filled", result.Repair.Filled,
		"repair_kept", result.Repair.Kept,
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Err != nil {
		logger.Error("board bootstrap failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("board bootstrap complete", fields...)
}
