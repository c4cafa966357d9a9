package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSaveTimeout = 5 * time.Second

// writer persists the most recent durable record in the background.
// Records enqueued while a save is in flight coalesce into a single follow-up save.
type writer struct {
	persist Persister
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  *Record
	enqueued uint64
	written  uint64
	progress chan struct{}
	closed   bool

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

func newWriter(persist Persister, logger *slog.Logger) *writer {
	w := &writer{
		persist:  persist,
		logger:   logger,
		timeout:  defaultSaveTimeout,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// enqueue replaces any pending record with rec and wakes the loop.
func (w *writer) enqueue(rec Record) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("board state change after writer close; not persisted")
		return
	}
	w.pending = &rec
	w.enqueued++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			w.drain()
			return
		case <-w.wake:
			w.drain()
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		rec := w.pending
		seq := w.enqueued
		w.pending = nil
		w.mu.Unlock()
		if rec == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.persist.Save(ctx, *rec)
		cancel()
		if err != nil {
			w.logger.Error("persist board state failed", "error", err.Error(), "seq", seq)
		} else {
			w.logger.Debug("board state persisted", "seq", seq, "categories", len(rec.Categories), "tiles", len(rec.Tiles))
		}

		w.mu.Lock()
		w.written = seq
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

// flush blocks until every record enqueued before the call has been attempted.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.enqueued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.written >= target {
			w.mu.Unlock()
			return nil
		}
		ch := w.progress
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close drains pending work and stops the loop. It is safe to call more than once.
func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	w.wg.Wait()
}
