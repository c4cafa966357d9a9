// Package feedback plays selection cues, sends desktop notifications, and tracks the
// presentation contrast flag.
package feedback

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/config"
	"github.com/gen2brain/beeep"
)

const notifyTimeout = 2 * time.Second

// Player renders a mono PCM cue at cueSampleRate.
type Player interface {
	Play(ctx context.Context, samples []int16) error
}

// NotifyFunc shows a desktop notification.
type NotifyFunc func(title string, message string, icon any) error

// Options overrides the runtime collaborators; zero values select PulseAudio and beeep.
type Options struct {
	Logger *slog.Logger
	Player Player
	Notify NotifyFunc
}

// Feedback is the concrete user feedback implementation used by runtime sessions.
type Feedback struct {
	cfg    config.FeedbackConfig
	logger *slog.Logger
	player Player
	notify NotifyFunc

	soundMu      sync.Mutex
	pending      sync.WaitGroup
	highContrast atomic.Bool
}

// New creates feedback from config.
func New(cfg config.FeedbackConfig, opts Options) *Feedback {
	f := &Feedback{
		cfg:    cfg,
		logger: opts.Logger,
		player: opts.Player,
		notify: opts.Notify,
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	if f.player == nil {
		f.player = pulsePlayer{appName: cfg.AppName}
	}
	if f.notify == nil {
		if cfg.AppName != "" {
			beeep.AppName = cfg.AppName
		}
		f.notify = beeep.Notify
	}
	return f
}

// CueSelect emits the tile-selected cue.
func (f *Feedback) CueSelect(ctx context.Context) {
	f.playCue(ctx, cueSelect)
}

// CueSpeak emits the cue played before the transcript is voiced.
func (f *Feedback) CueSpeak(ctx context.Context) {
	f.playCue(ctx, cueSpeak)
}

// CueClear emits the sentence-cleared cue.
func (f *Feedback) CueClear(ctx context.Context) {
	f.playCue(ctx, cueClear)
}

// Notify shows a desktop notification when notifications are enabled.
func (f *Feedback) Notify(ctx context.Context, title string, body string) {
	if !f.cfg.Notify || body == "" {
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- f.notify(title, body, "")
	}()

	select {
	case err := <-done:
		f.log("desktop notification failed", err)
	case <-time.After(notifyTimeout):
		f.logger.Debug("desktop notification timed out", "title", title)
	case <-ctx.Done():
	}
}

// SetHighContrast records the global presentation contrast flag.
func (f *Feedback) SetHighContrast(enabled bool) {
	if f.highContrast.Swap(enabled) != enabled {
		f.logger.Info("presentation contrast changed", "high_contrast", enabled)
	}
}

// HighContrast reports the presentation contrast flag last pushed by the store.
func (f *Feedback) HighContrast() bool {
	return f.highContrast.Load()
}

// Wait blocks until queued cues have finished playing.
func (f *Feedback) Wait() {
	f.pending.Wait()
}

// playCue serializes cue playback and emits audio asynchronously.
func (f *Feedback) playCue(ctx context.Context, kind cueKind) {
	if !f.cfg.SoundEnable {
		return
	}
	// Playback outlives the command that triggered it.
	ctx = context.WithoutCancel(ctx)
	f.pending.Add(1)
	go func() {
		defer f.pending.Done()
		f.soundMu.Lock()
		defer f.soundMu.Unlock()
		f.log("audio cue failed", f.emitCue(ctx, kind))
	}()
}

// log emits debug-only feedback failures to the runtime logger.
func (f *Feedback) log(message string, err error) {
	if err == nil {
		return
	}
	f.logger.Debug(message, "error", err.Error())
}
