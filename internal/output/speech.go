package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/config"
)

// ErrSpeechDisabled means no speech command is configured.
var ErrSpeechDisabled = errors.New("speech command is not configured")

const speechTimeout = 30 * time.Second

// Speaker runs the configured speech command with the transcript on stdin and mirrors
// the text to the clipboard when one is configured.
type Speaker struct {
	speech    config.CommandConfig
	clipboard *Clipboard
	logger    *slog.Logger
	timeout   time.Duration
}

// NewSpeaker constructs a speaker from runtime config.
func NewSpeaker(cfg config.Config, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Speaker{
		speech:    cfg.Speech,
		clipboard: NewClipboard(cfg.Clipboard.Argv),
		logger:    logger,
		timeout:   speechTimeout,
	}
}

// Speak voices text in lang. {lang} and {voice} in the command are substituted.
// Clipboard failures are logged and never fail the utterance.
func (s *Speaker) Speak(ctx context.Context, text string, lang board.Language, voice string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if err := s.clipboard.Copy(ctx, text); err != nil {
		s.logger.Error("clipboard copy failed; speaking anyway", "error", err.Error())
	}

	if !s.speech.Enabled() {
		return ErrSpeechDisabled
	}

	argv := s.speech.Expand(map[string]string{
		"lang":  string(lang),
		"voice": voice,
	})

	speakCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started := time.Now()
	if err := runCommandWithInput(speakCtx, argv, text); err != nil {
		return fmt.Errorf("run speech command: %w", err)
	}
	s.logger.Debug("transcript spoken", "lang", string(lang), "chars", len([]rune(text)), "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}
