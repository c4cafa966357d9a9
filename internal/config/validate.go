package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

var logLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Storage.Key) == "" {
		return nil, fmt.Errorf("storage.key must not be empty")
	}
	if !cfg.Board.Language.Supported() {
		return nil, fmt.Errorf("board.language must be one of: %s", languageList())
	}
	if cfg.Board.GridCols < board.MinGridCols || cfg.Board.GridCols > board.MaxGridCols {
		return nil, fmt.Errorf("board.grid_cols must be between %d and %d", board.MinGridCols, board.MaxGridCols)
	}
	if cfg.GRPC.Enable {
		if strings.TrimSpace(cfg.GRPC.Listen) == "" {
			return nil, fmt.Errorf("grpc.listen must not be empty when grpc.enable=true")
		}
		if _, _, err := net.SplitHostPort(cfg.GRPC.Listen); err != nil {
			return nil, fmt.Errorf("grpc.listen must be host:port: %w", err)
		}
	}
	if _, ok := logLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))]; !ok {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if cfg.Speech.Raw != "" && !cfg.Speech.Enabled() {
		return nil, fmt.Errorf("speech_cmd is configured but empty")
	}
	if cfg.Clipboard.Raw != "" && !cfg.Clipboard.Enabled() {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}
	if cfg.Feedback.Notify && strings.TrimSpace(cfg.Feedback.AppName) == "" {
		return nil, fmt.Errorf("feedback.app_name must not be empty when feedback.notify=true")
	}

	if !cfg.Speech.Enabled() {
		warnings = append(warnings, Warning{Message: "speech_cmd is unset; speak will only print the transcript"})
	}

	for _, cue := range []struct {
		key  string
		path string
	}{
		{key: "feedback.select_file", path: cfg.Feedback.SelectFile},
		{key: "feedback.speak_file", path: cfg.Feedback.SpeakFile},
		{key: "feedback.clear_file", path: cfg.Feedback.ClearFile},
	} {
		if cue.path == "" {
			continue
		}
		if _, err := os.Stat(cue.path); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("%s %q is not readable; using synthesized cue", cue.key, cue.path)})
		}
	}

	return warnings, nil
}

func languageList() string {
	langs := board.SupportedLanguages()
	names := make([]string, len(langs))
	for i, lang := range langs {
		names[i] = string(lang)
	}
	return strings.Join(names, ", ")
}
