// Package config resolves, parses, validates, and defaults tilebuddy configuration.
package config

import (
	"log/slog"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// Config is the fully materialized runtime configuration used by tilebuddy.
type Config struct {
	Storage   StorageConfig
	Board     BoardConfig
	GRPC      GRPCConfig
	Speech    CommandConfig
	Clipboard CommandConfig
	Feedback  FeedbackConfig
	Log       LogConfig
}

// StorageConfig locates the durable board record. An empty Path resolves to the XDG data dir.
type StorageConfig struct {
	Path string
	Key  string
}

// BoardConfig seeds the default preference record used on first run and for legacy records.
type BoardConfig struct {
	Language board.Language
	GridCols int
}

// Preference returns the default preference record described by c.
func (c BoardConfig) Preference() board.Preference {
	pref := board.DefaultPreference()
	pref.Language = c.Language
	pref.GridCols = c.GridCols
	return pref
}

// GRPCConfig controls the Board gRPC listener of the daemon.
type GRPCConfig struct {
	Enable bool
	Listen string
}

// FeedbackConfig controls audio cues and desktop notifications.
type FeedbackConfig struct {
	SoundEnable bool
	SelectFile  string
	SpeakFile   string
	ClearFile   string
	Notify      bool
	AppName     string
}

// LogConfig controls the JSONL logger.
type LogConfig struct {
	Level string
}

// SlogLevel maps Level onto slog; unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Enabled reports whether the command has anything to run.
func (c CommandConfig) Enabled() bool {
	return len(c.Argv) > 0
}

// Expand returns argv with every {name} placeholder replaced from vars.
func (c CommandConfig) Expand(vars map[string]string) []string {
	out := make([]string, len(c.Argv))
	for i, arg := range c.Argv {
		out[i] = expandArg(arg, vars)
	}
	return out
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
