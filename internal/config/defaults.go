package config

import (
	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/store"
)

// DefaultSpeechCommand voices the transcript read from stdin.
const DefaultSpeechCommand = "espeak-ng -v {lang}"

// DefaultGRPCListen is the loopback address of the Board gRPC service.
const DefaultGRPCListen = "127.0.0.1:50515"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	pref := board.DefaultPreference()

	return Config{
		Storage: StorageConfig{Key: store.StorageKey},
		Board: BoardConfig{
			Language: pref.Language,
			GridCols: pref.GridCols,
		},
		GRPC:   GRPCConfig{Enable: true, Listen: DefaultGRPCListen},
		Speech: CommandConfig{Raw: DefaultSpeechCommand, Argv: mustParseArgv(DefaultSpeechCommand)},
		Feedback: FeedbackConfig{
			SoundEnable: true,
			Notify:      true,
			AppName:     "tilebuddy",
		},
		Log: LogConfig{Level: "info"},
	}
}
