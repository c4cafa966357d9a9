package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/locale"
)

type jsoncConfig struct {
	Storage  *jsoncStorage  `json:"storage"`
	Board    *jsoncBoard    `json:"board"`
	GRPC     *jsoncGRPC     `json:"grpc"`
	Feedback *jsoncFeedback `json:"feedback"`
	Log      *jsoncLog      `json:"log"`

	SpeechCmd    *string `json:"speech_cmd"`
	ClipboardCmd *string `json:"clipboard_cmd"`
}

type jsoncStorage struct {
	Path *string `json:"path"`
	Key  *string `json:"key"`
}

type jsoncBoard struct {
	Language *string `json:"language"`
	GridCols *int    `json:"grid_cols"`
}

type jsoncGRPC struct {
	Enable *bool   `json:"enable"`
	Listen *string `json:"listen"`
}

type jsoncFeedback struct {
	SoundEnable *bool   `json:"sound_enable"`
	SelectFile  *string `json:"select_file"`
	SpeakFile   *string `json:"speak_file"`
	ClearFile   *string `json:"clear_file"`
	Notify      *bool   `json:"notify"`
	AppName     *string `json:"app_name"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if s := payload.Storage; s != nil {
		setTrimmed(&cfg.Storage.Path, s.Path)
		setTrimmed(&cfg.Storage.Key, s.Key)
	}

	if b := payload.Board; b != nil {
		if b.Language != nil {
			cfg.Board.Language = parseLanguage(*b.Language)
		}
		if b.GridCols != nil {
			cfg.Board.GridCols = *b.GridCols
		}
	}

	if g := payload.GRPC; g != nil {
		if g.Enable != nil {
			cfg.GRPC.Enable = *g.Enable
		}
		setTrimmed(&cfg.GRPC.Listen, g.Listen)
	}

	if f := payload.Feedback; f != nil {
		if f.SoundEnable != nil {
			cfg.Feedback.SoundEnable = *f.SoundEnable
		}
		setTrimmed(&cfg.Feedback.SelectFile, f.SelectFile)
		setTrimmed(&cfg.Feedback.SpeakFile, f.SpeakFile)
		setTrimmed(&cfg.Feedback.ClearFile, f.ClearFile)
		if f.Notify != nil {
			cfg.Feedback.Notify = *f.Notify
		}
		setTrimmed(&cfg.Feedback.AppName, f.AppName)
	}

	if payload.Log != nil {
		setTrimmed(&cfg.Log.Level, payload.Log.Level)
	}

	if payload.SpeechCmd != nil {
		command, err := parseCommand("speech_cmd", *payload.SpeechCmd)
		if err != nil {
			return err
		}
		cfg.Speech = command
	}

	if payload.ClipboardCmd != nil {
		command, err := parseCommand("clipboard_cmd", *payload.ClipboardCmd)
		if err != nil {
			return err
		}
		cfg.Clipboard = command
	}

	return nil
}

func parseCommand(key string, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// parseLanguage accepts "auto" (the POSIX locale) or any tag matching a supported language.
// Anything else is kept as written so Validate can reject it.
func parseLanguage(raw string) board.Language {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "auto") {
		return locale.FromEnv()
	}
	if lang, ok := locale.Normalize(raw); ok {
		return lang
	}
	return board.Language(strings.ToLower(raw))
}
