package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for the config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "tilebuddy", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "tilebuddy", "config.jsonc"), nil
}

// ResolveStoragePath returns configured, else $XDG_DATA_HOME/tilebuddy/board.db,
// else ~/.local/share/tilebuddy/board.db.
func ResolveStoragePath(configured string) (string, error) {
	if strings.TrimSpace(configured) != "" {
		return expandHome(strings.TrimSpace(configured))
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "tilebuddy", "board.db"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for storage fallback")
	}
	return filepath.Join(home, ".local", "share", "tilebuddy", "board.db"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for storage path")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
