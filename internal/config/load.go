package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures the resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path        string
	Config      Config
	Warnings    []Warning
	Exists      bool
	StoragePath string
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	}

	loaded.StoragePath, err = ResolveStoragePath(loaded.Config.Storage.Path)
	if err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}
