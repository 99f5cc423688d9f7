package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the outcome of reading the veil settings file: the path that was
// resolved, the effective configuration, and anything worth telling the user
// about without refusing to start. Exists is false when veil is running on
// pure defaults because no file was present.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the settings file, overlays it on the defaults, and validates
// the result. A missing file is not an error: navigation must come up even on
// a fresh account, so defaults apply and a warning records the path that was
// tried. Unreadable or malformed files are errors, silently ignoring a file
// the user wrote would be worse than refusing to start.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultsLoaded(path), nil
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("read settings %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse settings %q: %w", path, err)
	}

	return Loaded{
		Path:     path,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

func defaultsLoaded(path string) Loaded {
	return Loaded{
		Path:   path,
		Config: Default(),
		Warnings: []Warning{{
			Message: fmt.Sprintf("settings file %q not found, running on defaults", path),
		}},
	}
}
