package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the live configuration and persists user-driven changes
// back to the config file. Reads return copies; the engine never shares
// the mutable value.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

// NewStore wraps a loaded configuration.
func NewStore(loaded Loaded) *Store {
	return &Store{path: loaded.Path, cfg: loaded.Config}
}

// Config returns the current configuration value.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update applies a mutation, validates the result, and persists it. An
// invalid mutation is rejected without changing the live value.
func (s *Store) Update(mutate func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	mutate(&next)
	if _, err := Validate(next); err != nil {
		return fmt.Errorf("rejected settings change: %w", err)
	}

	if err := writeConfig(s.path, next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// writeConfig renders the full configuration as JSON, which the JSONC
// parser reads back unchanged. Hand-written comments in the file do not
// survive a programmatic write.
func writeConfig(path string, cfg Config) error {
	payload := map[string]any{
		"speech": map[string]any{
			"enable":    cfg.Speech.Enable,
			"voice":     cfg.Speech.Voice,
			"rate_wpm":  cfg.Speech.RateWPM,
			"amplitude": cfg.Speech.Amplitude,
			"stereo":    cfg.Speech.Stereo,
		},
		"sound": map[string]any{
			"enable": cfg.Sound.Enable,
			"stereo": cfg.Sound.Stereo,
			"theme":  cfg.Sound.Theme,
		},
		"hotkeys": map[string]any{
			"toggle":   cfg.Hotkeys.Toggle,
			"up":       cfg.Hotkeys.Up,
			"down":     cfg.Hotkeys.Down,
			"left":     cfg.Hotkeys.Left,
			"right":    cfg.Hotkeys.Right,
			"activate": cfg.Hotkeys.Activate,
			"back":     cfg.Hotkeys.Back,
			"playback": cfg.Hotkeys.Playback,
		},
		"navigation": map[string]any{
			"announce_index":      cfg.Navigation.AnnounceIndex,
			"announce_first_item": cfg.Navigation.AnnounceFirstItem,
			"verbose_widgets":     cfg.Navigation.VerboseWidgets,
		},
		"status": map[string]any{
			"interval_ms": cfg.Status.IntervalMS,
		},
	}
	if cfg.Playback.Raw != "" {
		payload["playback_cmd"] = cfg.Playback.Raw
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
