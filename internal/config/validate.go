package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Speech.RateWPM < 80 || cfg.Speech.RateWPM > 450 {
		return nil, fmt.Errorf("speech.rate_wpm must be between 80 and 450")
	}
	if cfg.Speech.Amplitude < 0 || cfg.Speech.Amplitude > 200 {
		return nil, fmt.Errorf("speech.amplitude must be between 0 and 200")
	}
	if cfg.Status.IntervalMS < 1000 {
		return nil, fmt.Errorf("status.interval_ms must be >= 1000")
	}

	if _, err := ParseChords(cfg.Hotkeys); err != nil {
		return nil, err
	}

	if cfg.Playback.Raw != "" && len(cfg.Playback.Argv) == 0 {
		return nil, fmt.Errorf("playback_cmd is configured but empty")
	}

	if theme := strings.TrimSpace(cfg.Sound.Theme); theme != "" {
		if info, err := os.Stat(theme); err != nil || !info.IsDir() {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("sound.theme %q is not a directory; using synthesized cues", theme),
			})
		}
	}

	return warnings, nil
}
