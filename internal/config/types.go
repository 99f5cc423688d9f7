// Package config resolves, parses, validates, and defaults veil
// configuration.
package config

// Config is the fully materialized runtime configuration used by veil.
type Config struct {
	Speech     SpeechConfig
	Sound      SoundConfig
	Hotkeys    HotkeyConfig
	Navigation NavigationConfig
	Status     StatusConfig
	// Playback launches voice-message playback from the always-on
	// hotkey generation; empty disables the binding.
	Playback CommandConfig
}

// SpeechConfig controls the espeak-ng synthesizer and stereo speech.
type SpeechConfig struct {
	Enable    bool
	Voice     string
	RateWPM   int
	Amplitude int
	Stereo    bool
}

// SoundConfig controls navigation cues and the optional sound theme.
type SoundConfig struct {
	Enable bool
	Stereo bool
	// Theme is a directory of per-cue sound files overriding the
	// synthesized tones.
	Theme string
}

// HotkeyConfig holds the chord assignments as parseable chord strings.
type HotkeyConfig struct {
	Toggle   string
	Up       string
	Down     string
	Left     string
	Right    string
	Activate string
	Back     string
	Playback string
}

// NavigationConfig controls announcement verbosity.
type NavigationConfig struct {
	AnnounceIndex     bool
	AnnounceFirstItem bool
	VerboseWidgets    bool
}

// StatusConfig controls the status readout poller.
type StatusConfig struct {
	IntervalMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
