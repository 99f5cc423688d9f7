package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			Enable:    true,
			Voice:     "",
			RateWPM:   180,
			Amplitude: 100,
			Stereo:    true,
		},
		Sound: SoundConfig{
			Enable: true,
			Stereo: true,
		},
		Hotkeys: HotkeyConfig{
			Toggle:   "ctrl+shift+space",
			Up:       "ctrl+shift+up",
			Down:     "ctrl+shift+down",
			Left:     "ctrl+shift+left",
			Right:    "ctrl+shift+right",
			Activate: "ctrl+shift+enter",
			Back:     "ctrl+shift+backspace",
			Playback: "ctrl+shift+v",
		},
		Navigation: NavigationConfig{
			AnnounceIndex:     false,
			AnnounceFirstItem: true,
			VerboseWidgets:    false,
		},
		Status: StatusConfig{IntervalMS: 5000},
	}
}
