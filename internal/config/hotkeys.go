package config

import (
	"fmt"

	"github.com/awrona/veil/internal/hotkey"
)

// Chords is the parsed form of HotkeyConfig.
type Chords struct {
	Toggle   hotkey.Chord
	Up       hotkey.Chord
	Down     hotkey.Chord
	Left     hotkey.Chord
	Right    hotkey.Chord
	Activate hotkey.Chord
	Back     hotkey.Chord
	Playback hotkey.Chord
}

// ParseChords parses every configured chord and rejects duplicates; two
// assignments sharing a chord would race for the same key press.
func ParseChords(h HotkeyConfig) (Chords, error) {
	fields := []struct {
		name  string
		value string
		dst   *hotkey.Chord
	}{
		{name: "hotkeys.toggle", value: h.Toggle},
		{name: "hotkeys.up", value: h.Up},
		{name: "hotkeys.down", value: h.Down},
		{name: "hotkeys.left", value: h.Left},
		{name: "hotkeys.right", value: h.Right},
		{name: "hotkeys.activate", value: h.Activate},
		{name: "hotkeys.back", value: h.Back},
		{name: "hotkeys.playback", value: h.Playback},
	}

	var chords Chords
	fields[0].dst = &chords.Toggle
	fields[1].dst = &chords.Up
	fields[2].dst = &chords.Down
	fields[3].dst = &chords.Left
	fields[4].dst = &chords.Right
	fields[5].dst = &chords.Activate
	fields[6].dst = &chords.Back
	fields[7].dst = &chords.Playback

	seen := make(map[hotkey.Chord]string, len(fields))
	for _, field := range fields {
		chord, err := hotkey.ParseChord(field.value)
		if err != nil {
			return Chords{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if other, dup := seen[chord]; dup {
			return Chords{}, fmt.Errorf("%s and %s are both bound to %s", other, field.name, chord)
		}
		seen[chord] = field.name
		*field.dst = chord
	}
	return chords, nil
}
