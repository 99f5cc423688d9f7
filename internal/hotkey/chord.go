// Package hotkey owns global keyboard chord interception. A Dispatcher holds
// exactly one generation of chord->action bindings at a time and replaces the
// whole generation atomically, so the user is never stranded without any
// active bindings mid-switch.
package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

// Modifier is a chord modifier bitmask.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Chord is one modifier+key combination, e.g. ctrl+shift+up.
type Chord struct {
	Mods Modifier
	Key  string
}

// ParseChord parses a textual chord like "ctrl+shift+up". The final token is
// the key, every preceding token a modifier.
func ParseChord(s string) (Chord, error) {
	tokens := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(tokens) == 0 || tokens[0] == "" {
		return Chord{}, fmt.Errorf("empty chord")
	}

	var chord Chord
	for i, token := range tokens {
		token = strings.TrimSpace(token)
		if i == len(tokens)-1 {
			if _, ok := keyCodes[token]; !ok {
				return Chord{}, fmt.Errorf("unknown key %q in chord %q", token, s)
			}
			chord.Key = token
			break
		}

		mod, ok := modifierNames[token]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q in chord %q", token, s)
		}
		chord.Mods |= mod
	}
	return chord, nil
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"super":   ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

// String renders the chord in canonical modifier order.
func (c Chord) String() string {
	var parts []string
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if c.Mods&ModSuper != 0 {
		parts = append(parts, "super")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// sortChords orders chords deterministically for listener registration.
func sortChords(chords []Chord) {
	sort.Slice(chords, func(i, j int) bool {
		if chords[i].Key != chords[j].Key {
			return chords[i].Key < chords[j].Key
		}
		return chords[i].Mods < chords[j].Mods
	})
}
