package cue

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

// Player renders cue kinds to the default audio output. Playback of one cue
// at a time is serialized; callers are expected to invoke Play off their own
// hot path.
type Player struct {
	themeDir string
	mu       sync.Mutex
}

// NewPlayer builds a player with an optional sound-theme directory. When the
// directory holds a <kind>.ogg file it overrides the synthesized cue for
// unpanned playback.
func NewPlayer(themeDir string) *Player {
	return &Player{themeDir: themeDir}
}

// Play emits one cue. pan is the list position in [0,1] (0 = hard left,
// 1 = hard right); nil plays centered.
func (p *Player) Play(kind Kind, pan *float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Theme files cannot be panned, so they only serve the centered path.
	if pan == nil {
		if path := p.themePath(kind); path != "" {
			if err := playCueFile(path); err == nil {
				return nil
			}
		}
	}

	mono := samples(kind)
	if len(mono) == 0 {
		return fmt.Errorf("unknown cue kind %d", kind)
	}

	position := 0.5
	if pan != nil {
		position = clamp01(*pan)
	}

	return playStereo(panStereo(mono, position), sampleRate)
}

// themePath returns the override file for a kind, or "" when absent.
func (p *Player) themePath(kind Kind) string {
	if p.themeDir == "" {
		return ""
	}
	stem := kind.String()
	if stem == "" {
		return ""
	}
	path := filepath.Join(p.themeDir, stem+".ogg")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func playCueFile(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// panStereo interleaves a mono signal into stereo using an equal-power law.
func panStereo(mono []int16, position float64) []int16 {
	position = clamp01(position)
	left := math.Cos(position * math.Pi / 2)
	right := math.Sin(position * math.Pi / 2)

	out := make([]int16, 0, len(mono)*2)
	for _, s := range mono {
		out = append(out, int16(math.Round(float64(s)*left)), int16(math.Round(float64(s)*right)))
	}
	return out
}

func playStereo(interleaved []int16, rate int) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("veil"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(interleaved) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, interleaved[cursor:])
		cursor += n
		if cursor >= len(interleaved) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(rate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("veil navigation cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}

	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
