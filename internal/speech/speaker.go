package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

// ErrClosed reports speak attempts after the speaker was shut down.
var ErrClosed = errors.New("speaker is closed")

// Config holds synthesizer tuning for the default espeak-ng backend.
type Config struct {
	Command   string
	Voice     string
	RateWPM   int
	Amplitude int
}

// Speaker renders utterances one at a time. An interrupting utterance cancels
// whatever is currently playing, so spoken feedback always tracks the latest
// request rather than a backlog.
type Speaker struct {
	synth  Synthesizer
	logger *slog.Logger
	play   func(ctx context.Context, pcm []int16, rate int, position float64) error

	playMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	closed  atomic.Bool
}

// NewSpeaker builds a speaker over the espeak-ng synthesizer.
func NewSpeaker(cfg Config, logger *slog.Logger) *Speaker {
	return &Speaker{
		synth: EspeakSynthesizer{
			Command:   cfg.Command,
			Voice:     cfg.Voice,
			RateWPM:   cfg.RateWPM,
			Amplitude: cfg.Amplitude,
		},
		logger: logger,
		play:   playPanned,
	}
}

// Speak synthesizes and plays one utterance. position is the stereo position
// in [-1,1], pitchOffset in [-10,10]. With interrupt set, the in-flight
// utterance is cancelled first; otherwise the call waits its turn.
func (s *Speaker) Speak(ctx context.Context, text string, position float64, pitchOffset int, interrupt bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if interrupt {
		s.Stop()
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	utterCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setCancel(cancel)
	defer s.clearCancel()

	pcm, rate, err := s.synth.Synthesize(utterCtx, text, pitchOffset)
	if err != nil {
		if utterCtx.Err() != nil {
			return nil
		}
		return fmt.Errorf("synthesize utterance: %w", err)
	}

	if err := s.play(utterCtx, pcm, rate, position); err != nil {
		if utterCtx.Err() != nil {
			return nil
		}
		return fmt.Errorf("play utterance: %w", err)
	}
	return nil
}

// Stop cancels the in-flight utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close stops playback and rejects further utterances. Safe to call twice.
func (s *Speaker) Close() error {
	s.closed.Store(true)
	s.Stop()
	return nil
}

func (s *Speaker) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *Speaker) clearCancel() {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
}

// playPanned plays mono PCM as a panned stereo stream on the default output.
func playPanned(ctx context.Context, pcm []int16, rate int, position float64) error {
	if len(pcm) == 0 || rate <= 0 {
		return nil
	}

	left, right := stereoGains(position)

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
		if ctx.Err() != nil || cursor >= len(pcm) {
			return 0, pulse.EndOfData
		}

		n := 0
		for n+1 < len(buf) && cursor < len(pcm) {
			sample := float64(pcm[cursor])
			buf[n] = int16(math.Round(sample * left))
			buf[n+1] = int16(math.Round(sample * right))
			n += 2
			cursor++
		}
		if cursor >= len(pcm) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(rate),
		pulse.PlaybackLatency(0.04),
		pulse.PlaybackMediaName("veil speech"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play speech stream: %w", err)
	}
	return nil
}

// stereoGains maps a [-1,1] stereo position to equal-power channel gains.
func stereoGains(position float64) (left, right float64) {
	if position < -1 {
		position = -1
	}
	if position > 1 {
		position = 1
	}
	p := (position + 1) / 2
	return math.Cos(p * math.Pi / 2), math.Sin(p * math.Pi / 2)
}
