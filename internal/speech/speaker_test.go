package speech

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	mu      sync.Mutex
	calls   []string
	pitches []int
	block   chan struct{}
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, pitchOffset int) ([]int16, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.pitches = append(f.pitches, pitchOffset)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	return []int16{1, 2, 3}, 22050, nil
}

func newTestSpeaker(synth Synthesizer, play func(context.Context, []int16, int, float64) error) *Speaker {
	return &Speaker{synth: synth, play: play}
}

func TestSpeakPassesPitchAndPosition(t *testing.T) {
	synth := &fakeSynth{}
	var gotPosition float64
	s := newTestSpeaker(synth, func(_ context.Context, pcm []int16, rate int, position float64) error {
		require.Equal(t, []int16{1, 2, 3}, pcm)
		require.Equal(t, 22050, rate)
		gotPosition = position
		return nil
	})

	require.NoError(t, s.Speak(context.Background(), "Games", -0.5, 4, true))
	require.Equal(t, []string{"Games"}, synth.calls)
	require.Equal(t, []int{4}, synth.pitches)
	require.Equal(t, -0.5, gotPosition)
}

func TestSpeakEmptyTextIsNoop(t *testing.T) {
	synth := &fakeSynth{}
	s := newTestSpeaker(synth, func(context.Context, []int16, int, float64) error {
		t.Fatal("play should not be called")
		return nil
	})
	require.NoError(t, s.Speak(context.Background(), "   ", 0, 0, true))
	require.Empty(t, synth.calls)
}

func TestSpeakInterruptCancelsInFlightUtterance(t *testing.T) {
	block := make(chan struct{})
	synth := &fakeSynth{block: block}

	firstCancelled := make(chan struct{})
	s := newTestSpeaker(synth, func(context.Context, []int16, int, float64) error { return nil })

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Speak(context.Background(), "first", 0, 0, true)
	}()

	require.Eventually(t, func() bool {
		synth.mu.Lock()
		defer synth.mu.Unlock()
		return len(synth.calls) == 1
	}, time.Second, 5*time.Millisecond)

	synth.mu.Lock()
	synth.block = nil
	synth.mu.Unlock()

	go func() {
		<-firstDone
		close(firstCancelled)
	}()

	require.NoError(t, s.Speak(context.Background(), "second", 0, 0, true))

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("interrupted utterance did not finish")
	}
	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Equal(t, []string{"first", "second"}, synth.calls)
}

func TestSpeakAfterCloseFails(t *testing.T) {
	s := newTestSpeaker(&fakeSynth{}, func(context.Context, []int16, int, float64) error { return nil })
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Speak(context.Background(), "late", 0, 0, false), ErrClosed)
	require.NoError(t, s.Close())
}

func TestStereoGains(t *testing.T) {
	left, right := stereoGains(-1)
	require.InDelta(t, 1, left, 1e-9)
	require.InDelta(t, 0, right, 1e-9)

	left, right = stereoGains(1)
	require.InDelta(t, 0, left, 1e-9)
	require.InDelta(t, 1, right, 1e-9)

	left, right = stereoGains(0)
	require.InDelta(t, math.Sqrt2/2, left, 1e-9)
	require.Equal(t, left, right)

	left, _ = stereoGains(-5)
	require.InDelta(t, 1, left, 1e-9)
}
