package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/awrona/veil/internal/cue"
)

type recordedSpeak struct {
	text      string
	position  float64
	pitch     int
	interrupt bool
}

type fakeSpeech struct {
	mu     sync.Mutex
	spoken []recordedSpeak
	closed bool
}

func (f *fakeSpeech) Speak(_ context.Context, text string, position float64, pitchOffset int, interrupt bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, recordedSpeak{text: text, position: position, pitch: pitchOffset, interrupt: interrupt})
	return nil
}

func (f *fakeSpeech) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSpeech) snapshot() []recordedSpeak {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedSpeak(nil), f.spoken...)
}

type recordedCue struct {
	kind cue.Kind
	pan  *float64
}

type fakeCues struct {
	mu     sync.Mutex
	played []recordedCue
}

func (f *fakeCues) Play(kind cue.Kind, pan *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, recordedCue{kind: kind, pan: pan})
	return nil
}

func (f *fakeCues) snapshot() []recordedCue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCue(nil), f.played...)
}

func allOn() Options {
	return Options{SpeechEnabled: true, SoundEnabled: true, StereoSpeech: true, StereoSound: true}
}

func TestSpeakDispatchesAsync(t *testing.T) {
	speech := &fakeSpeech{}
	f := New(speech, &fakeCues{}, allOn(), nil)

	f.Speak("Applications", -1, 3, true)
	require.Eventually(t, func() bool { return len(speech.snapshot()) == 1 }, time.Second, time.Millisecond)

	got := speech.snapshot()[0]
	require.Equal(t, "Applications", got.text)
	require.Equal(t, -1.0, got.position)
	require.Equal(t, 3, got.pitch)
	require.True(t, got.interrupt)
}

func TestSpeakDisabledDropsUtterance(t *testing.T) {
	speech := &fakeSpeech{}
	opts := allOn()
	opts.SpeechEnabled = false
	f := New(speech, &fakeCues{}, opts, nil)

	f.Speak("quiet", 0, 0, true)
	require.NoError(t, f.Close())
	require.Empty(t, speech.snapshot())
}

func TestMonoSettingsFlattenSpatialHints(t *testing.T) {
	speech := &fakeSpeech{}
	cues := &fakeCues{}
	opts := allOn()
	opts.StereoSpeech = false
	opts.StereoSound = false
	f := New(speech, cues, opts, nil)

	pan := 0.9
	f.Speak("centered", 1, 0, true)
	f.PlayCue(cue.Focus, &pan)

	require.Eventually(t, func() bool {
		return len(speech.snapshot()) == 1 && len(cues.snapshot()) == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, 0.0, speech.snapshot()[0].position)
	require.Nil(t, cues.snapshot()[0].pan)
}

func TestPlayCueKeepsPanWhenStereoEnabled(t *testing.T) {
	cues := &fakeCues{}
	f := New(&fakeSpeech{}, cues, allOn(), nil)

	pan := 0.25
	f.PlayCue(cue.Boundary, &pan)
	require.Eventually(t, func() bool { return len(cues.snapshot()) == 1 }, time.Second, time.Millisecond)

	got := cues.snapshot()[0]
	require.Equal(t, cue.Boundary, got.kind)
	require.NotNil(t, got.pan)
	require.Equal(t, 0.25, *got.pan)
}

func TestCloseReleasesSpeechAndStopsDispatch(t *testing.T) {
	speech := &fakeSpeech{}
	cues := &fakeCues{}
	f := New(speech, cues, allOn(), nil)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	f.Speak("after close", 0, 0, true)
	f.PlayCue(cue.Focus, nil)
	time.Sleep(10 * time.Millisecond)

	require.Empty(t, speech.snapshot())
	require.Empty(t, cues.snapshot())
	speech.mu.Lock()
	defer speech.mu.Unlock()
	require.True(t, speech.closed)
}
