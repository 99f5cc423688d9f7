// Package feedback is the audio side-effect port for navigation: speech plus
// cue sounds, dispatched fire-and-forget so a slow or hung audio backend can
// never stall a hotkey callback.
package feedback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awrona/veil/internal/cue"
)

// Port is the engine-facing audio feedback contract.
type Port interface {
	// Speak voices text at a stereo position in [-1,1] with a pitch offset
	// in [-10,10]. With interrupt set, it replaces the current utterance.
	Speak(text string, position float64, pitchOffset int, interrupt bool)
	// PlayCue emits a short event sound; pan is a [0,1] list position or nil
	// for centered playback.
	PlayCue(kind cue.Kind, pan *float64)
	Close() error
}

// SpeechBackend is the subset of speech.Speaker feedback depends on.
type SpeechBackend interface {
	Speak(ctx context.Context, text string, position float64, pitchOffset int, interrupt bool) error
	Close() error
}

// CueBackend is the subset of cue.Player feedback depends on.
type CueBackend interface {
	Play(kind cue.Kind, pan *float64) error
}

// Options disable individual channels without rewiring the port.
type Options struct {
	SpeechEnabled bool
	SoundEnabled  bool
	StereoSpeech  bool
	StereoSound   bool
}

// Feedback dispatches audio asynchronously and swallows backend failures into
// the log; navigation state never depends on audio success.
type Feedback struct {
	speech SpeechBackend
	cues   CueBackend
	logger *slog.Logger

	mu   sync.Mutex
	opts Options

	closed atomic.Bool
	wg     sync.WaitGroup
}

const speakTimeout = 30 * time.Second

// New builds the feedback port. Either backend may be nil, which mutes that
// channel.
func New(speech SpeechBackend, cues CueBackend, opts Options, logger *slog.Logger) *Feedback {
	return &Feedback{speech: speech, cues: cues, opts: opts, logger: logger}
}

// SetOptions swaps the channel toggles at runtime.
func (f *Feedback) SetOptions(opts Options) {
	f.mu.Lock()
	f.opts = opts
	f.mu.Unlock()
}

func (f *Feedback) options() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

// Speak voices text on a short-lived worker goroutine.
func (f *Feedback) Speak(text string, position float64, pitchOffset int, interrupt bool) {
	opts := f.options()
	if f.closed.Load() || f.speech == nil || !opts.SpeechEnabled || text == "" {
		return
	}
	if !opts.StereoSpeech {
		position = 0
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		if err := f.speech.Speak(ctx, text, position, pitchOffset, interrupt); err != nil {
			f.log("speech dispatch failed", err)
		}
	}()
}

// PlayCue emits one cue sound on a short-lived worker goroutine.
func (f *Feedback) PlayCue(kind cue.Kind, pan *float64) {
	opts := f.options()
	if f.closed.Load() || f.cues == nil || !opts.SoundEnabled {
		return
	}
	if !opts.StereoSound {
		pan = nil
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.cues.Play(kind, pan); err != nil {
			f.log("cue dispatch failed", err)
		}
	}()
}

// Close rejects further dispatch and releases the speech backend. In-flight
// workers are waited for briefly, not indefinitely.
func (f *Feedback) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if f.speech != nil {
		err = f.speech.Close()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		f.log("feedback workers still draining at close", nil)
	}
	return err
}

func (f *Feedback) log(message string, err error) {
	if f.logger == nil {
		return
	}
	if err == nil {
		f.logger.Debug(message)
		return
	}
	f.logger.Debug(message, "error", err.Error())
}
