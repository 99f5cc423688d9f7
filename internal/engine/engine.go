// Package engine composes the navigation model with its ports: hotkey
// bindings, audio feedback, launcher directories, the widget registry, and
// the status poller. All navigation state lives behind one timed lock so
// hotkey callbacks, watcher events, and IPC queries never interleave.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/awrona/veil/internal/config"
	"github.com/awrona/veil/internal/cue"
	"github.com/awrona/veil/internal/directory"
	"github.com/awrona/veil/internal/feedback"
	"github.com/awrona/veil/internal/hotkey"
	"github.com/awrona/veil/internal/nav"
	"github.com/awrona/veil/internal/status"
	"github.com/awrona/veil/internal/widget"
)

// lockTimeout bounds how long an input waits for navigation state. An input
// arriving while a previous operation hangs is dropped, not queued.
const lockTimeout = time.Second

// Rebinder swaps the active global hotkey generation.
type Rebinder interface {
	Replace(bindings map[hotkey.Chord]func()) <-chan error
	Close() error
}

// AudioPort is the feedback surface the engine drives.
type AudioPort interface {
	feedback.Port
	SetOptions(feedback.Options)
}

// StatusPoller feeds the Status Bar category.
type StatusPoller interface {
	Start(onUpdate func())
	Stop()
	Snapshot() []status.Entry
}

// WidgetCatalog lists the available widgets and tracks applet changes.
type WidgetCatalog interface {
	Entries() []widget.Entry
	Rescan()
	SetVerbose(bool)
	Watch(onChange func()) error
	Close() error
}

// Launchers lists application and game entries.
type Launchers interface {
	List(kind directory.Kind) ([]directory.Entry, error)
}

// Deps wires the engine's collaborators.
type Deps struct {
	Store     *config.Store
	Chords    config.Chords
	Audio     AudioPort
	Bindings  Rebinder
	Poller    StatusPoller
	Widgets   WidgetCatalog
	Launchers Launchers
	Logger    *slog.Logger
}

// Engine is the running navigation service. Public methods are safe for
// concurrent use.
type Engine struct {
	store     *config.Store
	chords    config.Chords
	audio     AudioPort
	bindings  Rebinder
	poller    StatusPoller
	widgets   WidgetCatalog
	launchers Launchers
	logger    *slog.Logger

	lock     chan struct{}
	lockWait time.Duration
	model    *nav.Model

	active  atomic.Bool
	stopped atomic.Bool
	onMode  func(active bool)

	// queued mode notifications; touched only while holding lock
	pendingNotify []func()
}

// New builds the engine around an empty navigation model.
func New(d Deps) *Engine {
	e := &Engine{
		store:     d.Store,
		chords:    d.Chords,
		audio:     d.Audio,
		bindings:  d.Bindings,
		poller:    d.Poller,
		widgets:   d.Widgets,
		launchers: d.Launchers,
		logger:    d.Logger,
		lock:      make(chan struct{}, 1),
		lockWait:  lockTimeout,
	}
	e.model = nav.New(e.navOptions())
	return e
}

// OnModeChanged registers a callback fired when navigation turns on or off.
// Register before Start. The callback runs after the navigation lock is
// released, so it may call back into the engine.
func (e *Engine) OnModeChanged(fn func(active bool)) { e.onMode = fn }

// Start binds the minimal hotkey generation and begins status polling and
// applet watching. Navigation stays off until toggled on.
func (e *Engine) Start() error {
	if err := <-e.bindings.Replace(e.minimalBindings()); err != nil {
		return fmt.Errorf("bind global hotkeys: %w", err)
	}
	e.poller.Start(e.onStatusUpdate)
	if err := e.widgets.Watch(e.onAppletsChanged); err != nil {
		e.logger.Warn("applet watch unavailable", "error", err.Error())
	}
	return nil
}

// Stop tears the engine down. Idempotent; safe in any order relative to
// in-flight hotkey callbacks, which drop once the lock is gone stale.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.guarded("stop", func() {
		e.model.ForceExitWidget()
		e.setActive(false)
	})
	e.poller.Stop()
	if err := e.widgets.Close(); err != nil {
		e.logger.Warn("widget registry close failed", "error", err.Error())
	}
	if err := e.bindings.Close(); err != nil {
		e.logger.Warn("hotkey teardown failed", "error", err.Error())
	}
	if err := e.audio.Close(); err != nil {
		e.logger.Warn("audio teardown failed", "error", err.Error())
	}
}

// IsActive reports whether navigation mode is on.
func (e *Engine) IsActive() bool { return e.active.Load() }

// Toggle flips navigation mode on or off.
func (e *Engine) Toggle() { e.guarded("toggle", e.toggleLocked) }

// Status reports the activity flag and current cursor for IPC queries.
func (e *Engine) Status() (bool, nav.State) {
	var st nav.State
	e.guarded("status", func() { st = e.model.Snapshot() })
	return e.active.Load(), st
}

func (e *Engine) toggleLocked() {
	if e.active.Load() {
		e.deactivateLocked()
		return
	}
	e.activateLocked()
}

func (e *Engine) activateLocked() {
	e.widgets.Rescan()
	e.model.SetOptions(e.navOptions())
	e.model.SetCategories(e.buildCategories())
	e.replaceBindings(e.fullBindings())
	e.setActive(true)

	e.audio.PlayCue(cue.Startup, nil)
	text := "Navigation on"
	if announce := e.model.Announce(); announce.Text != "" {
		text = text + ". " + announce.Text
	}
	e.audio.Speak(text, 0, 0, true)
	e.logger.Info("navigation activated")
}

func (e *Engine) deactivateLocked() {
	e.model.ForceExitWidget()
	e.replaceBindings(e.minimalBindings())
	e.setActive(false)
	e.audio.Speak("Navigation off", 0, 0, true)
	e.logger.Info("navigation deactivated")
}

// setActive flips the mode flag and queues the notification; guarded fires
// it once the lock is released.
func (e *Engine) setActive(active bool) {
	if e.active.Swap(active) == active {
		return
	}
	if fn := e.onMode; fn != nil {
		e.pendingNotify = append(e.pendingNotify, func() { fn(active) })
	}
}

// replaceBindings queues a generation swap; the dispatcher keeps the old
// generation on failure, so only the outcome is logged here.
func (e *Engine) replaceBindings(bindings map[hotkey.Chord]func()) {
	ack := e.bindings.Replace(bindings)
	go func() {
		if err := <-ack; err != nil && !errors.Is(err, hotkey.ErrDispatcherClosed) {
			e.logger.Error("hotkey rebind failed", "error", err.Error())
		}
	}()
}

func (e *Engine) minimalBindings() map[hotkey.Chord]func() {
	return map[hotkey.Chord]func(){
		e.chords.Toggle:   e.Toggle,
		e.chords.Playback: e.playback,
	}
}

func (e *Engine) fullBindings() map[hotkey.Chord]func() {
	return map[hotkey.Chord]func(){
		e.chords.Toggle:   e.Toggle,
		e.chords.Playback: e.playback,
		e.chords.Up:       func() { e.move(nav.Up) },
		e.chords.Down:     func() { e.move(nav.Down) },
		e.chords.Left:     func() { e.move(nav.Left) },
		e.chords.Right:    func() { e.move(nav.Right) },
		e.chords.Activate: e.activate,
		e.chords.Back:     e.back,
	}
}

func (e *Engine) move(d nav.Direction) {
	e.guarded("move "+d.String(), func() {
		e.applyEffect(e.model.Move(d))
	})
}

func (e *Engine) activate() {
	e.guarded("activate", func() {
		e.applyEffect(e.model.Activate())
	})
}

func (e *Engine) back() {
	e.guarded("back", func() {
		e.applyEffect(e.model.Back())
	})
}

// playback launches the configured voice-playback command detached. It
// never touches navigation state, so no lock is taken.
func (e *Engine) playback() {
	argv := e.store.Config().Playback.Argv
	if len(argv) == 0 {
		return
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		e.logger.Error("playback command failed", "error", err.Error())
		e.audio.PlayCue(cue.Error, nil)
		return
	}
	go func() { _ = cmd.Wait() }()
}

// onStatusUpdate refreshes the Status Bar category in place; the cursor
// survives while the entry count is stable.
func (e *Engine) onStatusUpdate() {
	e.guarded("status update", func() {
		if !e.active.Load() {
			return
		}
		e.model.UpdateCategoryElements(categoryStatus, e.statusElements())
	})
}

func (e *Engine) onAppletsChanged() {
	e.guarded("applet rescan", func() {
		if !e.active.Load() {
			return
		}
		e.model.UpdateCategoryElements(categoryWidgets, e.widgetElements())
	})
}

// guarded serializes op against all other navigation state access. Failing
// to acquire the lock within the timeout drops the input; a panic inside op
// is contained to an error cue and a forced return to browsing.
func (e *Engine) guarded(op string, fn func()) {
	select {
	case e.lock <- struct{}{}:
	case <-time.After(e.lockWait):
		e.logger.Warn("navigation lock busy, input dropped", "op", op)
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("navigation operation panicked", "op", op, "panic", fmt.Sprint(r))
				e.model.ForceExitWidget()
				e.audio.PlayCue(cue.Error, nil)
			}
		}()
		fn()
	}()

	notify := e.pendingNotify
	e.pendingNotify = nil
	<-e.lock

	for _, fire := range notify {
		fire()
	}
}

// applyEffect turns one navigation effect into audio output.
func (e *Engine) applyEffect(eff nav.Effect) {
	if eff.Err != nil {
		e.logger.Error("navigation error", "error", eff.Err.Error())
	}
	if eff.Cue != 0 {
		e.audio.PlayCue(eff.Cue, eff.Pan)
	}
	if eff.Text != "" {
		e.audio.Speak(eff.Text, eff.Position, eff.Pitch, eff.Interrupt)
	}
}

func (e *Engine) navOptions() nav.Options {
	cfg := e.store.Config()
	return nav.Options{
		AnnounceIndex:     cfg.Navigation.AnnounceIndex,
		AnnounceFirstItem: cfg.Navigation.AnnounceFirstItem,
	}
}

// FeedbackOptions maps the audio settings onto feedback channel toggles.
func FeedbackOptions(cfg config.Config) feedback.Options {
	return feedback.Options{
		SpeechEnabled: cfg.Speech.Enable,
		SoundEnabled:  cfg.Sound.Enable,
		StereoSpeech:  cfg.Speech.Stereo,
		StereoSound:   cfg.Sound.Stereo,
	}
}

// launchTimeout bounds the fork of a launcher command, not its runtime.
const launchTimeout = 5 * time.Second

func openEntry(entry directory.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), launchTimeout)
	defer cancel()
	return entry.Open(ctx)
}
