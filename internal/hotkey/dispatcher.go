package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrDispatcherClosed reports rebind attempts after Close.
	ErrDispatcherClosed = errors.New("hotkey dispatcher is closed")
	// ErrListenerNotReady reports a new generation that never confirmed
	// interception within the ready timeout.
	ErrListenerNotReady = errors.New("hotkey listener did not become ready")
)

// Dispatcher owns the single active generation of chord bindings. Replace
// requests are asynchronous relative to the caller but serialized relative to
// each other through one worker goroutine. A new generation's listener is
// confirmed running before the previous generation is released, so rebinds
// triggered from inside a hotkey callback never leave a window with no
// active hotkeys.
type Dispatcher struct {
	hook         Hook
	logger       *slog.Logger
	readyTimeout time.Duration

	requests  chan replaceRequest
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type replaceRequest struct {
	bindings map[Chord]func()
	ack      chan error
}

type generation struct {
	listener Listener
	stopOnce sync.Once
}

func (g *generation) stop() {
	g.stopOnce.Do(func() { _ = g.listener.Close() })
}

// NewDispatcher starts the rebind worker. Close must be called to release the
// active generation.
func NewDispatcher(hook Hook, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		hook:         hook,
		logger:       logger,
		readyTimeout: time.Second,
		requests:     make(chan replaceRequest, 8),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go d.run()
	return d
}

// Replace queues an atomic swap to a new binding generation and returns
// immediately. The returned channel yields the outcome once the swap has been
// attempted; callers may ignore it. On failure the previous generation stays
// active.
func (d *Dispatcher) Replace(bindings map[Chord]func()) <-chan error {
	ack := make(chan error, 1)

	cloned := make(map[Chord]func(), len(bindings))
	for chord, action := range bindings {
		cloned[chord] = action
	}

	select {
	case <-d.quit:
		ack <- ErrDispatcherClosed
		return ack
	default:
	}

	select {
	case d.requests <- replaceRequest{bindings: cloned, ack: ack}:
	case <-d.quit:
		ack <- ErrDispatcherClosed
	}
	return ack
}

// Close tears down the active generation and stops the worker.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() { close(d.quit) })
	<-d.done
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)

	var current *generation
	for {
		select {
		case <-d.quit:
			if current != nil {
				current.stop()
			}
			for {
				select {
				case req := <-d.requests:
					req.ack <- ErrDispatcherClosed
				default:
					return
				}
			}
		case req := <-d.requests:
			next, err := d.startGeneration(req.bindings)
			if err != nil {
				d.log("hotkey rebind failed, previous generation kept", err)
				req.ack <- err
				continue
			}
			if current != nil {
				current.stop()
			}
			current = next
			req.ack <- nil
		}
	}
}

// startGeneration opens a listener for the binding set and waits for its
// interception confirmation before handing it back.
func (d *Dispatcher) startGeneration(bindings map[Chord]func()) (*generation, error) {
	chords := make([]Chord, 0, len(bindings))
	for chord := range bindings {
		chords = append(chords, chord)
	}
	sortChords(chords)

	listener, err := d.hook.Open(chords)
	if err != nil {
		return nil, fmt.Errorf("open hotkey listener: %w", err)
	}

	select {
	case <-listener.Ready():
	case <-time.After(d.readyTimeout):
		_ = listener.Close()
		return nil, ErrListenerNotReady
	}

	go func() {
		for chord := range listener.Events() {
			action := bindings[chord]
			if action == nil {
				continue
			}
			action()
		}
	}()

	return &generation{listener: listener}, nil
}

func (d *Dispatcher) log(message string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Error(message, "error", err.Error())
}
