package hotkey

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	events chan Chord
	ready  chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newFakeListener(signalReady bool) *fakeListener {
	l := &fakeListener{
		events: make(chan Chord, 8),
		ready:  make(chan struct{}),
	}
	if signalReady {
		close(l.ready)
	}
	return l
}

func (l *fakeListener) Events() <-chan Chord { return l.events }

func (l *fakeListener) Ready() <-chan struct{} { return l.ready }

func (l *fakeListener) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.events)
	})
	return nil
}

func (l *fakeListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakeHook struct {
	mu        sync.Mutex
	listeners []*fakeListener
	chords    [][]Chord
	failNext  error
	stallNext bool
}

func (h *fakeHook) Open(chords []Chord) (Listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failNext != nil {
		err := h.failNext
		h.failNext = nil
		return nil, err
	}
	stall := h.stallNext
	h.stallNext = false
	l := newFakeListener(!stall)
	h.listeners = append(h.listeners, l)
	h.chords = append(h.chords, append([]Chord(nil), chords...))
	return l, nil
}

func (h *fakeHook) listener(i int) *fakeListener {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listeners[i]
}

func (h *fakeHook) opened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func TestDispatcherReplaceSwapsGenerations(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	defer d.Close()

	first := map[Chord]func(){{Key: "up"}: func() {}}
	require.NoError(t, <-d.Replace(first))
	require.Equal(t, 1, hook.opened())
	require.False(t, hook.listener(0).isClosed())

	second := map[Chord]func(){{Key: "down"}: func() {}}
	require.NoError(t, <-d.Replace(second))
	require.Equal(t, 2, hook.opened())
	require.True(t, hook.listener(0).isClosed())
	require.False(t, hook.listener(1).isClosed())
}

func TestDispatcherReplaceWithSameBindingsSwapsCleanly(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	defer d.Close()

	bindings := map[Chord]func(){
		{Key: "up"}:   func() {},
		{Key: "down"}: func() {},
	}
	require.NoError(t, <-d.Replace(bindings))
	require.NoError(t, <-d.Replace(bindings))

	require.Equal(t, 2, hook.opened())
	require.True(t, hook.listener(0).isClosed())
	require.False(t, hook.listener(1).isClosed())

	hook.mu.Lock()
	first, second := hook.chords[0], hook.chords[1]
	hook.mu.Unlock()
	require.Equal(t, first, second)
}

func TestDispatcherEventsInvokeBoundActions(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	defer d.Close()

	fired := make(chan string, 4)
	bindings := map[Chord]func(){
		{Mods: ModCtrl, Key: "up"}:   func() { fired <- "up" },
		{Mods: ModCtrl, Key: "down"}: func() { fired <- "down" },
	}
	require.NoError(t, <-d.Replace(bindings))

	l := hook.listener(0)
	l.events <- Chord{Mods: ModCtrl, Key: "down"}
	l.events <- Chord{Mods: ModCtrl, Key: "up"}
	l.events <- Chord{Key: "unbound"}
	l.events <- Chord{Mods: ModCtrl, Key: "down"}

	require.Equal(t, "down", <-fired)
	require.Equal(t, "up", <-fired)
	require.Equal(t, "down", <-fired)
}

func TestDispatcherKeepsPreviousGenerationOnOpenFailure(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	defer d.Close()

	require.NoError(t, <-d.Replace(map[Chord]func(){{Key: "up"}: func() {}}))

	hook.mu.Lock()
	hook.failNext = errors.New("device busy")
	hook.mu.Unlock()

	err := <-d.Replace(map[Chord]func(){{Key: "down"}: func() {}})
	require.ErrorContains(t, err, "device busy")
	require.False(t, hook.listener(0).isClosed())
}

func TestDispatcherReadyTimeoutClosesNewListener(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	d.readyTimeout = 20 * time.Millisecond
	defer d.Close()

	require.NoError(t, <-d.Replace(map[Chord]func(){{Key: "up"}: func() {}}))

	hook.mu.Lock()
	hook.stallNext = true
	hook.mu.Unlock()

	err := <-d.Replace(map[Chord]func(){{Key: "down"}: func() {}})
	require.ErrorIs(t, err, ErrListenerNotReady)
	require.True(t, hook.listener(1).isClosed())
	require.False(t, hook.listener(0).isClosed())
}

func TestDispatcherOpensSortedChords(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)
	defer d.Close()

	bindings := map[Chord]func(){
		{Mods: ModShift, Key: "up"}: func() {},
		{Key: "down"}:               func() {},
		{Mods: ModCtrl, Key: "up"}:  func() {},
	}
	require.NoError(t, <-d.Replace(bindings))

	hook.mu.Lock()
	got := hook.chords[0]
	hook.mu.Unlock()
	want := []Chord{{Key: "down"}, {Mods: ModCtrl, Key: "up"}, {Mods: ModShift, Key: "up"}}
	require.Equal(t, want, got)
}

func TestDispatcherCloseReleasesActiveGeneration(t *testing.T) {
	hook := &fakeHook{}
	d := NewDispatcher(hook, nil)

	require.NoError(t, <-d.Replace(map[Chord]func(){{Key: "up"}: func() {}}))
	require.NoError(t, d.Close())
	require.True(t, hook.listener(0).isClosed())

	err := <-d.Replace(map[Chord]func(){{Key: "down"}: func() {}})
	require.ErrorIs(t, err, ErrDispatcherClosed)
}
