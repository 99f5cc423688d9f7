package status

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	name string

	mu    sync.Mutex
	text  string
	err   error
	reads int
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Read(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.text, s.err
}

func (s *scriptedSource) set(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.err = err
}

func TestPollerFirstCycleIsSynchronous(t *testing.T) {
	clock := &scriptedSource{name: "Clock", text: "10:00"}
	battery := &scriptedSource{name: "Battery", text: "90 percent"}
	p := NewPoller([]Source{clock, battery}, time.Hour, nil)
	p.Start(nil)
	defer p.Stop()

	entries := p.Snapshot()
	require.Len(t, entries, 2)
	require.Equal(t, "Clock", entries[0].Name)
	require.Equal(t, "10:00", entries[0].Text)
	require.Equal(t, "Battery", entries[1].Name)
}

func TestPollerFailureKeepsPreviousValue(t *testing.T) {
	src := &scriptedSource{name: "Volume", text: "40 percent"}
	p := NewPoller([]Source{src}, 10*time.Millisecond, nil)
	p.Start(nil)
	defer p.Stop()

	src.set("", errors.New("pulse gone"))
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.reads >= 3
	}, time.Second, 5*time.Millisecond)

	entries := p.Snapshot()
	require.Len(t, entries, 1)
	require.Equal(t, "40 percent", entries[0].Text)
}

func TestPollerFailedSourceDoesNotBlockOthers(t *testing.T) {
	broken := &scriptedSource{name: "Network", err: errors.New("nm unavailable")}
	clock := &scriptedSource{name: "Clock", text: "10:00"}
	p := NewPoller([]Source{broken, clock}, time.Hour, nil)
	p.Start(nil)
	defer p.Stop()

	entries := p.Snapshot()
	require.Len(t, entries, 1)
	require.Equal(t, "Clock", entries[0].Name)
}

func TestPollerOnUpdateFiresOnChange(t *testing.T) {
	src := &scriptedSource{name: "Clock", text: "10:00"}
	p := NewPoller([]Source{src}, 10*time.Millisecond, nil)

	updates := make(chan struct{}, 16)
	p.Start(func() { updates <- struct{}{} })
	defer p.Stop()

	src.set("10:01", nil)
	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no update after value change")
	}
}

func TestPollerStopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	p := NewPoller(nil, time.Hour, nil)
	p.Stop()
	p.Stop()

	p2 := NewPoller([]Source{&scriptedSource{name: "Clock", text: "1"}}, time.Hour, nil)
	p2.Start(nil)
	p2.Stop()
	p2.Stop()
}

func TestClockSource(t *testing.T) {
	fixed := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	src := &ClockSource{Now: func() time.Time { return fixed }}
	text, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "09:30", text)
}

func TestExecSource(t *testing.T) {
	src := NewExecSource("Greeting", "printf 'hello \nworld\n'")
	text, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello \nworld", text)

	empty := NewExecSource("Empty", "true")
	_, err = empty.Read(context.Background())
	require.ErrorContains(t, err, "no output")

	failing := NewExecSource("Bad", "exit 3")
	_, err = failing.Read(context.Background())
	require.Error(t, err)
}

func TestLoadExecSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b-uptime.yaml", "name: Uptime\nexec: uptime -p\n")
	write("a-kernel.yaml", "name: Kernel\nexec: uname -r\n")
	write("broken.yaml", "name: [\n")
	write("incomplete.yaml", "name: OnlyName\n")

	sources, errs := LoadExecSources(dir)
	require.Len(t, sources, 2)
	require.Equal(t, "Kernel", sources[0].Name(), "manifests load in path order")
	require.Equal(t, "Uptime", sources[1].Name())
	require.Len(t, errs, 2)
}
