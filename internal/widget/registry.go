// Package widget provides the pluggable control surfaces entered as a
// navigation sub-mode: the grid and button primitives, the built-in volume
// and network widgets, and a registry that discovers declarative applets
// from manifest files.
package widget

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/awrona/veil/internal/nav"
)

// Info identifies one available widget.
type Info struct {
	Name string
	Kind string
}

// Entry pairs a widget's identity with its factory.
type Entry struct {
	Info    Info
	Factory nav.WidgetFactory
}

// Registry holds the built-in widgets plus applets discovered under the
// applet directory. One applet failing to load never blocks the rest.
type Registry struct {
	logger *slog.Logger
	dir    string

	mu       sync.Mutex
	verbose  bool
	builtins []Entry
	applets  []Entry

	watcher   *fsnotify.Watcher
	onChange  func()
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRegistry builds a registry scanning dir for applet manifests. The
// initial scan runs immediately.
func NewRegistry(dir string, verbose bool, logger *slog.Logger) *Registry {
	r := &Registry{logger: logger, dir: dir, verbose: verbose, done: make(chan struct{})}
	r.Rescan()
	return r
}

// SetVerbose switches focus-text verbosity for widgets opened afterwards.
func (r *Registry) SetVerbose(verbose bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verbose = verbose
}

// Verbose reports the current focus-text verbosity.
func (r *Registry) Verbose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verbose
}

// RegisterBuiltin adds a compile-time widget ahead of the applet list.
func (r *Registry) RegisterBuiltin(name, kind string, factory nav.WidgetFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins = append(r.builtins, Entry{Info: Info{Name: name, Kind: kind}, Factory: factory})
}

// Entries lists built-ins in registration order followed by applets in
// name order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.builtins)+len(r.applets))
	out = append(out, r.builtins...)
	out = append(out, r.applets...)
	return out
}

// Rescan reloads applet manifests from <dir>/*/applet.yaml. Malformed
// manifests are logged and skipped.
func (r *Registry) Rescan() {
	paths, err := filepath.Glob(filepath.Join(r.dir, "*", "applet.yaml"))
	if err != nil {
		r.log("applet scan failed", "error", err.Error())
		return
	}

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		manifest, err := LoadManifest(path)
		if err != nil {
			r.log("applet skipped", "path", path, "error", err.Error())
			continue
		}
		entries = append(entries, Entry{
			Info:    Info{Name: manifest.Name, Kind: manifest.Kind},
			Factory: r.appletFactory(manifest),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Info.Name < entries[j].Info.Name })

	r.mu.Lock()
	r.applets = entries
	r.mu.Unlock()
}

// appletFactory turns a validated manifest into a widget factory. Cell
// commands start detached so activation never blocks navigation; verbosity
// is read at open time so setting changes apply to the next session.
func (r *Registry) appletFactory(m Manifest) nav.WidgetFactory {
	return func() (nav.Widget, error) {
		if m.Kind == "button" {
			command := m.Exec
			return NewButton(m.Name, func() error { return startCommand(command) }), nil
		}

		rows := make([][]Cell, 0, len(m.Rows))
		for _, row := range m.Rows {
			cells := make([]Cell, 0, len(row))
			for _, mc := range row {
				cell := Cell{Label: mc.Label, Kind: CellKind(mc.Kind)}
				if mc.Exec != "" {
					command := mc.Exec
					cell.Do = func() error { return startCommand(command) }
				}
				cells = append(cells, cell)
			}
			rows = append(rows, cells)
		}
		return NewGrid(rows, r.Verbose(), nil), nil
	}
}

// Watch starts an fsnotify watch on the applet directory and triggers a
// rescan plus the onChange hook after changes settle.
func (r *Registry) Watch(onChange func()) error {
	if _, err := os.Stat(r.dir); err != nil {
		r.log("applet directory not watched", "dir", r.dir, "error", err.Error())
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create applet watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.onChange = onChange
	r.wg.Add(1)
	go r.watchLoop()
	return nil
}

func (r *Registry) watchLoop() {
	defer r.wg.Done()

	var settle *time.Timer
	var settled <-chan time.Time
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if settle == nil {
				settle = time.NewTimer(500 * time.Millisecond)
				settled = settle.C
			} else {
				settle.Reset(500 * time.Millisecond)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log("applet watch error", "error", err.Error())
		case <-settled:
			settle = nil
			settled = nil
			r.Rescan()
			if r.onChange != nil {
				r.onChange()
			}
		}
	}
}

// Close stops the watcher if one is running. Idempotent.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		if r.watcher != nil {
			_ = r.watcher.Close()
		}
		r.wg.Wait()
	})
	return nil
}

func (r *Registry) log(message string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message, args...)
}

// startCommand launches a shell command detached from navigation and
// reaps it in the background.
func startCommand(command string) error {
	cmd := exec.Command("/bin/sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", command, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
