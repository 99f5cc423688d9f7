// Package status maintains the cached readouts behind the Status Bar
// category: clock, battery, volume, network, and user-defined exec
// sources, refreshed by one background poller.
package status

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one status readout.
type Source interface {
	// Name is the spoken label, e.g. "Clock".
	Name() string
	// Read produces the current value. It must honor the context
	// deadline; a failure keeps the previous cached value.
	Read(ctx context.Context) (string, error)
}

// Entry is one cached readout.
type Entry struct {
	Name      string
	Text      string
	UpdatedAt time.Time
}

// FuncSource adapts a closure into a Source.
type FuncSource struct {
	name string
	read func(ctx context.Context) (string, error)
}

// NewFuncSource builds a source from a read function.
func NewFuncSource(name string, read func(ctx context.Context) (string, error)) *FuncSource {
	return &FuncSource{name: name, read: read}
}

func (s *FuncSource) Name() string { return s.name }

func (s *FuncSource) Read(ctx context.Context) (string, error) { return s.read(ctx) }

// ClockSource reports the wall-clock time.
type ClockSource struct {
	// Now is replaceable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *ClockSource) Name() string { return "Clock" }

func (s *ClockSource) Read(context.Context) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format("15:04"), nil
}

// ExecSource reads a readout from a shell command's trimmed output.
type ExecSource struct {
	name    string
	command string
}

// NewExecSource builds a source running one shell command per cycle.
func NewExecSource(name, command string) *ExecSource {
	return &ExecSource{name: name, command: command}
}

func (s *ExecSource) Name() string { return s.name }

func (s *ExecSource) Read(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.command)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %q: %w", s.command, err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("%q produced no output", s.command)
	}
	return text, nil
}

type execManifest struct {
	Name string `yaml:"name"`
	Exec string `yaml:"exec"`
}

// LoadExecSources reads user status sources from <dir>/*.yaml manifests
// of the form {name, exec}. Malformed files are skipped; the error list
// reports them for logging.
func LoadExecSources(dir string) ([]Source, []error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	sort.Strings(paths)

	var sources []Source
	var errs []error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		var m execManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		if m.Name == "" || m.Exec == "" {
			errs = append(errs, fmt.Errorf("%s needs both name and exec", path))
			continue
		}
		sources = append(sources, NewExecSource(m.Name, m.Exec))
	}
	return sources, errs
}
