// Package directory lists the launchable applications and games behind
// the launcher categories. Entries are plain YAML files owned by the
// user, one per launchable item.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnavailable reports that a directory query failed as a whole; the
// affected category degrades to a placeholder.
var ErrUnavailable = errors.New("launcher directory unavailable")

// Kind selects one launcher directory.
type Kind string

const (
	Applications Kind = "applications"
	Games        Kind = "games"
)

// Entry is one launchable item.
type Entry struct {
	Name    string
	command string
}

// Open launches the entry detached from the caller.
func (e Entry) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command("/bin/sh", "-c", e.command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %q: %w", e.Name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

type entryFile struct {
	Name string `yaml:"name"`
	Exec string `yaml:"exec"`
}

// Directory reads launcher entries from <root>/<kind>/*.yaml.
type Directory struct {
	root   string
	logger *slog.Logger
}

// New builds a directory rooted at the veil data dir.
func New(root string, logger *slog.Logger) *Directory {
	return &Directory{root: root, logger: logger}
}

// List returns the entries of one kind in name order. A missing or
// unreadable directory yields ErrUnavailable; a malformed entry file is
// skipped and logged.
func (d *Directory) List(kind Kind) ([]Entry, error) {
	dir := filepath.Join(d.root, string(kind))
	infos, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, info.Name())
		entry, err := loadEntry(path)
		if err != nil {
			d.log("launcher entry skipped", path, err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func loadEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read entry: %w", err)
	}
	var file entryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Entry{}, fmt.Errorf("parse entry: %w", err)
	}
	if file.Name == "" || file.Exec == "" {
		return Entry{}, fmt.Errorf("entry needs both name and exec")
	}
	return Entry{Name: file.Name, command: file.Exec}, nil
}

func (d *Directory) log(message, path string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(message, "path", path, "error", err.Error())
}
