package widget

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the applet description read from applet.yaml. Applets are
// declarative: a grid of labeled shell commands or a single button, never
// loaded code.
type Manifest struct {
	Name string           `yaml:"name"`
	Kind string           `yaml:"kind"`
	Exec string           `yaml:"exec,omitempty"`
	Rows [][]ManifestCell `yaml:"rows,omitempty"`
}

// ManifestCell is one grid cell in an applet manifest.
type ManifestCell struct {
	Label string `yaml:"label"`
	Kind  string `yaml:"kind,omitempty"`
	Exec  string `yaml:"exec,omitempty"`
}

// LoadManifest reads and validates one applet.yaml.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest has no name")
	}
	switch m.Kind {
	case "button":
		if m.Exec == "" {
			return fmt.Errorf("button applet %q has no exec command", m.Name)
		}
	case "grid":
		if len(m.Rows) == 0 {
			return fmt.Errorf("grid applet %q has no rows", m.Name)
		}
		for _, row := range m.Rows {
			for _, cell := range row {
				if cell.Label == "" {
					return fmt.Errorf("grid applet %q has a cell with no label", m.Name)
				}
			}
		}
	default:
		return fmt.Errorf("applet %q has unknown kind %q", m.Name, m.Kind)
	}
	return nil
}
