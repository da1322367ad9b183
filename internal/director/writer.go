package director

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const ManifestVersion = "1.0"

// WriteManifest writes a manifest to a YAML file
func WriteManifest(m *Manifest, path string) error {
	if m.Version == "" {
		m.Version = ManifestVersion
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadManifest reads a manifest from a YAML file
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Scenes) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, &TimelineError{Scene: -1, Reason: "no scenes"})
	}

	return &m, nil
}
