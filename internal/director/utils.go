package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GenerateManifestPath creates a timestamped manifest filename inside dir
func GenerateManifestPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("reel_%s.yaml", timestamp))
}

// FindLatestManifest finds the most recent manifest file in dir
func FindLatestManifest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var manifests []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		manifests = append(manifests, candidate{filepath.Join(dir, name), info.ModTime()})
	}

	if len(manifests) == 0 {
		return "", fmt.Errorf("no manifest files found in %s", dir)
	}

	// Newest first
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].mod.After(manifests[j].mod)
	})

	return manifests[0].path, nil
}
