package director

import (
	"path/filepath"

	"github.com/ivlev/cinereel/internal/config"
)

// Manifest is the YAML description of a reel: ordered scene images with
// their durations and an optional style override.
type Manifest struct {
	Version string          `yaml:"version"`
	Style   *ManifestStyle  `yaml:"style,omitempty"`
	Scenes  []ManifestScene `yaml:"scenes"`
}

// ManifestStyle overrides config values for a single reel. Zero values keep
// the config setting.
type ManifestStyle struct {
	FPS                int      `yaml:"fps,omitempty"`
	Transition         string   `yaml:"transition,omitempty"`
	TransitionDuration *float64 `yaml:"transition_duration,omitempty"` // 0 turns transitions off
	Camera             string   `yaml:"camera,omitempty"`
	Palette            string   `yaml:"palette,omitempty"`
}

type ManifestScene struct {
	Input    string   `yaml:"input"`
	Duration *float64 `yaml:"duration,omitempty"` // seconds, omitted = config scene duration
	Style    StyleTag `yaml:"style,omitempty"`
}

// Apply merges the manifest style into cfg.
func (m *Manifest) Apply(cfg *config.Config) error {
	if m.Style == nil {
		return nil
	}
	s := m.Style
	if s.FPS > 0 {
		cfg.FPS = s.FPS
	}
	if s.Transition != "" {
		kind, err := config.ParseTransition(s.Transition)
		if err != nil {
			return err
		}
		cfg.TransitionType = kind
	}
	if s.TransitionDuration != nil {
		cfg.FadeDuration = *s.TransitionDuration
	}
	if s.Camera != "" {
		cfg.CameraMode = config.CameraMode(s.Camera)
	}
	if s.Palette != "" {
		cfg.Palette = s.Palette
	}
	return nil
}

// ResolveInputs makes relative scene inputs relative to the manifest's
// directory.
func (m *Manifest) ResolveInputs(manifestPath string) {
	base := filepath.Dir(manifestPath)
	for i := range m.Scenes {
		if m.Scenes[i].Input != "" && !filepath.IsAbs(m.Scenes[i].Input) {
			m.Scenes[i].Input = filepath.Join(base, m.Scenes[i].Input)
		}
	}
}

// Durations lists the scene durations, using def where a scene omits one.
// Explicit values are kept as written, so BuildPlan can reject bad ones.
func (m *Manifest) Durations(def float64) []float64 {
	out := make([]float64, len(m.Scenes))
	for i, s := range m.Scenes {
		out[i] = def
		if s.Duration != nil {
			out[i] = *s.Duration
		}
	}
	return out
}

// Seconds returns a pointer to v for the optional manifest fields.
func Seconds(v float64) *float64 { return &v }
