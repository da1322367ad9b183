package director

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ivlev/cinereel/internal/config"
)

// ErrInvalidTimeline is returned for any malformed scene or transition
// configuration. It is always detected before pixel work starts.
var ErrInvalidTimeline = errors.New("invalid timeline")

// TimelineError localizes an invalid timeline to a scene. Scene is -1 when
// the problem is not tied to a single scene.
type TimelineError struct {
	Scene  int
	Reason string
}

func (e *TimelineError) Error() string {
	if e.Scene < 0 {
		return fmt.Sprintf("%v: %s", ErrInvalidTimeline, e.Reason)
	}
	return fmt.Sprintf("%v: scene %d: %s", ErrInvalidTimeline, e.Scene, e.Reason)
}

func (e *TimelineError) Unwrap() error { return ErrInvalidTimeline }

// StyleTag is the art style a scene was generated with.
type StyleTag string

const (
	StyleCinematic StyleTag = "cinematic"
	StyleAnime     StyleTag = "anime"
	StyleCartoon   StyleTag = "cartoon"
	StyleRealistic StyleTag = "realistic"
	StyleCyberpunk StyleTag = "cyberpunk"
	StyleFantasy   StyleTag = "fantasy"
	StyleHorror    StyleTag = "horror"
	StyleSciFi     StyleTag = "sci-fi"
)

// DefaultPalette is the color grade a style is usually rendered with.
func (s StyleTag) DefaultPalette() string {
	switch s {
	case StyleAnime, StyleHorror, StyleSciFi:
		return "cool"
	case StyleRealistic:
		return "vintage"
	case StyleCyberpunk:
		return "cyberpunk"
	default:
		return "warm"
	}
}

// Scene is one still image shown for Duration seconds. The image is
// borrowed from the caller and never modified.
type Scene struct {
	Image    image.Image
	Duration float64
	Style    StyleTag
}

type TransitionSpec struct {
	Kind     config.TransitionKind
	Duration float64
}

// Timeline is the read-only input of a render. Style is the record the
// timeline was built from; camera mode and palette are read from it.
type Timeline struct {
	Scenes     []Scene
	Transition TransitionSpec
	FPS        int
	Style      config.Style
}

// NewTimeline binds scenes to a style.
func NewTimeline(scenes []Scene, style config.Style) *Timeline {
	return &Timeline{
		Scenes: scenes,
		Transition: TransitionSpec{
			Kind:     style.TransitionKind,
			Duration: style.TransitionDuration,
		},
		FPS:   style.FPS,
		Style: style,
	}
}

// Validate checks the structural invariants that do not depend on frame
// rounding.
func (t *Timeline) Validate() error {
	if t == nil || len(t.Scenes) == 0 {
		return &TimelineError{Scene: -1, Reason: "no scenes"}
	}
	if t.FPS <= 0 {
		return &TimelineError{Scene: -1, Reason: fmt.Sprintf("frame rate %d must be positive", t.FPS)}
	}
	td := t.Transition.Duration
	if math.IsNaN(td) || math.IsInf(td, 0) || td < 0 {
		return &TimelineError{Scene: -1, Reason: fmt.Sprintf("transition duration %v must be finite and non-negative", td)}
	}
	if td > 0 && len(t.Scenes) > 1 {
		if err := t.Transition.Kind.Valid(); err != nil {
			return &TimelineError{Scene: -1, Reason: err.Error()}
		}
	}
	for i, s := range t.Scenes {
		if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration <= 0 {
			return &TimelineError{Scene: i, Reason: fmt.Sprintf("duration %v must be finite and positive", s.Duration)}
		}
		if s.Duration <= td {
			return &TimelineError{Scene: i, Reason: fmt.Sprintf("duration %.3fs must exceed transition duration %.3fs", s.Duration, td)}
		}
	}
	return nil
}

// DominantStyle returns the most frequent style tag, ties going to the tag
// seen first.
func (t *Timeline) DominantStyle() StyleTag {
	counts := map[StyleTag]int{}
	for _, s := range t.Scenes {
		counts[s.Style]++
	}
	var best StyleTag
	bestN := 0
	for _, s := range t.Scenes {
		if counts[s.Style] > bestN {
			best, bestN = s.Style, counts[s.Style]
		}
	}
	return best
}

// TotalDuration is Σscene + (n-1)·transition, in seconds.
func (t *Timeline) TotalDuration() float64 {
	sum := 0.0
	for _, s := range t.Scenes {
		sum += s.Duration
	}
	if len(t.Scenes) > 1 {
		sum += float64(len(t.Scenes)-1) * t.Transition.Duration
	}
	return sum
}
