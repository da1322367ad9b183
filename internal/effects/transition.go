package effects

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/cinereel/internal/config"
)

// Transition composites the frozen outgoing frame a and the incoming frame
// b into dst. factor runs from 0 (all a) to 1 (all b). All three images
// must have the same bounds; dst may not alias a or b.
type Transition interface {
	Blend(dst, a, b *image.RGBA, factor float64)
}

type Options struct {
	FeatherPx int     // soft edge on each side of a wipe boundary
	BlurZoom  float64 // extra zoom reached by zoom_blur at its peak
	BlurTaps  int
}

func DefaultOptions() Options {
	return Options{FeatherPx: 3, BlurZoom: 0.25, BlurTaps: 8}
}

// NewTransition creates a transition based on the specified kind
func NewTransition(kind config.TransitionKind, opts Options) (Transition, error) {
	switch kind {
	case config.TransitionCrossfade:
		return Crossfade{}, nil
	case config.TransitionZoomBlur:
		taps := opts.BlurTaps
		if taps <= 0 {
			taps = DefaultOptions().BlurTaps
		}
		return &ZoomBlur{Zoom: opts.BlurZoom, Taps: taps}, nil
	case config.TransitionWipeLeft:
		return Wipe{Feather: opts.FeatherPx}, nil
	case config.TransitionWipeRight:
		return Wipe{Feather: opts.FeatherPx, FromRight: true}, nil
	default:
		return nil, fmt.Errorf("unknown transition: %s", kind)
	}
}

// Blend is a one-shot helper around NewTransition with default options.
func Blend(dst, a, b *image.RGBA, factor float64, kind config.TransitionKind) error {
	t, err := NewTransition(kind, DefaultOptions())
	if err != nil {
		return err
	}
	t.Blend(dst, a, b, factor)
	return nil
}

// Crossfade mixes every channel linearly.
type Crossfade struct{}

func (Crossfade) Blend(dst, a, b *image.RGBA, factor float64) {
	f := clamp01(factor)
	w := dst.Rect.Dx() * 4
	for y := 0; y < dst.Rect.Dy(); y++ {
		po, pa, pb := rowOffsets(dst, a, b, y)
		for i := 0; i < w; i++ {
			dst.Pix[po+i] = mix(a.Pix[pa+i], b.Pix[pb+i], f)
		}
	}
}

// Wipe reveals b behind a boundary sweeping across the frame. By default b
// grows from the left edge.
type Wipe struct {
	Feather   int
	FromRight bool
}

func (wp Wipe) Blend(dst, a, b *image.RGBA, factor float64) {
	f := clamp01(factor)
	width := dst.Rect.Dx()

	weights := make([]float64, width)
	for x := range weights {
		weights[x] = wp.columnWeight(x, width, f)
	}

	for y := 0; y < dst.Rect.Dy(); y++ {
		po, pa, pb := rowOffsets(dst, a, b, y)
		for x, wb := range weights {
			o := 4 * x
			switch wb {
			case 0:
				copy(dst.Pix[po+o:po+o+4], a.Pix[pa+o:pa+o+4])
			case 1:
				copy(dst.Pix[po+o:po+o+4], b.Pix[pb+o:pb+o+4])
			default:
				for c := 0; c < 4; c++ {
					dst.Pix[po+o+c] = mix(a.Pix[pa+o+c], b.Pix[pb+o+c], wb)
				}
			}
		}
	}
}

// columnWeight is the share of b in column x. The boundary travels from
// one feather width before the first column to one past the last, so it
// sits at f·width at mid-sweep and the endpoints show a single frame.
func (wp Wipe) columnWeight(x, width int, f float64) float64 {
	feather := float64(max(wp.Feather, 0))
	if wp.FromRight {
		f = 1 - f
	}
	boundary := f*(float64(width)+2*feather) - feather
	d := float64(x) + 0.5 - boundary
	if wp.FromRight {
		d = -d
	}
	if wp.Feather <= 0 {
		if d < 0 {
			return 1
		}
		return 0
	}
	return clamp01(0.5 - d/float64(2*wp.Feather))
}

func rowOffsets(dst, a, b *image.RGBA, y int) (int, int, int) {
	return dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y),
		a.PixOffset(a.Rect.Min.X, a.Rect.Min.Y+y),
		b.PixOffset(b.Rect.Min.X, b.Rect.Min.Y+y)
}

func mix(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a)*(1-f) + float64(b)*f))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
