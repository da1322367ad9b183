package renderer

import (
	"math"

	"github.com/ivlev/cinereel/internal/config"
)

// CropRect is the visible window into a normalized source, in source pixels.
// Sub-pixel positions are kept so slow camera moves stay smooth.
type CropRect struct {
	X, Y float64
	W, H float64
}

// PathOptions parameterizes a camera path.
type PathOptions struct {
	ZoomEnd float64 // scale of the crop at the end of a zoom, (0, 1]
	PanX    float64 // -1 or +1, direction of travel for zoomPan
	PanY    float64
}

// ResolveMode turns cycle into a concrete mode for the given scene.
func ResolveMode(mode config.CameraMode, scene int) config.CameraMode {
	if mode != config.CameraCycle {
		return mode
	}
	switch scene % 3 {
	case 0:
		return config.CameraZoomIn
	case 1:
		return config.CameraZoomPan
	default:
		return config.CameraZoomOut
	}
}

// CameraPath returns the crop for frame local of total over a w×h source.
// It is a pure function; the crop always lies inside the source.
func CameraPath(w, h float64, local, total int, mode config.CameraMode, opts PathOptions) CropRect {
	full := CropRect{W: w, H: h}

	t := 0.0
	if total > 1 {
		t = float64(local) / float64(total-1)
	}
	t = ease(clamp(t, 0, 1))

	zoomEnd := opts.ZoomEnd
	if zoomEnd <= 0 || zoomEnd > 1 {
		zoomEnd = 1
	}

	var scale float64
	switch mode {
	case config.CameraZoomIn, config.CameraZoomPan:
		scale = lerp(1, zoomEnd, t)
	case config.CameraZoomOut:
		scale = lerp(zoomEnd, 1, t)
	default:
		return full
	}

	cw, ch := w*scale, h*scale
	cx, cy := w/2, h/2
	if mode == config.CameraZoomPan {
		// центр уходит к углу, пока зум освобождает поля
		cx += opts.PanX * (w - cw) / 2 * t
		cy += opts.PanY * (h - ch) / 2 * t
	}

	return CropRect{
		X: clamp(cx-cw/2, 0, w-cw),
		Y: clamp(cy-ch/2, 0, h-ch),
		W: cw,
		H: ch,
	}
}

// Contains reports whether the crop lies within a w×h source.
func (c CropRect) Contains(w, h float64) bool {
	const eps = 1e-9
	return c.X >= -eps && c.Y >= -eps && c.X+c.W <= w+eps && c.Y+c.H <= h+eps
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ease is the smoothstep curve t²(3-2t)
func ease(t float64) float64 {
	return t * t * (3 - 2*t)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
