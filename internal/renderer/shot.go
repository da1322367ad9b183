package renderer

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/cinereel/internal/analyzer"
	"github.com/ivlev/cinereel/internal/config"
)

type ShotOptions struct {
	NormalizeOptions
	Mode config.CameraMode
	Pan  config.PanDirection
	// Focus picks the pan diagonal when Pan is auto. Nil means bottom-right.
	Focus analyzer.Detector
}

// Shot is a scene prepared for rendering: a normalized canvas and a
// resolved camera path. It is immutable and safe for concurrent use.
type Shot struct {
	Scene  int
	Frames int
	Mode   config.CameraMode
	Path   PathOptions

	canvas *image.RGBA
	interp draw.Interpolator
	width  int
	height int
}

// NewShot normalizes a scene image and resolves its camera motion.
func NewShot(scene int, img image.Image, frames int, opts ShotOptions) (*Shot, error) {
	canvas, err := Normalize(scene, img, opts.NormalizeOptions)
	if err != nil {
		return nil, err
	}

	mode := ResolveMode(opts.Mode, scene)
	path := PathOptions{ZoomEnd: opts.ZoomEnd, PanX: 1, PanY: 1}
	if mode == config.CameraZoomPan {
		if dx, dy, ok := opts.Pan.Vector(); ok {
			path.PanX, path.PanY = dx, dy
		} else if opts.Focus != nil {
			dx, dy, err := analyzer.Focus(opts.Focus, canvas)
			if err != nil {
				return nil, &ImageError{Scene: scene, Reason: "focus: " + err.Error()}
			}
			path.PanX, path.PanY = dx, dy
		}
	}

	return &Shot{
		Scene:  scene,
		Frames: frames,
		Mode:   mode,
		Path:   path,
		canvas: canvas,
		interp: Interpolator(opts.Resampler),
		width:  opts.Width,
		height: opts.Height,
	}, nil
}

// Crop returns the camera window for the local frame index.
func (s *Shot) Crop(local int) CropRect {
	b := s.canvas.Bounds()
	return CameraPath(float64(b.Dx()), float64(b.Dy()), local, s.Frames, s.Mode, s.Path)
}

// RenderFrame draws local frame of the shot into dst, which must be an
// output-sized buffer.
func (s *Shot) RenderFrame(dst *image.RGBA, local int) {
	c := s.Crop(local)
	sx := float64(s.width) / c.W
	sy := float64(s.height) / c.H

	// source -> destination
	m := f64.Aff3{
		sx, 0, -c.X * sx,
		0, sy, -c.Y * sy,
	}
	s.interp.Transform(dst, m, s.canvas, s.canvas.Bounds(), draw.Src, nil)
}

// LastFrame is the local index the outgoing side of a transition freezes on.
func (s *Shot) LastFrame() int {
	return s.Frames - 1
}
