package renderer

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/cinereel/internal/config"
)

// ErrUnsupportedImage is returned when a scene image cannot be brought to
// the output aspect ratio.
var ErrUnsupportedImage = errors.New("unsupported image")

type ImageError struct {
	Scene  int
	Reason string
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%v: scene %d: %s", ErrUnsupportedImage, e.Scene, e.Reason)
}

func (e *ImageError) Unwrap() error { return ErrUnsupportedImage }

// Interpolator maps a resampler name to its x/image/draw implementation.
func Interpolator(r config.Resampler) draw.Interpolator {
	switch r {
	case config.ResamplerCatmullRom:
		return draw.CatmullRom
	case config.ResamplerApprox:
		return draw.ApproxBiLinear
	default:
		return draw.BiLinear
	}
}

// AspectCrop returns the largest centered rectangle of b with the w:h
// aspect ratio.
func AspectCrop(b image.Rectangle, w, h int) image.Rectangle {
	sw, sh := b.Dx(), b.Dy()
	target := float64(w) / float64(h)

	cw, ch := sw, sh
	if float64(sw)/float64(sh) > target {
		cw = int(math.Round(float64(sh) * target))
	} else {
		ch = int(math.Round(float64(sw) / target))
	}

	x := b.Min.X + (sw-cw)/2
	y := b.Min.Y + (sh-ch)/2
	return image.Rect(x, y, x+cw, y+ch)
}

// NormalizeOptions controls how a scene image becomes a working canvas.
type NormalizeOptions struct {
	Width, Height int     // output size
	ZoomEnd       float64 // deepest zoom the camera will reach
	MaxUpscale    float64 // 0 = unlimited
	Resampler     config.Resampler
}

// Normalize center-crops img to the output aspect ratio and resamples it to
// a working canvas. The canvas is large enough that the tightest camera crop
// still covers the output at native resolution, but never larger than the
// crop itself or twice the output.
func Normalize(scene int, img image.Image, opts NormalizeOptions) (*image.RGBA, error) {
	if img == nil {
		return nil, &ImageError{Scene: scene, Reason: "no image"}
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, &ImageError{Scene: scene, Reason: "empty image"}
	}

	crop := AspectCrop(b, opts.Width, opts.Height)
	if crop.Dx() < 2 || crop.Dy() < 2 {
		return nil, &ImageError{Scene: scene, Reason: fmt.Sprintf("%dx%d cannot be cropped to %dx%d", b.Dx(), b.Dy(), opts.Width, opts.Height)}
	}

	upscale := float64(opts.Width) / float64(crop.Dx())
	if opts.MaxUpscale > 0 && upscale > opts.MaxUpscale {
		return nil, &ImageError{Scene: scene, Reason: fmt.Sprintf("needs %.2fx upscale, limit is %.2fx", upscale, opts.MaxUpscale)}
	}

	zoomEnd := opts.ZoomEnd
	if zoomEnd <= 0 || zoomEnd > 1 {
		zoomEnd = 1
	}
	cw := int(math.Ceil(float64(opts.Width) / zoomEnd))
	cw = min(cw, crop.Dx(), 2*opts.Width)
	cw = max(cw, opts.Width)
	ch := int(math.Round(float64(cw) * float64(opts.Height) / float64(opts.Width)))

	canvas := image.NewRGBA(image.Rect(0, 0, cw, ch))
	Interpolator(opts.Resampler).Scale(canvas, canvas.Rect, img, crop, draw.Src, nil)
	return canvas, nil
}
