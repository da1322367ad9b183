package effects

import (
	"image"
	"math"
)

// ZoomBlur pushes into the outgoing frame while it blurs radially, then
// pulls the incoming frame out of the same blur.
//
// At factor f, a is zoomed by 1+f·Zoom and b by 1+(1-f)·Zoom. Each side is
// averaged over Taps samples along the ray from the frame center; the ray
// length grows with that side's zoom, so f=0 is exactly a and f=1 exactly b.
type ZoomBlur struct {
	Zoom float64
	Taps int
}

func (z *ZoomBlur) Blend(dst, a, b *image.RGBA, factor float64) {
	f := clamp01(factor)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	accA := z.radial(a, f, w, h)
	accB := z.radial(b, 1-f, w, h)

	n := float64(z.taps())
	for y := 0; y < h; y++ {
		po := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		for i := 0; i < 4*w; i++ {
			k := y*4*w + i
			va := float64(accA[k]) / n
			vb := float64(accB[k]) / n
			dst.Pix[po+i] = uint8(math.Round(clamp255(va*(1-f) + vb*f)))
		}
	}
}

func (z *ZoomBlur) taps() int {
	if z.Taps <= 0 {
		return 1
	}
	return z.Taps
}

// radial returns per-channel sums over the blur taps of src zoomed by
// 1+s·Zoom, with nearest-pixel sampling.
func (z *ZoomBlur) radial(src *image.RGBA, s float64, w, h int) []uint32 {
	acc := make([]uint32, 4*w*h)
	taps := z.taps()
	base := 1 + s*z.Zoom

	// the zoom is separable, so each tap maps columns and rows independently
	xs := make([]int, w)
	ys := make([]int, h)
	for k := 0; k < taps; k++ {
		scale := base
		if taps > 1 {
			scale *= 1 + s*z.Zoom*float64(k)/float64(taps-1)
		}
		sampleAxis(xs, w, scale)
		sampleAxis(ys, h, scale)

		for y := 0; y < h; y++ {
			row := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+ys[y])
			out := y * 4 * w
			for x := 0; x < w; x++ {
				p := row + 4*xs[x]
				o := out + 4*x
				acc[o] += uint32(src.Pix[p])
				acc[o+1] += uint32(src.Pix[p+1])
				acc[o+2] += uint32(src.Pix[p+2])
				acc[o+3] += uint32(src.Pix[p+3])
			}
		}
	}
	return acc
}

// sampleAxis fills idx with the source coordinate of each destination pixel
// center after zooming by scale about the axis midpoint.
func sampleAxis(idx []int, size int, scale float64) {
	c := float64(size) / 2
	for i := range idx {
		v := int(math.Floor(c + (float64(i)+0.5-c)/scale))
		idx[i] = min(max(v, 0), size-1)
	}
}

func clamp255(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}
