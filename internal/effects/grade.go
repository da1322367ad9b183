package effects

import (
	"image"
	"math"
	"sync"
)

// Grader applies a palette to frames. Tone curves are baked into per-channel
// lookup tables; the vignette mask is computed once per frame size. A Grader
// is safe for concurrent use.
type Grader struct {
	palette Palette
	curve   [3][256]float32 // graded value in [0,1] units, not yet clipped
	lut     [3][256]uint8   // clipped curve, used when there is no vignette
	ident   bool

	mu    sync.Mutex
	masks map[image.Point][]float32
}

func NewGrader(p Palette) *Grader {
	g := &Grader{palette: p, masks: make(map[image.Point][]float32)}

	gamma := p.Gamma
	if gamma <= 0 {
		gamma = 1
	}
	contrast := p.Contrast
	if contrast == 0 {
		contrast = 1
	}

	g.ident = p.Vignette == 0
	for c := 0; c < 3; c++ {
		for i := 0; i < 256; i++ {
			v := math.Pow(float64(i)/255, gamma)
			v = (v-0.5)*contrast + 0.5 + p.Brightness
			v = v*(1-p.Lift) + p.Lift
			v *= p.Tint[c]

			g.curve[c][i] = float32(v)
			g.lut[c][i] = toByte(v)
			if g.lut[c][i] != uint8(i) {
				g.ident = false
			}
		}
	}
	return g
}

func (g *Grader) Palette() Palette { return g.palette }

// Grade transforms img in place. Alpha is left untouched.
func (g *Grader) Grade(img *image.RGBA) {
	if g.ident {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	if g.palette.Vignette == 0 {
		for y := 0; y < h; y++ {
			p := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
			for x := 0; x < w; x++ {
				img.Pix[p] = g.lut[0][img.Pix[p]]
				img.Pix[p+1] = g.lut[1][img.Pix[p+1]]
				img.Pix[p+2] = g.lut[2][img.Pix[p+2]]
				p += 4
			}
		}
		return
	}

	mask := g.vignette(w, h)
	for y := 0; y < h; y++ {
		p := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			m := mask[y*w+x]
			img.Pix[p] = toByte(float64(g.curve[0][img.Pix[p]] * m))
			img.Pix[p+1] = toByte(float64(g.curve[1][img.Pix[p+1]] * m))
			img.Pix[p+2] = toByte(float64(g.curve[2][img.Pix[p+2]] * m))
			p += 4
		}
	}
}

// vignette returns the multiplier mask 1 - (d/dmax)·strength, where d is the
// distance to the frame center.
func (g *Grader) vignette(w, h int) []float32 {
	key := image.Pt(w, h)

	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.masks[key]; ok {
		return m
	}

	cx, cy := float64(w/2), float64(h/2)
	dmax := 0.0
	for _, corner := range [][2]float64{{0, 0}, {float64(w - 1), 0}, {0, float64(h - 1)}, {float64(w - 1), float64(h - 1)}} {
		dmax = math.Max(dmax, math.Hypot(corner[0]-cx, corner[1]-cy))
	}
	if dmax == 0 {
		dmax = 1
	}

	m := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			m[y*w+x] = float32(1 - d/dmax*g.palette.Vignette)
		}
	}
	g.masks[key] = m
	return m
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
