package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/skip2/go-qrcode"
)

// PatternSource synthesizes scenes: a colored gradient with a QR code of the
// scene label placed in a corner that rotates from scene to scene. It needs
// no input files and gives the focus detector something to find.
type PatternSource struct {
	Count  int
	Width  int
	Height int
	Label  string
}

func NewPatternSource(count, width, height int, label string) *PatternSource {
	return &PatternSource{Count: count, Width: width, Height: height, Label: label}
}

func (p *PatternSource) PageCount() int {
	return p.Count
}

func (p *PatternSource) GetPageDimensions(index int) (float64, float64, error) {
	if err := checkIndex(index, p.Count); err != nil {
		return 0, 0, err
	}
	return float64(p.Width), float64(p.Height), nil
}

func (p *PatternSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := checkIndex(index, p.Count); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	base := sceneColor(index)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			shade := uint8(64 * (x + y) / (p.Width + p.Height))
			img.SetRGBA(x, y, color.RGBA{
				R: sat(base.R, shade),
				G: sat(base.G, shade),
				B: sat(base.B, shade),
				A: 255,
			})
		}
	}

	q, err := qrcode.New(fmt.Sprintf("%s #%d", p.Label, index+1), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr for scene %d: %w", index, err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White

	size := min(p.Width, p.Height) * 2 / 5
	if size < 21 {
		return img, nil
	}
	code := q.Image(size)

	margin := min(p.Width, p.Height) / 16
	x0, y0 := margin, margin
	if index%4 == 1 || index%4 == 2 {
		x0 = p.Width - margin - size
	}
	if index%4 >= 2 {
		y0 = p.Height - margin - size
	}
	draw.Draw(img, image.Rect(x0, y0, x0+size, y0+size), code, code.Bounds().Min, draw.Src)

	return img, nil
}

func (p *PatternSource) Close() error {
	return nil
}

func sceneColor(i int) color.RGBA {
	palette := []color.RGBA{
		{R: 180, G: 70, B: 50},
		{R: 40, G: 110, B: 170},
		{R: 70, G: 150, B: 80},
		{R: 150, G: 90, B: 160},
		{R: 200, G: 160, B: 60},
	}
	return palette[i%len(palette)]
}

func sat(v, add uint8) uint8 {
	if int(v)+int(add) > 255 {
		return 255
	}
	return v + add
}
