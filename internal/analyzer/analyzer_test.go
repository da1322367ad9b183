package analyzer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareOn draws a white square on a black canvas.
func squareOn(w, h int, square image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if image.Pt(x, y).In(square) {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func flat(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func TestContrastDetector(t *testing.T) {
	img := squareOn(200, 200, image.Rect(50, 50, 150, 150))

	regions, err := NewContrastDetector().Detect(img)
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	r := regions[0]
	assert.GreaterOrEqual(t, r.Rect.Dx(), 80)
	assert.GreaterOrEqual(t, r.Rect.Dy(), 80)
	assert.Greater(t, r.Energy, 0.0)
	assert.True(t, r.Rect.In(img.Bounds()))
}

func TestContrastDetectorMapsBackToSource(t *testing.T) {
	// 1000x500 is analyzed at 256x128
	img := squareOn(1000, 500, image.Rect(700, 50, 900, 200))

	regions, err := NewContrastDetector().Detect(img)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	r := regions[0].Rect
	assert.InDelta(t, 700, r.Min.X, 24)
	assert.InDelta(t, 900, r.Max.X, 24)
	assert.InDelta(t, 50, r.Min.Y, 24)
	assert.InDelta(t, 200, r.Max.Y, 24)
}

func TestFocus(t *testing.T) {
	tests := []struct {
		name   string
		img    image.Image
		dx, dy float64
	}{
		{"bottom-left", squareOn(400, 400, image.Rect(40, 260, 140, 360)), -1, 1},
		{"top-right", squareOn(1000, 500, image.Rect(700, 50, 900, 200)), 1, -1},
		{"top-left", squareOn(300, 200, image.Rect(20, 20, 80, 60)), -1, -1},
		{"flat image", flat(64, 64), 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy, err := Focus(NewContrastDetector(), tt.img)
			require.NoError(t, err)
			assert.Equal(t, tt.dx, dx)
			assert.Equal(t, tt.dy, dy)
		})
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"edges", false},
		{"", false},
		{"none", false},
		{"ocr", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, detector)
		})
	}

	none, err := NewDetector("none")
	require.NoError(t, err)
	dx, dy, err := Focus(none, squareOn(100, 100, image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, dx)
	assert.Equal(t, 1.0, dy)
}
