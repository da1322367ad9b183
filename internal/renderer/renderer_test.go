package renderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/cinereel/internal/analyzer"
	"github.com/ivlev/cinereel/internal/config"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// gradient varies on both axes so any crop change is visible.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	return img
}

func TestCameraPathStaysInsideSource(t *testing.T) {
	modes := []config.CameraMode{config.CameraNone, config.CameraZoomIn, config.CameraZoomOut, config.CameraZoomPan}
	pans := [][2]float64{{1, 1}, {-1, -1}, {1, -1}, {-1, 1}}

	for _, mode := range modes {
		for _, pan := range pans {
			for _, total := range []int{1, 2, 7, 96} {
				for local := 0; local < total; local++ {
					c := CameraPath(1600, 900, local, total, mode, PathOptions{ZoomEnd: 0.85, PanX: pan[0], PanY: pan[1]})
					require.True(t, c.Contains(1600, 900), "mode=%s local=%d/%d crop=%+v", mode, local, total, c)
					require.InDelta(t, 16.0/9.0, c.W/c.H, 1e-9)
				}
			}
		}
	}
}

func TestCameraPathZoomEndpoints(t *testing.T) {
	opts := PathOptions{ZoomEnd: 0.8, PanX: 1, PanY: 1}

	first := CameraPath(1000, 500, 0, 10, config.CameraZoomIn, opts)
	assert.Equal(t, CropRect{W: 1000, H: 500}, first)

	last := CameraPath(1000, 500, 9, 10, config.CameraZoomIn, opts)
	assert.InDelta(t, 800, last.W, 1e-9)
	assert.InDelta(t, 100, last.X, 1e-9)
	assert.InDelta(t, 50, last.Y, 1e-9)

	out := CameraPath(1000, 500, 0, 10, config.CameraZoomOut, opts)
	assert.InDelta(t, 800, out.W, 1e-9)
	assert.Equal(t, CropRect{W: 1000, H: 500}, CameraPath(1000, 500, 9, 10, config.CameraZoomOut, opts))

	// pan finishes in the requested corner
	pan := CameraPath(1000, 500, 9, 10, config.CameraZoomPan, opts)
	assert.InDelta(t, 200, pan.X, 1e-9)
	assert.InDelta(t, 100, pan.Y, 1e-9)

	pan = CameraPath(1000, 500, 9, 10, config.CameraZoomPan, PathOptions{ZoomEnd: 0.8, PanX: -1, PanY: -1})
	assert.InDelta(t, 0, pan.X, 1e-9)
	assert.InDelta(t, 0, pan.Y, 1e-9)
}

func TestCameraPathSingleFrameIsStart(t *testing.T) {
	c := CameraPath(640, 360, 0, 1, config.CameraZoomIn, PathOptions{ZoomEnd: 0.5})
	assert.Equal(t, CropRect{W: 640, H: 360}, c)
}

func TestCameraPathEasing(t *testing.T) {
	assert.Equal(t, 0.0, ease(0))
	assert.Equal(t, 0.5, ease(0.5))
	assert.Equal(t, 1.0, ease(1))

	// motion is slower at the ends than in the middle
	opts := PathOptions{ZoomEnd: 0.5}
	w := func(i int) float64 { return CameraPath(1000, 1000, i, 11, config.CameraZoomIn, opts).W }
	assert.Less(t, w(0)-w(1), w(5)-w(6))
}

func TestResolveModeCycles(t *testing.T) {
	got := []config.CameraMode{}
	for i := 0; i < 4; i++ {
		got = append(got, ResolveMode(config.CameraCycle, i))
	}
	assert.Equal(t, []config.CameraMode{config.CameraZoomIn, config.CameraZoomPan, config.CameraZoomOut, config.CameraZoomIn}, got)
	assert.Equal(t, config.CameraNone, ResolveMode(config.CameraNone, 1))
}

func TestAspectCrop(t *testing.T) {
	assert.Equal(t, image.Rect(0, 50, 400, 275), AspectCrop(image.Rect(0, 0, 400, 325), 16, 9))
	assert.Equal(t, image.Rect(100, 0, 300, 200), AspectCrop(image.Rect(0, 0, 400, 200), 1, 1))
	assert.Equal(t, image.Rect(10, 10, 26, 19), AspectCrop(image.Rect(10, 10, 26, 19), 16, 9))
}

func TestNormalize(t *testing.T) {
	opts := NormalizeOptions{Width: 320, Height: 180, ZoomEnd: 0.8, Resampler: config.ResamplerBiLinear}

	canvas, err := Normalize(0, gradient(1920, 1200), opts)
	require.NoError(t, err)
	assert.Equal(t, 400, canvas.Bounds().Dx())
	assert.Equal(t, 225, canvas.Bounds().Dy())

	// small sources are upscaled only to the output size
	canvas, err = Normalize(0, gradient(200, 200), opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 180), canvas.Bounds())
}

func TestNormalizeRejectsUnsupportedImages(t *testing.T) {
	opts := NormalizeOptions{Width: 320, Height: 180, ZoomEnd: 0.85, MaxUpscale: 4}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty", image.NewRGBA(image.Rect(0, 0, 0, 0))},
		{"sliver", image.NewRGBA(image.Rect(0, 0, 1, 400))},
		{"too small", image.NewRGBA(image.Rect(0, 0, 40, 40))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(3, tt.img, opts)
			require.ErrorIs(t, err, ErrUnsupportedImage)

			var ie *ImageError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, 3, ie.Scene)
		})
	}
}

func TestShotRenderFrame(t *testing.T) {
	opts := ShotOptions{
		NormalizeOptions: NormalizeOptions{Width: 64, Height: 36, ZoomEnd: 0.85, Resampler: config.ResamplerBiLinear},
		Mode:             config.CameraZoomIn,
		Pan:              config.PanBottomRight,
	}

	red := color.RGBA{R: 200, G: 10, B: 10, A: 255}
	shot, err := NewShot(0, solid(160, 90, red), 24, opts)
	require.NoError(t, err)

	dst := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for _, local := range []int{0, 11, 23} {
		shot.RenderFrame(dst, local)
		for i := 0; i < len(dst.Pix); i += 4 {
			require.Equal(t, []uint8{200, 10, 10, 255}, dst.Pix[i:i+4], "local=%d offset=%d", local, i)
		}
	}
	assert.Equal(t, 23, shot.LastFrame())
}

func TestShotRenderFrameIsDeterministic(t *testing.T) {
	opts := ShotOptions{
		NormalizeOptions: NormalizeOptions{Width: 64, Height: 36, ZoomEnd: 0.85, Resampler: config.ResamplerCatmullRom},
		Mode:             config.CameraZoomPan,
		Pan:              config.PanTopLeft,
	}
	shot, err := NewShot(1, gradient(300, 200), 10, opts)
	require.NoError(t, err)

	a := image.NewRGBA(image.Rect(0, 0, 64, 36))
	b := image.NewRGBA(image.Rect(0, 0, 64, 36))
	shot.RenderFrame(a, 5)
	shot.RenderFrame(b, 5)
	assert.Equal(t, a.Pix, b.Pix)

	first := image.NewRGBA(image.Rect(0, 0, 64, 36))
	shot.RenderFrame(first, 0)
	assert.NotEqual(t, first.Pix, a.Pix)
}

func TestNewShotAutoPanUsesFocus(t *testing.T) {
	// bright block in the top-left quadrant
	img := solid(320, 180, color.RGBA{A: 255})
	for y := 20; y < 60; y++ {
		for x := 20; x < 90; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	opts := ShotOptions{
		NormalizeOptions: NormalizeOptions{Width: 160, Height: 90, ZoomEnd: 0.85},
		Mode:             config.CameraCycle,
		Pan:              config.PanAuto,
		Focus:            analyzer.NewContrastDetector(),
	}

	// scene 1 resolves to zoomPan under cycle
	shot, err := NewShot(1, img, 12, opts)
	require.NoError(t, err)
	assert.Equal(t, config.CameraZoomPan, shot.Mode)
	assert.Equal(t, PathOptions{ZoomEnd: 0.85, PanX: -1, PanY: -1}, shot.Path)

	shot, err = NewShot(0, img, 12, opts)
	require.NoError(t, err)
	assert.Equal(t, config.CameraZoomIn, shot.Mode)
	assert.Equal(t, 1.0, shot.Path.PanX)
}
