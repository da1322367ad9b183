package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector implements edge-based region detection using Sobel operator
type ContrastDetector struct {
	AnalysisSize  int     // longest side of the downscaled working copy
	EdgeThreshold float64 // Gradient magnitude threshold
	MinRegionArea float64 // fraction of the working copy a region must cover
	DilateRadius  int
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		AnalysisSize:  256,
		EdgeThreshold: 30.0,
		MinRegionArea: 0.002,
		DilateRadius:  2,
	}
}

// Detect finds regions of interest using edge detection and morphology.
// Work happens on a small grayscale copy; rectangles are mapped back to the
// source coordinates.
func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	gray, scale := d.workingCopy(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	mag := sobel(gray)
	mask := make([]bool, w*h)
	for i, m := range mag {
		mask[i] = m > d.EdgeThreshold
	}
	mask = dilate(mask, w, h, d.DilateRadius)

	minArea := int(d.MinRegionArea * float64(w*h))
	var regions []Region
	visited := make([]bool, w*h)
	for i := range mask {
		if !mask[i] || visited[i] {
			continue
		}
		rect, energy, area := floodFill(mask, mag, visited, w, h, i)
		if area < minArea {
			continue
		}
		regions = append(regions, Region{
			Rect: image.Rect(
				b.Min.X+int(float64(rect.Min.X)*scale),
				b.Min.Y+int(float64(rect.Min.Y)*scale),
				b.Min.X+int(math.Ceil(float64(rect.Max.X)*scale)),
				b.Min.Y+int(math.Ceil(float64(rect.Max.Y)*scale)),
			).Intersect(b),
			Energy: energy,
		})
	}

	return regions, nil
}

// workingCopy returns a grayscale copy whose longest side is at most
// AnalysisSize, and the factor mapping its coordinates back to the source.
func (d *ContrastDetector) workingCopy(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}

	scale := 1.0
	if d.AnalysisSize > 0 && longest > d.AnalysisSize {
		scale = float64(longest) / float64(d.AnalysisSize)
	}
	w := max(1, int(math.Round(float64(b.Dx())/scale)))
	h := max(1, int(math.Round(float64(b.Dy())/scale)))

	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, draw.Src, nil)
	return gray, float64(b.Dx()) / float64(w)
}

// sobel returns the gradient magnitude per pixel; the one-pixel border is zero.
func sobel(gray *image.Gray) []float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	mag := make([]float64, w*h)
	px := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) -
				2*px(x-1, y) + 2*px(x+1, y) -
				px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mag
}

// dilate grows the mask by a square structuring element to connect nearby edges
func dilate(mask []bool, w, h, radius int) []bool {
	if radius <= 0 {
		return mask
	}
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for ny := max(0, y-radius); ny <= min(h-1, y+radius); ny++ {
				for nx := max(0, x-radius); nx <= min(w-1, x+radius); nx++ {
					out[ny*w+nx] = true
				}
			}
		}
	}
	return out
}

// floodFill walks the 4-connected component starting at idx and returns its
// bounds, summed gradient magnitude and pixel count.
func floodFill(mask []bool, mag []float64, visited []bool, w, h, idx int) (image.Rectangle, float64, int) {
	minX, minY := w, h
	maxX, maxY := -1, -1
	var energy float64
	area := 0

	stack := []int{idx}
	visited[idx] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := i%w, i/w
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
		energy += mag[i]
		area++

		for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
			if n < 0 || n >= len(mask) || visited[n] || !mask[n] {
				continue
			}
			// no wrap-around between rows
			if (n == i-1 || n == i+1) && n/w != y {
				continue
			}
			visited[n] = true
			stack = append(stack, n)
		}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), energy, area
}
