package analyzer

import "image"

// Region is a connected area of strong edges, in source image coordinates.
type Region struct {
	Rect   image.Rectangle
	Energy float64 // summed gradient magnitude inside the region
}

// Detector finds regions of visual interest in an image.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// Focus returns the diagonal (-1 or +1 per axis) from the image center
// toward the energy-weighted centroid of the detected regions. Images with
// no detectable structure, or with a centroid exactly on an axis, lean to
// the bottom-right.
func Focus(d Detector, img image.Image) (dx, dy float64, err error) {
	regions, err := d.Detect(img)
	if err != nil {
		return 0, 0, err
	}

	b := img.Bounds()
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2

	var sx, sy, total float64
	for _, r := range regions {
		if r.Energy <= 0 {
			continue
		}
		mx := float64(r.Rect.Min.X+r.Rect.Max.X) / 2
		my := float64(r.Rect.Min.Y+r.Rect.Max.Y) / 2
		sx += (mx - cx) * r.Energy
		sy += (my - cy) * r.Energy
		total += r.Energy
	}

	dx, dy = 1, 1
	if total == 0 {
		return dx, dy, nil
	}
	if sx < 0 {
		dx = -1
	}
	if sy < 0 {
		dy = -1
	}
	return dx, dy, nil
}
