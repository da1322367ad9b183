package analyzer

import (
	"fmt"
	"image"
)

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "edges", "":
		return NewContrastDetector(), nil
	case "none":
		return noneDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

// noneDetector never finds anything, so Focus falls back to its default.
type noneDetector struct{}

func (noneDetector) Detect(img image.Image) ([]Region, error) { return nil, nil }
