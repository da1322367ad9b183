package config

import (
	"fmt"
	"strings"
)

type TransitionKind string

const (
	TransitionCrossfade TransitionKind = "crossfade"
	TransitionZoomBlur  TransitionKind = "zoom_blur"
	TransitionWipeLeft  TransitionKind = "wipe_left"
	TransitionWipeRight TransitionKind = "wipe_right"
)

func (k TransitionKind) Valid() error {
	switch k {
	case TransitionCrossfade, TransitionZoomBlur, TransitionWipeLeft, TransitionWipeRight:
		return nil
	}
	return fmt.Errorf("unknown transition %q (expected crossfade, zoom_blur, wipe_left, wipe_right)", string(k))
}

type CameraMode string

const (
	CameraNone    CameraMode = "none"
	CameraZoomIn  CameraMode = "zoomIn"
	CameraZoomOut CameraMode = "zoomOut"
	CameraZoomPan CameraMode = "zoomPan"
	// CameraCycle rotates zoomIn, zoomPan and zoomOut by scene index.
	CameraCycle CameraMode = "cycle"
)

func (m CameraMode) Valid() error {
	switch m {
	case CameraNone, CameraZoomIn, CameraZoomOut, CameraZoomPan, CameraCycle:
		return nil
	}
	return fmt.Errorf("unknown camera mode %q (expected none, zoomIn, zoomOut, zoomPan, cycle)", string(m))
}

type PanDirection string

const (
	PanAuto        PanDirection = "auto"
	PanTopLeft     PanDirection = "top-left"
	PanTopRight    PanDirection = "top-right"
	PanBottomLeft  PanDirection = "bottom-left"
	PanBottomRight PanDirection = "bottom-right"
)

func (d PanDirection) Valid() error {
	switch d {
	case PanAuto, PanTopLeft, PanTopRight, PanBottomLeft, PanBottomRight:
		return nil
	}
	return fmt.Errorf("unknown pan direction %q", string(d))
}

// Vector returns the unit diagonal (-1 or +1 per axis) the crop center
// travels along. PanAuto has no fixed vector and reports ok=false.
func (d PanDirection) Vector() (dx, dy float64, ok bool) {
	switch d {
	case PanTopLeft:
		return -1, -1, true
	case PanTopRight:
		return 1, -1, true
	case PanBottomLeft:
		return -1, 1, true
	case PanBottomRight:
		return 1, 1, true
	}
	return 0, 0, false
}

type Resampler string

const (
	ResamplerCatmullRom Resampler = "catmullrom"
	ResamplerBiLinear   Resampler = "bilinear"
	ResamplerApprox     Resampler = "approx"
)

func (r Resampler) Valid() error {
	switch r {
	case ResamplerCatmullRom, ResamplerBiLinear, ResamplerApprox:
		return nil
	}
	return fmt.Errorf("unknown resampler %q (expected catmullrom, bilinear, approx)", string(r))
}

type SinkKind string

const (
	// SinkAuto picks the sink from the output extension.
	SinkAuto   SinkKind = "auto"
	SinkFFmpeg SinkKind = "ffmpeg"
	SinkMJPEG  SinkKind = "mjpeg"
	SinkFrames SinkKind = "frames"
)

func (s SinkKind) Valid() error {
	switch s {
	case SinkAuto, SinkFFmpeg, SinkMJPEG, SinkFrames:
		return nil
	}
	return fmt.Errorf("unknown sink %q (expected auto, ffmpeg, mjpeg, frames)", string(s))
}

// ParseTransition accepts the spellings used by ffmpeg xfade as well.
func ParseTransition(s string) (TransitionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crossfade", "fade", "dissolve":
		return TransitionCrossfade, nil
	case "zoom_blur", "zoomblur", "zoom-blur":
		return TransitionZoomBlur, nil
	case "wipe_left", "wipeleft", "wipe-left":
		return TransitionWipeLeft, nil
	case "wipe_right", "wiperight", "wipe-right":
		return TransitionWipeRight, nil
	}
	k := TransitionKind(s)
	return k, k.Valid()
}
