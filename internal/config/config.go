package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds everything a run needs. Values are layered:
// Default() -> YAML file -> CINEREEL_* environment -> CLI flags.
type Config struct {
	OutputVideo string `yaml:"output" env:"CINEREEL_OUTPUT"`

	Width  int `yaml:"width" env:"CINEREEL_WIDTH"`
	Height int `yaml:"height" env:"CINEREEL_HEIGHT"`
	FPS    int `yaml:"fps" env:"CINEREEL_FPS"`

	SceneDuration  float64        `yaml:"scene_duration" env:"CINEREEL_SCENE_DURATION"`
	TransitionType TransitionKind `yaml:"transition" env:"CINEREEL_TRANSITION"`
	FadeDuration   float64        `yaml:"transition_duration" env:"CINEREEL_TRANSITION_DURATION"`
	FeatherPx      int            `yaml:"feather_px" env:"CINEREEL_FEATHER_PX"`
	BlurZoom       float64        `yaml:"blur_zoom" env:"CINEREEL_BLUR_ZOOM"`

	CameraMode   CameraMode   `yaml:"camera" env:"CINEREEL_CAMERA"`
	ZoomEnd      float64      `yaml:"zoom_end" env:"CINEREEL_ZOOM_END"`
	PanDirection PanDirection `yaml:"pan_direction" env:"CINEREEL_PAN_DIRECTION"`
	Resampler    Resampler    `yaml:"resampler" env:"CINEREEL_RESAMPLER"`
	MaxUpscale   float64      `yaml:"max_upscale" env:"CINEREEL_MAX_UPSCALE"`
	Detector     string       `yaml:"detector" env:"CINEREEL_DETECTOR"`

	Palette  string                   `yaml:"palette" env:"CINEREEL_PALETTE"`
	Palettes map[string]PaletteConfig `yaml:"palettes"`

	Workers      int      `yaml:"workers" env:"CINEREEL_WORKERS"`
	Sink         SinkKind `yaml:"sink" env:"CINEREEL_SINK"`
	VideoEncoder string   `yaml:"video_encoder" env:"CINEREEL_VIDEO_ENCODER"`
	Quality      int      `yaml:"quality" env:"CINEREEL_QUALITY"`
	DPI          int      `yaml:"dpi" env:"CINEREEL_DPI"`
	Preset       string   `yaml:"preset" env:"CINEREEL_PRESET"`

	LogLevel     string `yaml:"log_level" env:"CINEREEL_LOG_LEVEL"`
	LogFormat    string `yaml:"log_format" env:"CINEREEL_LOG_FORMAT"`
	MetricsAddr  string `yaml:"metrics_addr" env:"CINEREEL_METRICS_ADDR"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"CINEREEL_OTLP_ENDPOINT"`
	ShowStats    bool   `yaml:"show_stats" env:"CINEREEL_SHOW_STATS"`
	BuildVersion string `yaml:"-"`
}

// PaletteConfig describes a custom color grade declared in the config file.
type PaletteConfig struct {
	Tint       [3]float64 `yaml:"tint"`
	Brightness float64    `yaml:"brightness"`
	Contrast   float64    `yaml:"contrast"`
	Gamma      float64    `yaml:"gamma"`
	Lift       float64    `yaml:"lift"`
	Vignette   float64    `yaml:"vignette"`
}

// Style is the immutable style record threaded through a render.
type Style struct {
	FPS                int
	TransitionKind     TransitionKind
	TransitionDuration float64
	CameraMode         CameraMode
	Palette            string
}

func Default() *Config {
	return &Config{
		Width:          1280,
		Height:         720,
		FPS:            24,
		SceneDuration:  4.0,
		TransitionType: TransitionCrossfade,
		FadeDuration:   1.0,
		FeatherPx:      3,
		BlurZoom:       0.25,
		CameraMode:     CameraZoomIn,
		ZoomEnd:        0.85,
		PanDirection:   PanBottomRight,
		Resampler:      ResamplerBiLinear,
		Detector:       "contrast",
		Palette:        "warm",
		Sink:           SinkAuto,
		VideoEncoder:   "libx264",
		Quality:        23,
		DPI:            150,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads an optional YAML file on top of the defaults and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Style() Style {
	return Style{
		FPS:                c.FPS,
		TransitionKind:     c.TransitionType,
		TransitionDuration: c.FadeDuration,
		CameraMode:         c.CameraMode,
		Palette:            c.Palette,
	}
}

// ApplyPreset overrides the output size for the named aspect preset.
func (c *Config) ApplyPreset(preset string) error {
	switch preset {
	case "":
		return nil
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "1:1":
		c.Width, c.Height = 1080, 1080
	default:
		return fmt.Errorf("unknown preset %q (expected 16:9, 9:16, 4:5, 1:1)", preset)
	}
	c.Preset = preset
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be positive", c.Width, c.Height))
	} else if c.Width%2 != 0 || c.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be even", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if c.FadeDuration < 0 {
		errs = append(errs, fmt.Errorf("transition duration %.3f must not be negative", c.FadeDuration))
	}
	if c.ZoomEnd <= 0 || c.ZoomEnd > 1 {
		errs = append(errs, fmt.Errorf("zoom end %.3f must be in (0, 1]", c.ZoomEnd))
	}
	if c.FeatherPx < 0 {
		errs = append(errs, fmt.Errorf("feather %d must not be negative", c.FeatherPx))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	for _, v := range []interface{ Valid() error }{c.TransitionType, c.CameraMode, c.PanDirection, c.Resampler, c.Sink} {
		if err := v.Valid(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
