package effects

import (
	"fmt"
	"sort"

	"github.com/ivlev/cinereel/internal/config"
)

// PaletteAuto defers the palette choice to the dominant style of the reel.
const PaletteAuto = "auto"

// Palette is a named color grade.
type Palette struct {
	Name       string
	Tint       [3]float64 // R, G, B multipliers
	Brightness float64    // added after contrast, in [0,1] units
	Contrast   float64    // around mid-gray; 0 means 1
	Gamma      float64    // exponent on the normalized value; 0 means 1
	Lift       float64    // raises the black level: v*(1-lift)+lift
	Vignette   float64    // darkening at the far corners
}

var builtinPalettes = map[string]Palette{
	"none": {Name: "none", Tint: [3]float64{1, 1, 1}},
	"warm": {
		Name:     "warm",
		Tint:     [3]float64{1.1, 1.05, 0.9},
		Lift:     0.03,
		Vignette: 0.3,
	},
	"cool": {
		Name:     "cool",
		Tint:     [3]float64{0.9, 1.0, 1.2},
		Vignette: 0.3,
	},
	"vintage": {
		Name:     "vintage",
		Tint:     [3]float64{1, 0.95, 1},
		Lift:     0.2,
		Vignette: 0.3,
	},
	"cyberpunk": {
		Name:     "cyberpunk",
		Tint:     [3]float64{1.2, 1, 1.3},
		Gamma:    1.2,
		Vignette: 0.3,
	},
}

// PaletteNames lists the built-in palettes.
func PaletteNames() []string {
	names := make([]string, 0, len(builtinPalettes))
	for n := range builtinPalettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupPalette resolves a palette by name. Custom palettes declared in the
// config shadow built-ins of the same name.
func LookupPalette(name string, custom map[string]config.PaletteConfig) (Palette, error) {
	if pc, ok := custom[name]; ok {
		if pc.Tint == [3]float64{} {
			pc.Tint = [3]float64{1, 1, 1}
		}
		return Palette{
			Name:       name,
			Tint:       pc.Tint,
			Brightness: pc.Brightness,
			Contrast:   pc.Contrast,
			Gamma:      pc.Gamma,
			Lift:       pc.Lift,
			Vignette:   pc.Vignette,
		}, nil
	}
	if name == "" {
		name = "none"
	}
	p, ok := builtinPalettes[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette %q (expected one of %v or auto)", name, PaletteNames())
	}
	return p, nil
}
