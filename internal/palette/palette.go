// Package palette generates random colour sets for mesh grids.
package palette

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Hue selects the hue family of generated colours.
type Hue int

// Hue families.
const (
	HueRandom Hue = iota
	HueRed
	HueOrange
	HueYellow
	HueGreen
	HueBlue
	HuePurple
	HuePink
	HueMonochrome
)

var hueNames = []string{"random", "red", "orange", "yellow", "green", "blue", "purple", "pink", "monochrome"}

// String returns the lowercase hue name.
func (h Hue) String() string {
	if h < 0 || int(h) >= len(hueNames) {
		return fmt.Sprintf("Hue(%d)", int(h))
	}
	return hueNames[h]
}

// ParseHue parses a hue name as written in config files.
func ParseHue(s string) (Hue, error) {
	for i, name := range hueNames {
		if strings.EqualFold(s, name) {
			return Hue(i), nil
		}
	}
	return HueRandom, fmt.Errorf("unknown hue %q", s)
}

// Luminosity selects the brightness band of generated colours.
type Luminosity int

// Luminosity bands.
const (
	LuminosityRandom Luminosity = iota
	LuminosityBright
	LuminosityLight
	LuminosityDark
)

var luminosityNames = []string{"random", "bright", "light", "dark"}

// String returns the lowercase luminosity name.
func (l Luminosity) String() string {
	if l < 0 || int(l) >= len(luminosityNames) {
		return fmt.Sprintf("Luminosity(%d)", int(l))
	}
	return luminosityNames[l]
}

// ParseLuminosity parses a luminosity name as written in config files.
func ParseLuminosity(s string) (Luminosity, error) {
	for i, name := range luminosityNames {
		if strings.EqualFold(s, name) {
			return Luminosity(i), nil
		}
	}
	return LuminosityRandom, fmt.Errorf("unknown luminosity %q", s)
}

// hueRange is a hue interval in degrees; lo may exceed hi to wrap past 360.
type hueRange struct {
	lo, hi float64
}

var hueRanges = map[Hue]hueRange{
	HueRandom:     {0, 360},
	HueRed:        {334, 18},
	HueOrange:     {18, 46},
	HueYellow:     {46, 62},
	HueGreen:      {62, 178},
	HueBlue:       {178, 257},
	HuePurple:     {257, 282},
	HuePink:       {282, 334},
	HueMonochrome: {0, 0},
}

// Generator produces colours from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	hue        Hue
	luminosity Luminosity
}

// NewGenerator returns a generator with fixed hue and luminosity defaults,
// used by Colors.
func NewGenerator(seed uint64, hue Hue, luminosity Luminosity) *Generator {
	return &Generator{
		rng:        rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
		hue:        hue,
		luminosity: luminosity,
	}
}

// Colors returns count colours using the generator's defaults.
func (g *Generator) Colors(count int) []mesh.Color {
	return g.Generate(g.hue, g.luminosity, count)
}

// Generate returns count opaque colours of the given hue family and
// luminosity band.
func (g *Generator) Generate(hue Hue, luminosity Luminosity, count int) []mesh.Color {
	if count <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]mesh.Color, count)
	for i := range out {
		h := g.pickHue(hue)
		s := g.pickSaturation(hue, luminosity)
		v := g.pickBrightness(hue, luminosity, s)
		out[i] = HSV(h, s, v)
	}
	return out
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) pickHue(hue Hue) float64 {
	r, ok := hueRanges[hue]
	if !ok {
		r = hueRanges[HueRandom]
	}
	if r.lo <= r.hi {
		return g.between(r.lo, r.hi)
	}
	return math.Mod(g.between(r.lo, r.hi+360), 360)
}

func (g *Generator) pickSaturation(hue Hue, luminosity Luminosity) float64 {
	if hue == HueMonochrome {
		return 0
	}
	switch luminosity {
	case LuminosityBright:
		return g.between(0.55, 1)
	case LuminosityDark:
		return g.between(0.7, 1)
	case LuminosityLight:
		return g.between(0.25, 0.55)
	default:
		return g.between(0.3, 1)
	}
}

func (g *Generator) pickBrightness(hue Hue, luminosity Luminosity, saturation float64) float64 {
	// Saturated colours need more brightness to stay readable.
	lo := 0.35 + 0.25*saturation
	if hue == HueMonochrome {
		lo = 0
	}
	switch luminosity {
	case LuminosityDark:
		return g.between(lo*0.5, lo*0.5+0.25)
	case LuminosityLight:
		return g.between((1+lo)/2, 1)
	case LuminosityBright:
		return g.between(math.Max(lo, 0.75), 1)
	default:
		return g.between(lo, 1)
	}
}

// HSV converts hue in degrees, saturation and value in [0, 1] to an opaque colour.
func HSV(h, s, v float64) mesh.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - c

	r, g, b := sector(h, c, x)
	return mesh.RGB(float32(r+m), float32(g+m), float32(b+m)).Clamp()
}

// HSL converts hue in degrees, saturation and lightness in [0, 1] to an opaque colour.
func HSL(h, s, l float64) mesh.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := l - c/2

	r, g, b := sector(h, c, x)
	return mesh.RGB(float32(r+m), float32(g+m), float32(b+m)).Clamp()
}

func sector(h, c, x float64) (r, g, b float64) {
	switch {
	case h < 1.0/6:
		return c, x, 0
	case h < 2.0/6:
		return x, c, 0
	case h < 3.0/6:
		return 0, c, x
	case h < 4.0/6:
		return 0, x, c
	case h < 5.0/6:
		return x, 0, c
	default:
		return c, 0, x
	}
}
