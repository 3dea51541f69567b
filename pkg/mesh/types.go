// Package mesh defines the control-point grid of a mesh gradient and the
// invariants every grid must keep: unique grid coordinates, pinned outer
// boundary and bounded interior perturbation.
package mesh

import (
	"fmt"
	"image/color"
	gomath "math"

	"github.com/Faultbox/meshkit/pkg/math"
)

// Defaults applied to freshly created nodes and grids.
const (
	DefaultTangent            = 2.0
	DefaultPositionMultiplier = 0.6
	MinDimension              = 2
)

// Size is the number of control points along each axis.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Valid reports whether both dimensions are at least MinDimension.
func (s Size) Valid() bool {
	return s.Width >= MinDimension && s.Height >= MinDimension
}

// Count returns the number of nodes in a grid of this size.
func (s Size) Count() int {
	return s.Width * s.Height
}

// String returns the size as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is an integer grid coordinate.
type Point struct {
	X, Y int
}

// Location returns the unperturbed spatial position of the point.
func (p Point) Location() math.Vec2 {
	return math.Vec2{X: float64(p.X), Y: float64(p.Y)}
}

// Color is a straight-alpha RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// White is the colour of freshly created nodes.
var White = Color{1, 1, 1, 1}

// RGB returns an opaque colour.
func RGB(r, g, b float32) Color {
	return Color{r, g, b, 1}
}

// Lerp interpolates between c (t=0) and other (t=1).
func (c Color) Lerp(other Color, t float64) Color {
	return Color{
		R: c.R + (other.R-c.R)*float32(t),
		G: c.G + (other.G-c.G)*float32(t),
		B: c.B + (other.B-c.B)*float32(t),
		A: c.A + (other.A-c.A)*float32(t),
	}
}

// Clamp limits every component to [0, 1].
func (c Color) Clamp() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), clamp01(c.A)}
}

// IsFinite reports whether no component is NaN or infinite.
func (c Color) IsFinite() bool {
	for _, v := range c.Array() {
		f := float64(v)
		if gomath.IsNaN(f) || gomath.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// InRange reports whether every component lies in [0, 1]. NaN is out of range.
func (c Color) InRange() bool {
	for _, v := range c.Array() {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return true
}

// Array returns the components as a fixed array for vertex structs.
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// NRGBA converts to an 8-bit non-premultiplied colour.
func (c Color) NRGBA() color.NRGBA {
	c = c.Clamp()
	return color.NRGBA{
		R: uint8(c.R*255 + 0.5),
		G: uint8(c.G*255 + 0.5),
		B: uint8(c.B*255 + 0.5),
		A: uint8(c.A*255 + 0.5),
	}
}

// FromColor converts a standard color.Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Tangent scales how strongly the surface bends through a node along the
// horizontal (U) and vertical (V) grid axes.
type Tangent struct {
	U, V float32
}

// Valid reports whether both handles are finite and not negative.
func (t Tangent) Valid() bool {
	u, v := float64(t.U), float64(t.V)
	return u >= 0 && v >= 0 && !gomath.IsInf(u, 0) && !gomath.IsInf(v, 0)
}

// Node is a single control point.
type Node struct {
	Point    Point
	Location math.Vec2
	Color    Color
	Tangent  Tangent
}

// NewNode returns an unperturbed white node at p with default tangents.
func NewNode(p Point) Node {
	return Node{
		Point:    p,
		Location: p.Location(),
		Color:    White,
		Tangent:  Tangent{DefaultTangent, DefaultTangent},
	}
}
