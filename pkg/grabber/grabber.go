// Package grabber maps control points between grid space and a view
// rectangle, and applies interactive drags under the mesh boundary rules.
//
// Grid space spans [0, width-1] x [0, height-1] with y growing upwards.
// Screen space spans [0, view.Width] x [0, view.Height] with y growing
// downwards, so grid y = 0 lies on the bottom edge of the view.
package grabber

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// ErrInvalidViewSize is returned when a view has a non-positive dimension.
var ErrInvalidViewSize = errors.New("invalid view size")

// ViewSize is the pixel size of the view the mesh is drawn into.
type ViewSize struct {
	Width, Height float64
}

// Valid reports whether both dimensions are positive and finite.
func (v ViewSize) Valid() bool {
	return v.Width > 0 && v.Height > 0 && !gomath.IsInf(v.Width, 0) && !gomath.IsInf(v.Height, 0)
}

// GridToScreen converts a grid-space location to view coordinates.
// A degenerate view axis maps to 0.
func GridToScreen(loc math.Vec2, size mesh.Size, view ViewSize) math.Vec2 {
	return math.Vec2{
		X: scaleAxis(loc.X, float64(size.Width-1), view.Width),
		Y: view.Height - scaleAxis(loc.Y, float64(size.Height-1), view.Height),
	}
}

// ScreenToGrid converts view coordinates to a grid-space location, clamped
// per axis to [0, dim-1]. It is the inverse of GridToScreen inside the domain.
func ScreenToGrid(p math.Vec2, size mesh.Size, view ViewSize) math.Vec2 {
	return math.Vec2{
		X: clampAxis(scaleAxis(p.X, view.Width, float64(size.Width-1)), size.Width),
		Y: clampAxis(scaleAxis(view.Height-p.Y, view.Height, float64(size.Height-1)), size.Height),
	}
}

// scaleAxis maps v from [0, from] onto [0, to].
func scaleAxis(v, from, to float64) float64 {
	if !(from > 0) {
		return 0
	}
	return v / from * to
}

func clampAxis(v float64, dim int) float64 {
	if gomath.IsNaN(v) || v < 0 {
		return 0
	}
	return gomath.Min(v, float64(dim-1))
}

// Drag moves node (x, y) of g to the grid location under screen point p.
// Movement along a pinned axis is ignored and free axes are limited to the
// position multiplier window k. It returns the location actually stored.
func Drag(g *mesh.Grid, x, y int, p math.Vec2, view ViewSize, k float64) (math.Vec2, error) {
	if !view.Valid() {
		return math.Vec2{}, fmt.Errorf("%w: %vx%v", ErrInvalidViewSize, view.Width, view.Height)
	}
	return g.SetLocation(x, y, ScreenToGrid(p, g.Size(), view), k)
}

// DragBy moves node (x, y) by a screen-space delta from its current position.
func DragBy(g *mesh.Grid, x, y int, delta math.Vec2, view ViewSize, k float64) (math.Vec2, error) {
	n, err := g.Node(x, y)
	if err != nil {
		return math.Vec2{}, err
	}
	start := GridToScreen(n.Location, g.Size(), view)
	return Drag(g, x, y, start.Add(delta), view, k)
}

// HitTest returns the node whose grabber lies closest to screen point p,
// provided it is within radius pixels. Ties go to the first node in
// row-major order.
func HitTest(g *mesh.Grid, p math.Vec2, view ViewSize, radius float64) (x, y int, ok bool) {
	if !view.Valid() {
		return 0, 0, false
	}

	best := radius
	g.Each(func(n mesh.Node) {
		d := GridToScreen(n.Location, g.Size(), view).Distance(p)
		if d < best || (d == best && !ok) {
			best = d
			x, y, ok = n.Point.X, n.Point.Y, true
		}
	})
	return x, y, ok
}
