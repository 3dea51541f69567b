package mesh

import (
	gomath "math"

	"github.com/Faultbox/meshkit/pkg/math"
)

// Pinned reports which axes of the node at p are fixed to its grid coordinate.
// A node on the left or right column has a pinned X; one on the top or bottom
// row has a pinned Y. Corners are pinned on both axes.
func Pinned(size Size, p Point) (x, y bool) {
	return p.X == 0 || p.X == size.Width-1, p.Y == 0 || p.Y == size.Height-1
}

// Constrain returns loc adjusted so that the node at p respects the boundary
// invariant: pinned axes equal the grid coordinate exactly, free axes lie in
// [coord-k, coord+k) intersected with [0, dim-1]. Non-finite components are
// reset to the grid coordinate.
//
// Every code path that moves a node (animation, dragging, resizing, loading)
// goes through this function.
func Constrain(size Size, p Point, loc math.Vec2, k float64) math.Vec2 {
	px, py := Pinned(size, p)
	return math.Vec2{
		X: constrainAxis(p.X, size.Width, px, loc.X, k),
		Y: constrainAxis(p.Y, size.Height, py, loc.Y, k),
	}
}

func constrainAxis(coord, dim int, pinned bool, v, k float64) float64 {
	c := float64(coord)
	if pinned || !(k > 0) || gomath.IsNaN(v) || gomath.IsInf(v, 0) {
		return c
	}

	lo := gomath.Max(c-k, 0)
	// hi is exclusive, so the largest admissible value is the float just below it.
	hi := gomath.Nextafter(c+k, gomath.Inf(-1))
	hi = gomath.Min(hi, float64(dim-1))

	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InWindow reports whether v lies in [coord-k, coord+k).
func InWindow(coord int, v, k float64) bool {
	c := float64(coord)
	return v >= c-k && v < c+k
}
