package tessellate

import (
	gomath "math"

	"github.com/Faultbox/meshkit/pkg/mesh"
)

// value bundles everything that is interpolated across the surface:
// location x, y followed by colour r, g, b, a.
type value [6]float64

func (v value) add(o value) value {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v value) sub(o value) value {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v value) scale(s float64) value {
	for i := range v {
		v[i] *= s
	}
	return v
}

func nodeValue(n mesh.Node) value {
	return value{
		n.Location.X, n.Location.Y,
		float64(n.Color.R), float64(n.Color.G), float64(n.Color.B), float64(n.Color.A),
	}
}

// surface holds the per-node Hermite data of a grid.
//
// The derivative of a node along u is the Catmull-Rom difference of its
// horizontal neighbours (one-sided on the boundary) scaled by Tangent.U/2,
// and likewise along v with Tangent.V/2, so the tangent is a handle length.
// Tangent 2 reproduces a plain Catmull-Rom spline that follows the chord
// through the node. Smaller values shorten the handle down to a zero-slope
// stop at 0, which shows as a sharp corner between cells. Larger values carry
// the chord direction further along the segment. Twist vectors are zero.
type surface struct {
	w, h   int
	p      []value
	du, dv []value
}

func newSurface(g *mesh.Grid) *surface {
	w, h := g.Width(), g.Height()
	s := &surface{
		w:  w,
		h:  h,
		p:  make([]value, w*h),
		du: make([]value, w*h),
		dv: make([]value, w*h),
	}
	for y := range h {
		for x := range w {
			s.p[y*w+x] = nodeValue(g.At(x, y))
		}
	}
	for y := range h {
		for x := range w {
			i := y*w + x
			t := g.At(x, y).Tangent
			s.du[i] = s.diff(x, y, 1, 0).scale(float64(t.U) / 2)
			s.dv[i] = s.diff(x, y, 0, 1).scale(float64(t.V) / 2)
		}
	}
	return s
}

func (s *surface) at(x, y int) value {
	return s.p[y*s.w+x]
}

// diff returns the finite difference at (x, y) along (ax, ay).
func (s *surface) diff(x, y, ax, ay int) value {
	n := s.w
	c := x
	if ay == 1 {
		n = s.h
		c = y
	}
	switch c {
	case 0:
		return s.at(x+ax, y+ay).sub(s.at(x, y))
	case n - 1:
		return s.at(x, y).sub(s.at(x-ax, y-ay))
	default:
		return s.at(x+ax, y+ay).sub(s.at(x-ax, y-ay)).scale(0.5)
	}
}

// basis holds the cubic Hermite weights for one local parameter:
// h0/h1 weight the end values, g0/g1 weight the end derivatives.
type basis struct {
	h0, h1, g0, g1 float64
}

func hermite(t float64) basis {
	t2 := t * t
	t3 := t2 * t
	return basis{
		h0: 2*t3 - 3*t2 + 1,
		h1: -2*t3 + 3*t2,
		g0: t3 - 2*t2 + t,
		g1: t3 - t2,
	}
}

// bases precomputes the Hermite weights for k/steps, k = 0..steps.
// The end points are exact: weights (1,0,0,0) at k=0 and (0,1,0,0) at k=steps.
func bases(steps int) []basis {
	out := make([]basis, steps+1)
	for k := range out {
		out[k] = hermite(float64(k) / float64(steps))
	}
	return out
}

// eval evaluates cell (cx, cy) at the local weights bu, bv.
func (s *surface) eval(cx, cy int, bu, bv basis) value {
	var out value
	wu := [2]float64{bu.h0, bu.h1}
	gu := [2]float64{bu.g0, bu.g1}
	wv := [2]float64{bv.h0, bv.h1}
	gv := [2]float64{bv.g0, bv.g1}

	for b := range 2 {
		for a := range 2 {
			i := (cy+b)*s.w + cx + a
			out = out.add(s.p[i].scale(wu[a] * wv[b]))
			out = out.add(s.du[i].scale(gu[a] * wv[b]))
			out = out.add(s.dv[i].scale(wu[a] * gv[b]))
		}
	}
	return out
}

// cellFor maps a lattice index to its cell and local step. The last lattice
// index belongs to the last cell at its far end.
func cellFor(index, steps, cells int) (cell, local int) {
	cell = index / steps
	if cell >= cells {
		cell = cells - 1
	}
	return cell, index - cell*steps
}

func clampUnit(v float64) float32 {
	if v < 0 || gomath.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
