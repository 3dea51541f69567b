package mesh

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/meshkit/pkg/math"
)

func TestPinned(t *testing.T) {
	size := Size{4, 3}
	tests := []struct {
		p      Point
		px, py bool
	}{
		{Point{0, 0}, true, true},
		{Point{3, 0}, true, true},
		{Point{0, 1}, true, false},
		{Point{1, 0}, false, true},
		{Point{2, 2}, false, true},
		{Point{1, 1}, false, false},
	}
	for _, tt := range tests {
		px, py := Pinned(size, tt.p)
		if px != tt.px || py != tt.py {
			t.Errorf("Pinned(%v) = (%v,%v), want (%v,%v)", tt.p, px, py, tt.px, tt.py)
		}
	}
}

func TestConstrain(t *testing.T) {
	size := Size{4, 4}
	k := 0.6

	tests := []struct {
		name string
		p    Point
		in   math.Vec2
		want math.Vec2
	}{
		{"corner ignores movement", Point{0, 0}, math.Vec2{X: 0.5, Y: -0.3}, math.Vec2{X: 0, Y: 0}},
		{"left edge keeps y", Point{0, 2}, math.Vec2{X: 0.3, Y: 2.4}, math.Vec2{X: 0, Y: 2.4}},
		{"bottom edge keeps x", Point{1, 3}, math.Vec2{X: 1.5, Y: 2.5}, math.Vec2{X: 1.5, Y: 3}},
		{"interior inside window", Point{1, 2}, math.Vec2{X: 1.2, Y: 1.7}, math.Vec2{X: 1.2, Y: 1.7}},
		{"interior below window", Point{2, 2}, math.Vec2{X: 0.1, Y: 2}, math.Vec2{X: 1.4, Y: 2}},
		{"interior clamps to domain", Point{1, 1}, math.Vec2{X: -5, Y: 1}, math.Vec2{X: 0.4, Y: 1}},
		{"NaN resets", Point{1, 1}, math.Vec2{X: gomath.NaN(), Y: 1.1}, math.Vec2{X: 1, Y: 1.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Constrain(size, tt.p, tt.in, k)
			if gomath.Abs(got.X-tt.want.X) > 1e-12 || gomath.Abs(got.Y-tt.want.Y) > 1e-12 {
				t.Errorf("Constrain(%v, %v) = %v, want %v", tt.p, tt.in, got, tt.want)
			}
		})
	}
}

func TestConstrain_UpperBoundExclusive(t *testing.T) {
	size := Size{4, 4}
	got := Constrain(size, Point{1, 1}, math.Vec2{X: 1.6, Y: 9}, 0.6)

	if !InWindow(1, got.X, 0.6) {
		t.Errorf("x=%v escaped [0.4, 1.6)", got.X)
	}
	if !InWindow(1, got.Y, 0.6) {
		t.Errorf("y=%v escaped [0.4, 1.6)", got.Y)
	}
}

func TestConstrain_ZeroMultiplierPins(t *testing.T) {
	got := Constrain(Size{3, 3}, Point{1, 1}, math.Vec2{X: 1.3, Y: 0.8}, 0)
	if got != (math.Vec2{X: 1, Y: 1}) {
		t.Errorf("k=0 should pin to the coordinate, got %v", got)
	}
}
