package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshkit/pkg/math"
)

// Grid errors.
var (
	ErrInvalidGridSize  = errors.New("invalid grid size: width and height must be at least 2")
	ErrIndexOutOfBounds = errors.New("grid index out of bounds")
	ErrInvalidGrid      = errors.New("invalid grid")
)

// Grid is a row-major collection of control points addressed by (x, y).
//
// A Grid has a single owner. Callers that share a grid between an editor and
// a background consumer hand out Clone snapshots instead of the grid itself.
type Grid struct {
	size  Size
	nodes []Node
}

// NewGrid creates a grid where every node sits at its grid coordinate with a
// white colour and default tangents.
func NewGrid(width, height int) (*Grid, error) {
	size := Size{Width: width, Height: height}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidGridSize, size)
	}

	g := &Grid{
		size:  size,
		nodes: make([]Node, size.Count()),
	}
	for y := range height {
		for x := range width {
			g.nodes[y*width+x] = NewNode(Point{x, y})
		}
	}
	return g, nil
}

// FromNodes builds a grid from an unordered node list, as read back from a
// document. Every grid coordinate must appear exactly once.
func FromNodes(size Size, nodes []Node) (*Grid, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidGridSize, size)
	}
	if len(nodes) != size.Count() {
		return nil, fmt.Errorf("%w: expected %d nodes, got %d", ErrInvalidGrid, size.Count(), len(nodes))
	}

	g := &Grid{size: size, nodes: make([]Node, len(nodes))}
	seen := make([]bool, len(nodes))
	for _, n := range nodes {
		if !g.inBounds(n.Point.X, n.Point.Y) {
			return nil, fmt.Errorf("%w: node point (%d,%d) outside %s", ErrInvalidGrid, n.Point.X, n.Point.Y, size)
		}
		i := g.index(n.Point.X, n.Point.Y)
		if seen[i] {
			return nil, fmt.Errorf("%w: duplicate node point (%d,%d)", ErrInvalidGrid, n.Point.X, n.Point.Y)
		}
		seen[i] = true
		g.nodes[i] = n
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Size returns the grid dimensions.
func (g *Grid) Size() Size {
	return g.size
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	return g.size.Width
}

// Height returns the number of rows.
func (g *Grid) Height() int {
	return g.size.Height
}

func (g *Grid) index(x, y int) int {
	return y*g.size.Width + x
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size.Width && y < g.size.Height
}

func (g *Grid) mustIndex(x, y int) int {
	if !g.inBounds(x, y) {
		panic(fmt.Sprintf("mesh: index (%d,%d) out of bounds for %s grid", x, y, g.size))
	}
	return g.index(x, y)
}

// At returns the node at (x, y). It panics if the index is out of range,
// like indexing a slice.
func (g *Grid) At(x, y int) Node {
	return g.nodes[g.mustIndex(x, y)]
}

// Set replaces the node at (x, y). The node's Point is forced to (x, y).
// It panics if the index is out of range.
func (g *Grid) Set(x, y int, n Node) {
	i := g.mustIndex(x, y)
	n.Point = Point{x, y}
	g.nodes[i] = n
}

// Node returns the node at (x, y) or ErrIndexOutOfBounds.
func (g *Grid) Node(x, y int) (Node, error) {
	if !g.inBounds(x, y) {
		return Node{}, fmt.Errorf("%w: (%d,%d) in %s grid", ErrIndexOutOfBounds, x, y, g.size)
	}
	return g.nodes[g.index(x, y)], nil
}

// SetColor sets the colour of the node at (x, y). Every component must lie
// in [0, 1].
func (g *Grid) SetColor(x, y int, c Color) error {
	if !g.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d) in %s grid", ErrIndexOutOfBounds, x, y, g.size)
	}
	if !c.InRange() {
		return fmt.Errorf("%w: colour %v outside [0,1]", ErrInvalidGrid, c)
	}
	g.nodes[g.index(x, y)].Color = c
	return nil
}

// SetTangent sets the tangent handles of the node at (x, y). Both handles
// must be finite and not negative.
func (g *Grid) SetTangent(x, y int, t Tangent) error {
	if !g.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d) in %s grid", ErrIndexOutOfBounds, x, y, g.size)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: tangent %v is negative or not finite", ErrInvalidGrid, t)
	}
	g.nodes[g.index(x, y)].Tangent = t
	return nil
}

// SetLocation moves the node at (x, y) and returns where it actually landed
// after Constrain with position multiplier k.
func (g *Grid) SetLocation(x, y int, loc math.Vec2, k float64) (math.Vec2, error) {
	if !g.inBounds(x, y) {
		return math.Vec2{}, fmt.Errorf("%w: (%d,%d) in %s grid", ErrIndexOutOfBounds, x, y, g.size)
	}
	i := g.index(x, y)
	loc = Constrain(g.size, g.nodes[i].Point, loc, k)
	g.nodes[i].Location = loc
	return loc, nil
}

// IsEdge reports whether (x, y) lies on the outer boundary.
func (g *Grid) IsEdge(x, y int) bool {
	px, py := Pinned(g.size, Point{x, y})
	return px || py
}

// IsCorner reports whether (x, y) is one of the four corners.
func (g *Grid) IsCorner(x, y int) bool {
	px, py := Pinned(g.size, Point{x, y})
	return px && py
}

// Nodes returns a copy of all nodes in row-major order.
func (g *Grid) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Each calls fn for every node in row-major order.
func (g *Grid) Each(fn func(n Node)) {
	for _, n := range g.nodes {
		fn(n)
	}
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{size: g.size, nodes: make([]Node, len(g.nodes))}
	copy(c.nodes, g.nodes)
	return c
}

// Equal reports whether both grids have the same size and identical nodes.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.size != other.size {
		return false
	}
	for i := range g.nodes {
		if g.nodes[i] != other.nodes[i] {
			return false
		}
	}
	return true
}

// Recolor replaces every node colour, in row-major order. The colour slice
// must hold exactly one entry per node.
func (g *Grid) Recolor(colors []Color) error {
	if len(colors) != len(g.nodes) {
		return fmt.Errorf("%w: expected %d colours, got %d", ErrInvalidGrid, len(g.nodes), len(colors))
	}
	for i, c := range colors {
		if !c.InRange() {
			return fmt.Errorf("%w: colour %d %v outside [0,1]", ErrInvalidGrid, i, c)
		}
	}
	for i := range g.nodes {
		g.nodes[i].Color = colors[i]
	}
	return nil
}

// Validate checks slot/point agreement, finite locations, colours in
// [0, 1], non-negative finite tangents and the boundary invariant.
func (g *Grid) Validate() error {
	if !g.size.Valid() {
		return fmt.Errorf("%w: got %s", ErrInvalidGridSize, g.size)
	}
	if len(g.nodes) != g.size.Count() {
		return fmt.Errorf("%w: expected %d nodes, got %d", ErrInvalidGrid, g.size.Count(), len(g.nodes))
	}
	for i, n := range g.nodes {
		x, y := i%g.size.Width, i/g.size.Width
		if n.Point != (Point{x, y}) {
			return fmt.Errorf("%w: slot (%d,%d) holds point (%d,%d)", ErrInvalidGrid, x, y, n.Point.X, n.Point.Y)
		}
		if !n.Location.IsFinite() || !n.Color.IsFinite() {
			return fmt.Errorf("%w: node (%d,%d) has non-finite values", ErrInvalidGrid, x, y)
		}
		if !n.Color.InRange() {
			return fmt.Errorf("%w: node (%d,%d) colour %v outside [0,1]", ErrInvalidGrid, x, y, n.Color)
		}
		if !n.Tangent.Valid() {
			return fmt.Errorf("%w: node (%d,%d) tangent %v is negative or not finite", ErrInvalidGrid, x, y, n.Tangent)
		}
		px, py := Pinned(g.size, n.Point)
		if px && n.Location.X != float64(x) {
			return fmt.Errorf("%w: edge node (%d,%d) drifted to x=%v", ErrInvalidGrid, x, y, n.Location.X)
		}
		if py && n.Location.Y != float64(y) {
			return fmt.Errorf("%w: edge node (%d,%d) drifted to y=%v", ErrInvalidGrid, x, y, n.Location.Y)
		}
	}
	return nil
}
