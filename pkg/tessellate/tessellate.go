package tessellate

import (
	"context"
	"errors"
	"fmt"
	gomath "math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Subdivision limits.
const (
	DefaultSubdivisions    = 18
	MaxPreviewSubdivisions = 36
	MaxSubdivisions        = 1024
)

// Tessellation errors.
var (
	ErrInvalidInput       = errors.New("invalid tessellation input")
	ErrInvalidSubdivision = errors.New("invalid subdivision count")
)

// rowsPerTask is the number of lattice rows an export worker fills at once.
const rowsPerTask = 16

// Tessellator generates surfaces. The zero value is ready to use; it keeps
// no state between calls and is safe for concurrent use on different grids.
type Tessellator struct {
	// Workers bounds export parallelism. Zero or negative means GOMAXPROCS.
	Workers int
}

// New returns a Tessellator using the given number of export workers.
func New(workers int) *Tessellator {
	return &Tessellator{Workers: workers}
}

// Generate tessellates g exactly at the given subdivision count on the
// calling goroutine.
func Generate(g *mesh.Grid, subdivisions int) (*Buffer, error) {
	if err := validate(g, subdivisions); err != nil {
		return nil, err
	}
	return build(context.Background(), newSurface(g), g.Size(), subdivisions, 1)
}

// Generate tessellates g at the given quality.
func (t *Tessellator) Generate(g *mesh.Grid, subdivisions int, q Quality) (*Buffer, error) {
	return t.GenerateContext(context.Background(), g, subdivisions, q)
}

// GenerateContext tessellates g at the given quality. Export generation reads
// g once up front, so the caller may resume editing the grid as soon as the
// surface data has been captured; it stops early when ctx is cancelled.
func (t *Tessellator) GenerateContext(ctx context.Context, g *mesh.Grid, subdivisions int, q Quality) (*Buffer, error) {
	if err := validate(g, subdivisions); err != nil {
		return nil, err
	}

	switch q {
	case Preview:
		return build(ctx, newSurface(g), g.Size(), min(subdivisions, MaxPreviewSubdivisions), 1)
	case Export:
		workers := t.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		return build(ctx, newSurface(g), g.Size(), subdivisions, workers)
	default:
		return nil, fmt.Errorf("%w: unknown quality %d", ErrInvalidInput, q)
	}
}

// Sample evaluates the surface of g at grid-space parameter (u, v), clamped
// to [0, width-1] x [0, height-1].
func Sample(g *mesh.Grid, u, v float64) (math.Vec2, mesh.Color, error) {
	if err := validate(g, 1); err != nil {
		return math.Vec2{}, mesh.Color{}, err
	}
	if gomath.IsNaN(u) || gomath.IsNaN(v) {
		return math.Vec2{}, mesh.Color{}, fmt.Errorf("%w: NaN sample parameter", ErrInvalidInput)
	}

	s := newSurface(g)
	cx, fu := splitParam(u, g.Width())
	cy, fv := splitParam(v, g.Height())
	val := s.eval(cx, cy, hermite(fu), hermite(fv))
	return math.Vec2{X: val[0], Y: val[1]}, colorOf(val), nil
}

func splitParam(p float64, dim int) (cell int, frac float64) {
	p = gomath.Max(0, gomath.Min(p, float64(dim-1)))
	cell = int(p)
	if cell >= dim-1 {
		cell = dim - 2
	}
	return cell, p - float64(cell)
}

func validate(g *mesh.Grid, subdivisions int) error {
	if g == nil {
		return fmt.Errorf("%w: %w: nil grid", ErrInvalidInput, mesh.ErrInvalidGridSize)
	}
	if !g.Size().Valid() {
		return fmt.Errorf("%w: %w: got %s", ErrInvalidInput, mesh.ErrInvalidGridSize, g.Size())
	}
	if subdivisions < 1 || subdivisions > MaxSubdivisions {
		return fmt.Errorf("%w: %w: got %d, want 1..%d", ErrInvalidInput, ErrInvalidSubdivision, subdivisions, MaxSubdivisions)
	}

	cols := (g.Width()-1)*subdivisions + 1
	rows := (g.Height()-1)*subdivisions + 1
	if uint64(cols)*uint64(rows) > gomath.MaxUint32 {
		return fmt.Errorf("%w: %dx%d lattice exceeds 32-bit indices", ErrInvalidInput, cols, rows)
	}

	var bad error
	g.Each(func(n mesh.Node) {
		if bad != nil {
			return
		}
		tu, tv := float64(n.Tangent.U), float64(n.Tangent.V)
		if !n.Location.IsFinite() || !n.Color.IsFinite() ||
			gomath.IsNaN(tu) || gomath.IsInf(tu, 0) || gomath.IsNaN(tv) || gomath.IsInf(tv, 0) {
			bad = fmt.Errorf("%w: node (%d,%d) has non-finite values", ErrInvalidInput, n.Point.X, n.Point.Y)
		}
	})
	return bad
}

// build fills the lattice with the given number of workers and emits the
// index buffer.
func build(ctx context.Context, s *surface, size mesh.Size, steps, workers int) (*Buffer, error) {
	cols := (size.Width-1)*steps + 1
	rows := (size.Height-1)*steps + 1

	buf := &Buffer{
		Vertices:     make([]Vertex, cols*rows),
		Columns:      cols,
		Rows:         rows,
		Subdivisions: steps,
		Size:         size,
	}
	weights := bases(steps)

	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fillRows(s, buf, weights, 0, rows)
	} else {
		eg, ctx := errgroup.WithContext(ctx)
		eg.SetLimit(workers)
		for start := 0; start < rows; start += rowsPerTask {
			end := min(start+rowsPerTask, rows)
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				fillRows(s, buf, weights, start, end)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	buf.Indices = buildIndices(size, steps, cols)
	buf.Bounds = computeBounds(buf.Vertices)
	return buf, nil
}

// fillRows computes lattice rows [start, end). Workers write disjoint rows.
func fillRows(s *surface, buf *Buffer, weights []basis, start, end int) {
	steps := buf.Subdivisions
	cellsX, cellsY := s.w-1, s.h-1
	lastCol := float32(buf.Columns - 1)
	lastRow := float32(buf.Rows - 1)

	for row := start; row < end; row++ {
		cy, ly := cellFor(row, steps, cellsY)
		bv := weights[ly]
		for col := range buf.Columns {
			cx, lx := cellFor(col, steps, cellsX)
			val := s.eval(cx, cy, weights[lx], bv)
			buf.Vertices[row*buf.Columns+col] = Vertex{
				Position: math.Vec2{X: val[0], Y: val[1]}.Vec3(0).Array(),
				Normal:   [3]float32{0, 0, 1},
				TexCoord: [2]float32{float32(col) / lastCol, float32(row) / lastRow},
				Color:    colorOf(val).Array(),
			}
		}
	}
}

func colorOf(val value) mesh.Color {
	return mesh.Color{
		R: clampUnit(val[2]),
		G: clampUnit(val[3]),
		B: clampUnit(val[4]),
		A: clampUnit(val[5]),
	}
}

// buildIndices emits two counter-clockwise triangles per sub-quad, cells in
// row-major order and sub-quads row-major inside each cell.
func buildIndices(size mesh.Size, steps, cols int) []uint32 {
	cellsX, cellsY := size.Width-1, size.Height-1
	indices := make([]uint32, 0, cellsX*cellsY*steps*steps*6)

	for cy := range cellsY {
		for cx := range cellsX {
			for j := range steps {
				for i := range steps {
					col := cx*steps + i
					row := cy*steps + j
					v00 := uint32(row*cols + col)
					v10 := v00 + 1
					v01 := v00 + uint32(cols)
					v11 := v01 + 1
					indices = append(indices,
						v00, v10, v11,
						v00, v11, v01,
					)
				}
			}
		}
	}
	return indices
}

func computeBounds(vertices []Vertex) Bounds {
	b := Bounds{
		Min: [3]float32{gomath.MaxFloat32, gomath.MaxFloat32, gomath.MaxFloat32},
		Max: [3]float32{-gomath.MaxFloat32, -gomath.MaxFloat32, -gomath.MaxFloat32},
	}
	for _, v := range vertices {
		for i := range 3 {
			b.Min[i] = min(b.Min[i], v.Position[i])
			b.Max[i] = max(b.Max[i], v.Position[i])
		}
	}
	return b
}
