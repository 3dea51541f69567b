package tessellate

import (
	"context"
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// testGrid builds a grid with distinct colours and perturbed interior nodes.
func testGrid(t *testing.T, width, height int) *mesh.Grid {
	t.Helper()

	g, err := mesh.NewGrid(width, height)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	for y := range height {
		for x := range width {
			c := mesh.Color{
				R: float32(x) / float32(width-1),
				G: float32(y) / float32(height-1),
				B: float32((x+y)%3) / 2,
				A: 1,
			}
			g.SetColor(x, y, c)
			g.SetTangent(x, y, mesh.Tangent{U: 1 + float32(x%3), V: 2.5 - float32(y%2)})
			g.SetLocation(x, y, math.Vec2{X: float64(x) + 0.35, Y: float64(y) - 0.25}, mesh.DefaultPositionMultiplier)
		}
	}
	return g
}

func TestGenerate_DefaultGridScenario(t *testing.T) {
	g, _ := mesh.NewGrid(3, 3)
	colors := []mesh.Color{
		mesh.RGB(1, 0, 0), mesh.RGB(0, 1, 0), mesh.RGB(0, 0, 1),
		mesh.RGB(1, 1, 0), mesh.RGB(0, 1, 1), mesh.RGB(1, 0, 1),
		mesh.RGB(0.2, 0.4, 0.6), mesh.RGB(0.9, 0.1, 0.3), mesh.RGB(0.5, 0.5, 0.5),
	}
	if err := g.Recolor(colors); err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}

	buf, err := Generate(g, 18)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if buf.Columns != 37 || buf.Rows != 37 {
		t.Errorf("expected 37x37 lattice, got %dx%d", buf.Columns, buf.Rows)
	}
	if len(buf.Vertices) != 1369 {
		t.Errorf("expected 1369 vertices, got %d", len(buf.Vertices))
	}
	if buf.TriangleCount() != 4*18*18*2 {
		t.Errorf("expected %d triangles, got %d", 4*18*18*2, buf.TriangleCount())
	}

	for y := range 3 {
		for x := range 3 {
			v := buf.VertexAt(x*18, y*18)
			want := colors[y*3+x].Array()
			if v.Color != want {
				t.Errorf("control (%d,%d): colour %v, want %v", x, y, v.Color, want)
			}
		}
	}
}

func TestGenerate_PassThrough(t *testing.T) {
	sizes := []mesh.Size{{Width: 2, Height: 2}, {Width: 3, Height: 3}, {Width: 4, Height: 3}, {Width: 5, Height: 7}, {Width: 8, Height: 8}}
	subdivisions := []int{1, 2, 5, 18}

	for _, size := range sizes {
		g := testGrid(t, size.Width, size.Height)
		for _, s := range subdivisions {
			buf, err := Generate(g, s)
			if err != nil {
				t.Fatalf("%s s=%d: Generate failed: %v", size, s, err)
			}
			for y := range size.Height {
				for x := range size.Width {
					n := g.At(x, y)
					v := buf.ControlVertex(x, y)
					if !near(float64(v.Position[0]), n.Location.X) || !near(float64(v.Position[1]), n.Location.Y) {
						t.Errorf("%s s=%d (%d,%d): position %v, want %v", size, s, x, y, v.Position, n.Location)
					}
					if v.Color != n.Color.Array() {
						t.Errorf("%s s=%d (%d,%d): colour %v, want %v", size, s, x, y, v.Color, n.Color)
					}
				}
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := testGrid(t, 5, 4)

	a, err := Generate(g, 12)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, _ := Generate(g, 12)

	if len(a.Vertices) != len(b.Vertices) || len(a.Indices) != len(b.Indices) {
		t.Fatal("buffer sizes differ between runs")
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("vertex %d differs: %+v vs %+v", i, a.Vertices[i], b.Vertices[i])
		}
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Fatalf("index %d differs", i)
		}
	}
}

func TestGenerate_ExportMatchesSerial(t *testing.T) {
	g := testGrid(t, 6, 5)

	serial, err := Generate(g, 40)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tess := New(4)
	parallel, err := tess.Generate(g, 40, Export)
	if err != nil {
		t.Fatalf("export Generate failed: %v", err)
	}

	if len(parallel.Vertices) != len(serial.Vertices) {
		t.Fatalf("vertex count %d != %d", len(parallel.Vertices), len(serial.Vertices))
	}
	for i := range serial.Vertices {
		if serial.Vertices[i] != parallel.Vertices[i] {
			t.Fatalf("vertex %d differs between serial and export", i)
		}
	}
}

func TestGenerate_PreviewCapsSubdivisions(t *testing.T) {
	g := testGrid(t, 3, 3)
	tess := &Tessellator{}

	buf, err := tess.Generate(g, 128, Preview)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if buf.Subdivisions != MaxPreviewSubdivisions {
		t.Errorf("preview subdivisions = %d, want %d", buf.Subdivisions, MaxPreviewSubdivisions)
	}

	buf, _ = tess.Generate(g, 10, Preview)
	if buf.Subdivisions != 10 {
		t.Errorf("preview should keep low subdivisions, got %d", buf.Subdivisions)
	}

	buf, _ = tess.Generate(g, 128, Export)
	if buf.Subdivisions != 128 {
		t.Errorf("export subdivisions = %d, want 128", buf.Subdivisions)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	g := testGrid(t, 3, 3)

	tests := []struct {
		name    string
		grid    *mesh.Grid
		s       int
		wantErr error
	}{
		{"nil grid", nil, 4, mesh.ErrInvalidGridSize},
		{"zero subdivisions", g, 0, ErrInvalidSubdivision},
		{"negative subdivisions", g, -3, ErrInvalidSubdivision},
		{"absurd subdivisions", g, MaxSubdivisions + 1, ErrInvalidSubdivision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.grid, tt.s)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGenerate_RejectsNonFinite(t *testing.T) {
	g := testGrid(t, 3, 3)
	n := g.At(1, 1)
	n.Color.G = float32(gomath.NaN())
	g.Set(1, 1, n)

	if _, err := Generate(g, 4); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for NaN colour, got %v", err)
	}
}

func TestGenerate_NoNaNs(t *testing.T) {
	g := testGrid(t, 8, 8)
	for y := range 8 {
		for x := range 8 {
			g.SetTangent(x, y, mesh.Tangent{U: 5, V: 0})
		}
	}

	buf, err := Generate(g, 9)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i, v := range buf.Vertices {
		for _, c := range v.Position {
			if gomath.IsNaN(float64(c)) {
				t.Fatalf("vertex %d has NaN position", i)
			}
		}
		for _, c := range v.Color {
			if c < 0 || c > 1 {
				t.Fatalf("vertex %d colour %v outside [0,1]", i, v.Color)
			}
		}
	}
}

func TestGenerate_TangentScalesApproach(t *testing.T) {
	// A red ramp over three columns; the lattice vertex a quarter of the way
	// into the first cell is compared with the straight chord value 0.125.
	sample := func(tan float32) (red, x float64) {
		g, _ := mesh.NewGrid(3, 2)
		for y := range 2 {
			for col := range 3 {
				g.SetColor(col, y, mesh.Color{R: float32(col) / 2, A: 1})
				g.SetTangent(col, y, mesh.Tangent{U: tan, V: tan})
			}
		}
		buf, err := Generate(g, 4)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		v := buf.VertexAt(1, 0)
		return float64(v.Color[0]), float64(v.Position[0])
	}

	tests := []struct {
		tangent float32
		red     float64
	}{
		{0, 0.078125},
		{2, 0.125},
		{4, 0.171875},
	}
	for _, tt := range tests {
		red, _ := sample(tt.tangent)
		if gomath.Abs(red-tt.red) > 1e-6 {
			t.Errorf("tangent %v: red = %v, want %v", tt.tangent, red, tt.red)
		}
	}

	if _, x := sample(2); gomath.Abs(x-0.25) > 1e-6 {
		t.Errorf("tangent 2 should space vertices evenly along the chord, got x=%v", x)
	}
	if _, x := sample(0); x >= 0.25 {
		t.Errorf("tangent 0 should hold vertices near the node, got x=%v", x)
	}
}

func TestGenerate_BoundaryStaysOnRectangle(t *testing.T) {
	g := testGrid(t, 4, 4)
	buf, err := Generate(g, 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for col := range buf.Columns {
		if v := buf.VertexAt(col, 0); v.Position[1] != 0 {
			t.Errorf("bottom row vertex %d left y=0: %v", col, v.Position)
		}
		if v := buf.VertexAt(col, buf.Rows-1); v.Position[1] != 3 {
			t.Errorf("top row vertex %d left y=3: %v", col, v.Position)
		}
	}
	for row := range buf.Rows {
		if v := buf.VertexAt(0, row); v.Position[0] != 0 {
			t.Errorf("left column vertex %d left x=0: %v", row, v.Position)
		}
		if v := buf.VertexAt(buf.Columns-1, row); v.Position[0] != 3 {
			t.Errorf("right column vertex %d left x=3: %v", row, v.Position)
		}
	}
}

func TestGenerate_IndexOrdering(t *testing.T) {
	g, _ := mesh.NewGrid(3, 2)
	buf, err := Generate(g, 2)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 5x3 lattice; the first cell's first quad, then its second quad.
	want := []uint32{
		0, 1, 6, 0, 6, 5,
		1, 2, 7, 1, 7, 6,
	}
	for i, w := range want {
		if buf.Indices[i] != w {
			t.Fatalf("index %d = %d, want %d (got %v)", i, buf.Indices[i], w, buf.Indices[:len(want)])
		}
	}

	// The second cell starts after the first cell's 4 quads.
	if got := buf.Indices[4*6]; got != 2 {
		t.Errorf("second cell should start at vertex 2, got %d", got)
	}

	for i, idx := range buf.Indices {
		if int(idx) >= len(buf.Vertices) {
			t.Fatalf("index %d = %d out of range", i, idx)
		}
	}
}

func TestGenerate_Continuity(t *testing.T) {
	g := testGrid(t, 4, 4)
	buf, err := Generate(g, 64)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Step sizes on either side of a cell boundary must match: no kinks.
	seam := 64
	for row := range buf.Rows {
		a := buf.VertexAt(seam-1, row)
		b := buf.VertexAt(seam, row)
		c := buf.VertexAt(seam+1, row)
		left := dist(a, b)
		right := dist(b, c)
		if gomath.Abs(left-right) > 0.02 {
			t.Errorf("row %d: step sizes %v / %v jump across seam", row, left, right)
		}
	}
}

func TestGenerateContext_Cancelled(t *testing.T) {
	g := testGrid(t, 8, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(2).GenerateContext(ctx, g, 64, Export)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSample(t *testing.T) {
	g := testGrid(t, 4, 3)

	for y := range 3 {
		for x := range 4 {
			loc, col, err := Sample(g, float64(x), float64(y))
			if err != nil {
				t.Fatalf("Sample failed: %v", err)
			}
			n := g.At(x, y)
			if !near(loc.X, n.Location.X) || !near(loc.Y, n.Location.Y) {
				t.Errorf("Sample(%d,%d) location %v, want %v", x, y, loc, n.Location)
			}
			if col != n.Color {
				t.Errorf("Sample(%d,%d) colour %v, want %v", x, y, col, n.Color)
			}
		}
	}

	// Out-of-range parameters clamp onto the boundary.
	loc, _, _ := Sample(g, -4, 99)
	if loc != g.At(0, 2).Location {
		t.Errorf("clamped sample = %v, want %v", loc, g.At(0, 2).Location)
	}
}

func TestSample_MatchesLattice(t *testing.T) {
	g := testGrid(t, 3, 3)
	buf, _ := Generate(g, 4)

	loc, col, err := Sample(g, 1.25, 0.5)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	v := buf.VertexAt(5, 2)
	if !near(loc.X, float64(v.Position[0])) || !near(loc.Y, float64(v.Position[1])) {
		t.Errorf("Sample = %v, lattice = %v", loc, v.Position)
	}
	if gomath.Abs(float64(col.R-v.Color[0])) > 1e-6 {
		t.Errorf("Sample colour %v, lattice %v", col, v.Color)
	}
}

func TestBuffer_Interleaved(t *testing.T) {
	g, _ := mesh.NewGrid(2, 2)
	buf, _ := Generate(g, 1)

	data := buf.Interleaved()
	if len(data) != 4*7 {
		t.Fatalf("expected 28 floats, got %d", len(data))
	}
	// Vertex 3 is the top-right corner at (1,1), white.
	want := []float32{1, 1, 0, 1, 1, 1, 1}
	for i, w := range want {
		if data[21+i] != w {
			t.Errorf("component %d = %v, want %v", i, data[21+i], w)
		}
	}

	if buf.Bounds.Min != [3]float32{0, 0, 0} || buf.Bounds.Max != [3]float32{1, 1, 0} {
		t.Errorf("unexpected bounds %+v", buf.Bounds)
	}
}

func near(a, b float64) bool {
	return gomath.Abs(a-b) < 1e-5
}

func dist(a, b Vertex) float64 {
	dx := float64(a.Position[0] - b.Position[0])
	dy := float64(a.Position[1] - b.Position[1])
	return gomath.Hypot(dx, dy)
}
