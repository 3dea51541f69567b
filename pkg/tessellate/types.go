// Package tessellate turns a mesh grid into a dense triangulated surface with
// interpolated positions and colours, ready for a renderer to upload.
package tessellate

import (
	"github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Quality selects between the interactive and the export entry point.
type Quality int

const (
	// Preview caps the subdivision count and runs on the calling goroutine.
	Preview Quality = iota
	// Export honours the exact subdivision count and fills rows in parallel.
	Export
)

// String returns the quality name.
func (q Quality) String() string {
	switch q {
	case Preview:
		return "preview"
	case Export:
		return "export"
	default:
		return "unknown"
	}
}

// Vertex is a single lattice vertex with all attributes.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Color    [4]float32
}

// Bounds holds the axis-aligned bounding box of the surface.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Buffer is the tessellated surface.
//
// Vertices form a shared lattice of Columns x Rows entries stored row-major;
// the control point (x, y) sits at lattice (x*Subdivisions, y*Subdivisions).
// Indices hold counter-clockwise triangles ordered row-major by cell, then
// row-major by sub-quad within the cell.
type Buffer struct {
	Vertices     []Vertex
	Indices      []uint32
	Columns      int
	Rows         int
	Subdivisions int
	Size         mesh.Size
	Bounds       Bounds
}

// VertexAt returns the lattice vertex at (col, row).
func (b *Buffer) VertexAt(col, row int) Vertex {
	return b.Vertices[row*b.Columns+col]
}

// ControlVertex returns the lattice vertex that coincides with control point (x, y).
func (b *Buffer) ControlVertex(x, y int) Vertex {
	return b.VertexAt(x*b.Subdivisions, y*b.Subdivisions)
}

// TriangleCount returns the number of triangles in the index buffer.
func (b *Buffer) TriangleCount() int {
	return len(b.Indices) / 3
}

// Positions returns vertex positions in lattice order.
func (b *Buffer) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(b.Vertices))
	for i, v := range b.Vertices {
		out[i] = math.Vec3{X: v.Position[0], Y: v.Position[1], Z: v.Position[2]}
	}
	return out
}

// Colors returns vertex colours in lattice order.
func (b *Buffer) Colors() []mesh.Color {
	out := make([]mesh.Color, len(b.Vertices))
	for i, v := range b.Vertices {
		out[i] = mesh.Color{R: v.Color[0], G: v.Color[1], B: v.Color[2], A: v.Color[3]}
	}
	return out
}

// Interleaved packs position (xyz) and colour (rgba) per vertex, the layout
// expected by the preview shader.
func (b *Buffer) Interleaved() []float32 {
	out := make([]float32, 0, len(b.Vertices)*7)
	for _, v := range b.Vertices {
		out = append(out,
			v.Position[0], v.Position[1], v.Position[2],
			v.Color[0], v.Color[1], v.Color[2], v.Color[3],
		)
	}
	return out
}
