// Package document persists mesh grids as YAML or binary MGRD files.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshkit/internal/logger"
	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/formats"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

// ErrUnknownFormat is returned for file extensions other than .yaml, .yml and .mgrd.
var ErrUnknownFormat = errors.New("unknown document format")

// Format is a document file encoding.
type Format int

// Supported formats.
const (
	FormatYAML Format = iota
	FormatMGRD
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".mgrd":
		return FormatMGRD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Document is a named mesh grid plus its render settings.
type Document struct {
	ID           uuid.UUID
	Name         string
	Subdivisions int
	Grid         *mesh.Grid
}

// New creates a document with a fresh default grid.
func New(name string, width, height int) (*Document, error) {
	g, err := mesh.NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:           uuid.New(),
		Name:         name,
		Subdivisions: tessellate.DefaultSubdivisions,
		Grid:         g,
	}, nil
}

// Template describes a generated document.
type Template struct {
	Name          string
	Width, Height int
	Subdivisions  int                 // 0 uses the default
	Tangent       float32             // 0 keeps the node default
	Colors        animate.ColorSource // nil leaves every node white
}

// Generate creates a document from t, painting it from t.Colors.
func Generate(t Template) (*Document, error) {
	d, err := New(t.Name, t.Width, t.Height)
	if err != nil {
		return nil, err
	}
	if t.Subdivisions > 0 {
		d.Subdivisions = t.Subdivisions
	}

	g := d.Grid
	if t.Tangent != 0 {
		for y := range g.Height() {
			for x := range g.Width() {
				if err := g.SetTangent(x, y, mesh.Tangent{U: t.Tangent, V: t.Tangent}); err != nil {
					return nil, err
				}
			}
		}
	}
	if t.Colors != nil {
		if err := g.Recolor(t.Colors.Colors(g.Size().Count())); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Grid = d.Grid.Clone()
	return &c
}

// nodeRecord is the persisted form of one control point.
type nodeRecord struct {
	Point    [2]int     `yaml:"point,flow"`
	Location [2]float64 `yaml:"location,flow"`
	Color    [4]float32 `yaml:"color,flow"`
	Tangent  [2]float32 `yaml:"tangent,flow"`
}

// file is the YAML layout of a document.
type file struct {
	ID           uuid.UUID    `yaml:"id"`
	Name         string       `yaml:"name"`
	Width        int          `yaml:"width"`
	Height       int          `yaml:"height"`
	Subdivisions int          `yaml:"subdivisions"`
	Nodes        []nodeRecord `yaml:"nodes"`
}

// MarshalYAML implements yaml.Marshaler.
func (d *Document) MarshalYAML() (interface{}, error) {
	f := file{
		ID:           d.ID,
		Name:         d.Name,
		Width:        d.Grid.Width(),
		Height:       d.Grid.Height(),
		Subdivisions: d.Subdivisions,
		Nodes:        make([]nodeRecord, 0, d.Grid.Size().Count()),
	}
	d.Grid.Each(func(n mesh.Node) {
		f.Nodes = append(f.Nodes, nodeRecord{
			Point:    [2]int{n.Point.X, n.Point.Y},
			Location: [2]float64{n.Location.X, n.Location.Y},
			Color:    n.Color.Array(),
			Tangent:  [2]float32{n.Tangent.U, n.Tangent.V},
		})
	})
	return f, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	var f file
	if err := value.Decode(&f); err != nil {
		return err
	}

	nodes := make([]mesh.Node, len(f.Nodes))
	for i, rec := range f.Nodes {
		nodes[i] = mesh.Node{
			Point:    mesh.Point{X: rec.Point[0], Y: rec.Point[1]},
			Location: vec.Vec2{X: rec.Location[0], Y: rec.Location[1]},
			Color:    mesh.Color{R: rec.Color[0], G: rec.Color[1], B: rec.Color[2], A: rec.Color[3]},
			Tangent:  mesh.Tangent{U: rec.Tangent[0], V: rec.Tangent[1]},
		}
	}
	g, err := mesh.FromNodes(mesh.Size{Width: f.Width, Height: f.Height}, nodes)
	if err != nil {
		return err
	}

	d.ID = f.ID
	d.Name = f.Name
	d.Subdivisions = f.Subdivisions
	d.Grid = g
	return nil
}

func (d *Document) fixup() {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Subdivisions <= 0 {
		d.Subdivisions = tessellate.DefaultSubdivisions
	}
}

// Encode serializes the document in the given format.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatMGRD:
		return formats.NewMGRD(d.ID, d.Name, d.Subdivisions, d.Grid).Encode()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// Decode parses a document in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	d := &Document{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, d); err != nil {
			return nil, fmt.Errorf("decoding YAML document: %w", err)
		}
		if d.Grid == nil {
			return nil, fmt.Errorf("decoding YAML document: %w", mesh.ErrInvalidGridSize)
		}
	case FormatMGRD:
		m, err := formats.ParseMGRD(data)
		if err != nil {
			return nil, err
		}
		g, err := m.Grid()
		if err != nil {
			return nil, err
		}
		d.ID = m.ID
		d.Name = m.Name
		d.Subdivisions = int(m.Subdivisions)
		d.Grid = g
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}

	d.fixup()
	return d, nil
}

// Load reads a document, choosing the format from the file extension.
func Load(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	d, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	logger.Debug("document loaded",
		zap.String("path", path),
		zap.Stringer("id", d.ID),
		zap.Stringer("size", d.Grid.Size()))
	return d, nil
}

// Save writes the document, choosing the format from the file extension.
// Parent directories are created as needed.
func (d *Document) Save(path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := d.Encode(format)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	logger.Debug("document saved", zap.String("path", path), zap.Stringer("id", d.ID))
	return nil
}
