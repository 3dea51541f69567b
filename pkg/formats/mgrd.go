package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// MGRD format errors.
var (
	ErrInvalidMGRDMagic       = errors.New("invalid MGRD magic: expected 'MGRD'")
	ErrUnsupportedMGRDVersion = errors.New("unsupported MGRD version")
	ErrTruncatedMGRDData      = errors.New("truncated MGRD data")
)

const (
	mgrdMagic      = "MGRD"
	mgrdHeaderSize = 4 + 2 + 16 + 4 + 4 + 4 + 2
	mgrdNodeSize   = 2*4 + 2*8 + 4*4 + 2*4
	maxMGRDSide    = 4096
	maxMGRDName    = 1024
)

// MGRDCurrentVersion is the version written by Encode.
var MGRDCurrentVersion = MGRDVersion{Major: 1, Minor: 0}

// MGRDVersion represents the MGRD file version.
type MGRDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v MGRDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MGRDNode is one persisted control point.
type MGRDNode struct {
	Point    [2]int32
	Location [2]float64
	Color    [4]float32
	Tangent  [2]float32
}

// MGRD represents a parsed mesh grid document.
type MGRD struct {
	Version      MGRDVersion
	ID           [16]byte
	Name         string
	Width        uint32
	Height       uint32
	Subdivisions uint32
	Nodes        []MGRDNode
}

// NewMGRD builds a document record from a grid.
func NewMGRD(id [16]byte, name string, subdivisions int, g *mesh.Grid) *MGRD {
	m := &MGRD{
		Version:      MGRDCurrentVersion,
		ID:           id,
		Name:         name,
		Width:        uint32(g.Width()),
		Height:       uint32(g.Height()),
		Subdivisions: uint32(subdivisions),
		Nodes:        make([]MGRDNode, 0, g.Size().Count()),
	}
	g.Each(func(n mesh.Node) {
		m.Nodes = append(m.Nodes, MGRDNode{
			Point:    [2]int32{int32(n.Point.X), int32(n.Point.Y)},
			Location: [2]float64{n.Location.X, n.Location.Y},
			Color:    n.Color.Array(),
			Tangent:  [2]float32{n.Tangent.U, n.Tangent.V},
		})
	})
	return m
}

// Grid rebuilds and validates the grid stored in the document.
func (m *MGRD) Grid() (*mesh.Grid, error) {
	size := mesh.Size{Width: int(m.Width), Height: int(m.Height)}
	nodes := make([]mesh.Node, len(m.Nodes))
	for i, rec := range m.Nodes {
		nodes[i] = mesh.Node{
			Point:    mesh.Point{X: int(rec.Point[0]), Y: int(rec.Point[1])},
			Location: vec.Vec2{X: rec.Location[0], Y: rec.Location[1]},
			Color:    mesh.Color{R: rec.Color[0], G: rec.Color[1], B: rec.Color[2], A: rec.Color[3]},
			Tangent:  mesh.Tangent{U: rec.Tangent[0], V: rec.Tangent[1]},
		}
	}
	return mesh.FromNodes(size, nodes)
}

// ParseMGRD parses an MGRD file from raw bytes.
func ParseMGRD(data []byte) (*MGRD, error) {
	if len(data) < mgrdHeaderSize {
		return nil, ErrTruncatedMGRDData
	}

	if string(data[0:4]) != mgrdMagic {
		return nil, ErrInvalidMGRDMagic
	}

	// Version is stored as [minor, major]
	version := MGRDVersion{
		Major: data[5],
		Minor: data[4],
	}
	if version.Major != MGRDCurrentVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMGRDVersion, version)
	}

	m := &MGRD{Version: version}
	r := bytes.NewReader(data[6:])

	if _, err := r.Read(m.ID[:]); err != nil {
		return nil, fmt.Errorf("%w: reading id", ErrTruncatedMGRDData)
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Width); err != nil {
		return nil, fmt.Errorf("%w: reading width", ErrTruncatedMGRDData)
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Height); err != nil {
		return nil, fmt.Errorf("%w: reading height", ErrTruncatedMGRDData)
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Subdivisions); err != nil {
		return nil, fmt.Errorf("%w: reading subdivisions", ErrTruncatedMGRDData)
	}

	if m.Width < mesh.MinDimension || m.Height < mesh.MinDimension ||
		m.Width > maxMGRDSide || m.Height > maxMGRDSide {
		return nil, fmt.Errorf("invalid MGRD dimensions: %dx%d", m.Width, m.Height)
	}

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("%w: reading name length", ErrTruncatedMGRDData)
	}
	if nameLen > maxMGRDName {
		return nil, fmt.Errorf("invalid MGRD name length: %d", nameLen)
	}
	name := make([]byte, nameLen)
	if n, _ := r.Read(name); n != int(nameLen) {
		return nil, fmt.Errorf("%w: reading name", ErrTruncatedMGRDData)
	}
	m.Name = string(name)

	count := int(m.Width) * int(m.Height)
	if r.Len() < count*mgrdNodeSize {
		return nil, fmt.Errorf("%w: expected %d nodes", ErrTruncatedMGRDData, count)
	}

	m.Nodes = make([]MGRDNode, count)
	for i := range m.Nodes {
		if err := binary.Read(r, binary.LittleEndian, &m.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, ErrTruncatedMGRDData)
		}
	}

	return m, nil
}

// ParseMGRDFile parses an MGRD file from disk.
func ParseMGRDFile(path string) (*MGRD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MGRD file: %w", err)
	}
	return ParseMGRD(data)
}

// Encode serializes the document in the current MGRD version.
func (m *MGRD) Encode() ([]byte, error) {
	if len(m.Name) > maxMGRDName {
		return nil, fmt.Errorf("MGRD name too long: %d bytes", len(m.Name))
	}
	if int(m.Width)*int(m.Height) != len(m.Nodes) {
		return nil, fmt.Errorf("MGRD node count %d does not match %dx%d", len(m.Nodes), m.Width, m.Height)
	}
	for i, n := range m.Nodes {
		for _, v := range n.Location {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("MGRD node %d: non-finite location", i)
			}
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, mgrdHeaderSize+len(m.Name)+len(m.Nodes)*mgrdNodeSize))
	buf.WriteString(mgrdMagic)
	buf.WriteByte(MGRDCurrentVersion.Minor)
	buf.WriteByte(MGRDCurrentVersion.Major)
	buf.Write(m.ID[:])

	// bytes.Buffer writes cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, m.Width)
	_ = binary.Write(buf, binary.LittleEndian, m.Height)
	_ = binary.Write(buf, binary.LittleEndian, m.Subdivisions)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(m.Name)))
	buf.WriteString(m.Name)
	_ = binary.Write(buf, binary.LittleEndian, m.Nodes)

	return buf.Bytes(), nil
}

// WriteMGRDFile encodes m and writes it to path.
func WriteMGRDFile(path string, m *MGRD) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing MGRD file: %w", err)
	}
	return nil
}
