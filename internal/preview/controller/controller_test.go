package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Faultbox/meshkit/internal/document"
	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/grabber"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

var red = mesh.RGB(1, 0, 0)

func newController(t *testing.T) (*Controller, *document.Session) {
	t.Helper()
	doc, err := document.New("preview", 3, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	doc.Subdivisions = 8
	s := document.NewSession(doc, "")

	c, err := New(s, Options{
		View:          grabber.ViewSize{Width: 200, Height: 200},
		GrabberRadius: 10,
		ShowGrabbers:  true,
		Animation:     animate.Options{Seed: 1},
		Colors: animate.ColorSourceFunc(func(n int) []mesh.Color {
			out := make([]mesh.Color, n)
			for i := range out {
				out[i] = red
			}
			return out
		}),
	})
	if err != nil {
		t.Fatalf("controller New failed: %v", err)
	}
	return c, s
}

func TestNew_InvalidView(t *testing.T) {
	doc, _ := document.New("x", 3, 3)
	if _, err := New(document.NewSession(doc, ""), Options{}); !errors.Is(err, grabber.ErrInvalidViewSize) {
		t.Errorf("expected ErrInvalidViewSize, got %v", err)
	}
}

func TestFrame_OnlyRebuildsWhenStale(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()

	buf, changed := c.Frame(ctx, 16*time.Millisecond)
	if !changed || buf == nil {
		t.Fatal("first frame should build a buffer")
	}
	if buf.Columns != 17 || buf.Rows != 17 {
		t.Errorf("expected 17x17 lattice, got %dx%d", buf.Columns, buf.Rows)
	}

	again, changed := c.Frame(ctx, 16*time.Millisecond)
	if changed || again != buf {
		t.Error("idle frame should reuse the previous buffer")
	}
}

func TestDrag(t *testing.T) {
	c, s := newController(t)

	// Centre node (1,1) is at the middle of the view.
	if !c.PointerDown(vec.Vec2{X: 103, Y: 98}) {
		t.Fatal("expected to grab the centre node")
	}
	if err := c.PointerMove(vec.Vec2{X: 120, Y: 80}); err != nil {
		t.Fatalf("PointerMove failed: %v", err)
	}
	c.PointerUp()
	if c.Dragging() {
		t.Error("still dragging after PointerUp")
	}

	got := s.Snapshot().At(1, 1).Location
	want := vec.Vec2{X: 1.2, Y: 1.2}
	if got.Distance(want) > 1e-9 {
		t.Errorf("dragged to %v, want %v", got, want)
	}
	if !s.Dirty() {
		t.Error("session should be dirty after a drag")
	}

	// Moves after release are ignored.
	if err := c.PointerMove(vec.Vec2{X: 0, Y: 0}); err != nil {
		t.Fatalf("PointerMove failed: %v", err)
	}
	if s.Snapshot().At(1, 1).Location != got {
		t.Error("move without a held grabber changed the grid")
	}

	if c.PointerDown(vec.Vec2{X: 50, Y: 50}) {
		t.Error("grabbed empty space")
	}
}

func TestDrag_EdgeNodeStaysPinned(t *testing.T) {
	c, s := newController(t)

	// Node (0,1) sits at the left edge, vertically centred.
	if !c.PointerDown(vec.Vec2{X: 2, Y: 100}) {
		t.Fatal("expected to grab the edge node")
	}
	if err := c.PointerMove(vec.Vec2{X: 60, Y: 100}); err != nil {
		t.Fatalf("PointerMove failed: %v", err)
	}
	if loc := s.Snapshot().At(0, 1).Location; loc != (vec.Vec2{X: 0, Y: 1}) {
		t.Errorf("edge node moved to %v", loc)
	}
}

func TestAnimation(t *testing.T) {
	c, s := newController(t)
	ctx := context.Background()
	base := s.Snapshot()

	if err := c.Apply(ActionToggleAnimation); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !c.Animating() {
		t.Fatal("expected animation to run")
	}
	if c.Grabbers() != nil {
		t.Error("grabbers should be hidden while animating")
	}
	if c.PointerDown(vec.Vec2{X: 100, Y: 100}) {
		t.Error("dragging should be disabled while animating")
	}

	for range 30 {
		if _, changed := c.Frame(ctx, 50*time.Millisecond); !changed {
			t.Fatal("animated frames should always change")
		}
	}
	if !s.Snapshot().Equal(base) {
		t.Error("animation modified the session grid")
	}
	if c.ExportSnapshot().Equal(base) {
		t.Error("export snapshot should follow the animation")
	}

	if err := c.Apply(ActionToggleAnimation); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	buf, changed := c.Frame(ctx, 0)
	if c.Animating() || !changed {
		t.Fatal("stopping should rebuild from the session")
	}
	if v := buf.ControlVertex(1, 1); v.Position[0] != 1 || v.Position[1] != 1 {
		t.Errorf("centre vertex at %v after stop, want (1,1)", v.Position)
	}
}

func TestNewPalette(t *testing.T) {
	c, s := newController(t)

	if err := c.Apply(ActionNewPalette); err != nil {
		t.Fatalf("new palette failed: %v", err)
	}
	for _, n := range s.Snapshot().Nodes() {
		if n.Color != red {
			t.Fatalf("node %v colour = %v", n.Point, n.Color)
		}
	}

	buf, changed := c.Frame(context.Background(), 0)
	if !changed {
		t.Fatal("palette change should rebuild the buffer")
	}
	if col := buf.VertexAt(3, 5).Color; col != red.Array() {
		t.Errorf("vertex colour %v, want red", col)
	}
}

func TestDetail(t *testing.T) {
	c, _ := newController(t)

	if err := c.Apply(ActionMoreDetail); err != nil {
		t.Fatal(err)
	}
	if c.Subdivisions() != 12 {
		t.Errorf("expected 12 subdivisions, got %d", c.Subdivisions())
	}

	for range 40 {
		_ = c.Apply(ActionMoreDetail)
	}
	if c.Subdivisions() != MaxSubdivisions {
		t.Errorf("expected cap %d, got %d", MaxSubdivisions, c.Subdivisions())
	}

	for range 40 {
		_ = c.Apply(ActionLessDetail)
	}
	if c.Subdivisions() != MinSubdivisions {
		t.Errorf("expected floor %d, got %d", MinSubdivisions, c.Subdivisions())
	}
}

func TestDetail_KeepsExportCount(t *testing.T) {
	c, s := newController(t)
	s.SetSubdivisions(64)

	if err := c.Apply(ActionMoreDetail); err != nil {
		t.Fatal(err)
	}
	if c.Subdivisions() != 68 {
		t.Errorf("expected 68 subdivisions, got %d", c.Subdivisions())
	}
	if s.Subdivisions() != 68 {
		t.Errorf("session kept %d subdivisions, want 68", s.Subdivisions())
	}

	buf, changed := c.Frame(context.Background(), 0)
	if !changed {
		t.Fatal("detail change should rebuild the buffer")
	}
	if buf.Subdivisions != tessellate.MaxPreviewSubdivisions {
		t.Errorf("preview drew %d subdivisions, want cap %d", buf.Subdivisions, tessellate.MaxPreviewSubdivisions)
	}

	if err := c.Apply(ActionLessDetail); err != nil {
		t.Fatal(err)
	}
	if c.Subdivisions() != 64 {
		t.Errorf("expected 64 subdivisions, got %d", c.Subdivisions())
	}
}

func TestGrabbers(t *testing.T) {
	c, _ := newController(t)

	pts := c.Grabbers()
	if len(pts) != 9 {
		t.Fatalf("expected 9 grabbers, got %d", len(pts))
	}
	if pts[0] != (vec.Vec2{X: 0, Y: 200}) {
		t.Errorf("grabber (0,0) at %v, want bottom-left", pts[0])
	}

	c.Resize(400, 100)
	if pts := c.Grabbers(); pts[8] != (vec.Vec2{X: 400, Y: 0}) {
		t.Errorf("grabber (2,2) at %v after resize", pts[8])
	}
	c.Resize(0, 100)
	if c.View().Width != 400 {
		t.Error("invalid resize should be ignored")
	}

	_ = c.Apply(ActionToggleGrabbers)
	if c.Grabbers() != nil {
		t.Error("grabbers should be hidden")
	}
	if c.PointerDown(vec.Vec2{X: 200, Y: 50}) {
		t.Error("hidden grabbers should not be draggable")
	}
}

func TestActionString(t *testing.T) {
	if ActionExport.String() != "export" {
		t.Errorf("unexpected name %q", ActionExport.String())
	}
	if Action(99).String() != "Action(99)" {
		t.Errorf("unexpected name %q", Action(99).String())
	}
}
