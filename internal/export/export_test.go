package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/grabber"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

func cornerGrid(t *testing.T) *mesh.Grid {
	t.Helper()
	g, err := mesh.NewGrid(2, 2)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	colors := []mesh.Color{
		mesh.RGB(1, 0, 0), mesh.RGB(0, 1, 0), // y = 0
		mesh.RGB(0, 0, 1), mesh.White, // y = 1
	}
	if err := g.Recolor(colors); err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}
	return g
}

func closeTo(c color.Color, want mesh.Color, tol int) bool {
	got := color.NRGBAModel.Convert(c).(color.NRGBA)
	w := want.NRGBA()
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return diff(got.R, w.R) <= tol && diff(got.G, w.G) <= tol && diff(got.B, w.B) <= tol && diff(got.A, w.A) <= tol
}

func TestRasterize_FullCoverage(t *testing.T) {
	g, err := mesh.NewGrid(4, 3)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	buf, err := tessellate.Generate(g, 6)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	img, err := Rasterize(context.Background(), buf, 97, 61, 3)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	for y := 0; y < 61; y++ {
		for x := 0; x < 97; x++ {
			if c := img.NRGBAAt(x, y); c != (color.NRGBA{255, 255, 255, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want opaque white", x, y, c)
			}
		}
	}
}

func TestRasterize_Orientation(t *testing.T) {
	buf, err := tessellate.Generate(cornerGrid(t), 18)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	const w, h = 64, 48
	img, err := Rasterize(context.Background(), buf, w, h, 0)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}

	tests := []struct {
		name string
		x, y int
		want mesh.Color
	}{
		{"bottom-left is grid (0,0)", 0, h - 1, mesh.RGB(1, 0, 0)},
		{"bottom-right is grid (1,0)", w - 1, h - 1, mesh.RGB(0, 1, 0)},
		{"top-left is grid (0,1)", 0, 0, mesh.RGB(0, 0, 1)},
		{"top-right is grid (1,1)", w - 1, 0, mesh.White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := img.At(tt.x, tt.y); !closeTo(c, tt.want, 12) {
				t.Errorf("pixel (%d,%d) = %v, want about %v", tt.x, tt.y, c, tt.want)
			}
		})
	}
}

func TestRasterize_Errors(t *testing.T) {
	buf, err := tessellate.Generate(cornerGrid(t), 4)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := Rasterize(context.Background(), buf, 0, 10, 1); !errors.Is(err, grabber.ErrInvalidViewSize) {
		t.Errorf("expected ErrInvalidViewSize, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Rasterize(ctx, buf, 10, 10, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{Width: 10, Height: 10}, false},
		{"zero width", Options{Height: 10}, true},
		{"supersample too large", Options{Width: 10, Height: 10, Supersample: 8}, true},
		{"negative supersample", Options{Width: 10, Height: 10, Supersample: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRenderer(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRenderer error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got := r.Options(); got.Supersample != 1 || got.Subdivisions != tessellate.DefaultSubdivisions {
					t.Errorf("defaults not applied: %+v", got)
				}
			}
		})
	}
}

func TestRenderer_Supersample(t *testing.T) {
	r, err := NewRenderer(Options{Width: 40, Height: 30, Subdivisions: 12, Supersample: 2, Workers: 2})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	img, err := r.Render(context.Background(), cornerGrid(t))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("expected 40x30, got %v", b)
	}
	if c := img.At(0, 29); !closeTo(c, mesh.RGB(1, 0, 0), 20) {
		t.Errorf("bottom-left = %v, want about red", c)
	}
	if c := img.At(39, 0); !closeTo(c, mesh.White, 20) {
		t.Errorf("top-right = %v, want about white", c)
	}
}

func TestRenderer_InvalidGrid(t *testing.T) {
	r, err := NewRenderer(Options{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	if _, err := r.Render(context.Background(), nil); !errors.Is(err, tessellate.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, "grad")

	if got := w.FrameName(7); got != filepath.Join(dir, "grad_00007.png") {
		t.Errorf("unexpected frame name %s", got)
	}
	if got := w.TimestampedName(); !strings.HasPrefix(filepath.Base(got), "grad_20") {
		t.Errorf("unexpected timestamped name %s", got)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(2, 1, color.NRGBA{10, 20, 30, 255})

	path, err := w.WriteImage(img)
	if err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if c := color.NRGBAModel.Convert(decoded.At(2, 1)).(color.NRGBA); c != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("round trip pixel = %v", c)
	}

	w.SetOutputDir("")
	if got := w.FrameName(1); got != "grad_00001.png" {
		t.Errorf("unexpected frame name without dir %s", got)
	}
}

func TestFrames(t *testing.T) {
	g, err := mesh.NewGrid(3, 3)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	anim, err := animate.WithMeshColors(g, animate.Options{Seed: 1})
	if err != nil {
		t.Fatalf("WithMeshColors failed: %v", err)
	}
	r, err := NewRenderer(Options{Width: 16, Height: 16, Subdivisions: 4})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	w := NewWriter(t.TempDir(), "frame")

	var calls int
	paths, err := r.Frames(context.Background(), anim, 4, 30, w, func(done, total int) {
		calls++
		if total != 4 || done != calls {
			t.Errorf("progress(%d, %d) after %d calls", done, total, calls)
		}
	})
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(paths) != 4 || calls != 4 {
		t.Fatalf("expected 4 frames and 4 progress calls, got %d and %d", len(paths), calls)
	}
	for i, p := range paths {
		if p != w.FrameName(i) {
			t.Errorf("frame %d written to %s", i, p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("frame %d missing: %v", i, err)
		}
	}

	if _, err := r.Frames(context.Background(), anim, 0, 30, w, nil); err == nil {
		t.Error("expected error for zero frames")
	}
}

// flakySource fails to produce a valid grid on selected frames.
type flakySource struct {
	grid   *mesh.Grid
	broken map[int]bool
	frame  int
	err    error
}

func (s *flakySource) Snapshot() *mesh.Grid {
	if s.broken[0] {
		return nil
	}
	return s.grid.Clone()
}

func (s *flakySource) TickContext(ctx context.Context, dt time.Duration) (*mesh.Grid, error) {
	s.frame++
	if s.err != nil {
		return nil, s.err
	}
	if s.broken[s.frame] {
		return nil, nil
	}
	return s.grid.Clone(), nil
}

func TestFrames_RepeatsLastGoodFrame(t *testing.T) {
	r, err := NewRenderer(Options{Width: 8, Height: 8, Subdivisions: 2})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	w := NewWriter(t.TempDir(), "f")

	src := &flakySource{grid: cornerGrid(t), broken: map[int]bool{2: true}}
	paths, err := r.Frames(context.Background(), src, 4, 10, w, nil)
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(paths))
	}

	a, _ := os.ReadFile(paths[1])
	b, _ := os.ReadFile(paths[2])
	if string(a) != string(b) {
		t.Error("broken frame did not repeat the previous image")
	}
}

func TestFrames_Errors(t *testing.T) {
	r, err := NewRenderer(Options{Width: 8, Height: 8, Subdivisions: 2})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	w := NewWriter(t.TempDir(), "f")

	// No good frame to fall back on.
	src := &flakySource{grid: cornerGrid(t), broken: map[int]bool{0: true}}
	if _, err := r.Frames(context.Background(), src, 2, 10, w, nil); !errors.Is(err, tessellate.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	src = &flakySource{grid: cornerGrid(t), err: animate.ErrAnimationCancelled}
	paths, err := r.Frames(context.Background(), src, 3, 10, w, nil)
	if !errors.Is(err, animate.ErrAnimationCancelled) {
		t.Errorf("expected ErrAnimationCancelled, got %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("expected the first frame to be written, got %d", len(paths))
	}
}

func TestJob(t *testing.T) {
	r, err := NewRenderer(Options{Width: 12, Height: 12, Subdivisions: 3})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	w := NewWriter(t.TempDir(), "bg")

	path, err := r.Start(context.Background(), cornerGrid(t), w).Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export missing: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Start(ctx, cornerGrid(t), w).Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWritePixels(t *testing.T) {
	w := NewWriter(t.TempDir(), "shot")

	// Two rows, bottom row first as read from GL.
	pixels := []byte{
		255, 0, 0, 255, 255, 0, 0, 255, // bottom
		0, 0, 255, 255, 0, 0, 255, 255, // top
	}
	path, err := w.WritePixels(pixels, 2, 2)
	if err != nil {
		t.Fatalf("WritePixels failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); c != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("top-left = %v, want blue", c)
	}
	if c := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA); c != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("bottom-right = %v, want red", c)
	}

	if _, err := w.WritePixels(pixels[:4], 2, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}
