// Package export renders mesh grids to images and image sequences.
package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/grabber"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

// bandHeight is the number of image rows one raster task fills.
const bandHeight = 32

// edgeEpsilon widens triangle coverage so shared edges leave no holes.
const edgeEpsilon = 1e-7

type screenTri struct {
	p      [3]vec.Vec2
	c      [3][4]float32
	minY   int
	maxY   int
	minX   int
	maxX   int
	invDen float64
}

// Rasterize draws the buffer into a width x height image with Gouraud
// shading. Grid y = 0 lands on the bottom image row, matching the grabbers.
func Rasterize(ctx context.Context, buf *tessellate.Buffer, width, height, workers int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", grabber.ErrInvalidViewSize, width, height)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	view := grabber.ViewSize{Width: float64(width), Height: float64(height)}
	tris := project(buf, view)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += bandHeight {
		y1 := min(y0+bandHeight, height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fillBand(img, tris, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}

func project(buf *tessellate.Buffer, view grabber.ViewSize) []screenTri {
	tris := make([]screenTri, 0, buf.TriangleCount())
	for i := 0; i+2 < len(buf.Indices); i += 3 {
		var t screenTri
		for k := 0; k < 3; k++ {
			v := buf.Vertices[buf.Indices[i+k]]
			loc := vec.Vec2{X: float64(v.Position[0]), Y: float64(v.Position[1])}
			t.p[k] = grabber.GridToScreen(loc, buf.Size, view)
			t.c[k] = v.Color
		}

		den := (t.p[1].Y-t.p[2].Y)*(t.p[0].X-t.p[2].X) + (t.p[2].X-t.p[1].X)*(t.p[0].Y-t.p[2].Y)
		if den == 0 {
			continue
		}
		t.invDen = 1 / den

		minX := math.Min(t.p[0].X, math.Min(t.p[1].X, t.p[2].X))
		maxX := math.Max(t.p[0].X, math.Max(t.p[1].X, t.p[2].X))
		minY := math.Min(t.p[0].Y, math.Min(t.p[1].Y, t.p[2].Y))
		maxY := math.Max(t.p[0].Y, math.Max(t.p[1].Y, t.p[2].Y))
		t.minX = int(math.Floor(minX - 0.5))
		t.maxX = int(math.Ceil(maxX - 0.5))
		t.minY = int(math.Floor(minY - 0.5))
		t.maxY = int(math.Ceil(maxY - 0.5))
		tris = append(tris, t)
	}
	return tris
}

// fillBand shades pixel rows [y0, y1). Pixel centres are sampled.
func fillBand(img *image.NRGBA, tris []screenTri, y0, y1 int) {
	bounds := img.Bounds()
	for i := range tris {
		t := &tris[i]
		if t.maxY < y0 || t.minY >= y1 {
			continue
		}
		ys, ye := max(t.minY, y0), min(t.maxY, y1-1)
		xs, xe := max(t.minX, bounds.Min.X), min(t.maxX, bounds.Max.X-1)

		for py := ys; py <= ye; py++ {
			cy := float64(py) + 0.5
			for px := xs; px <= xe; px++ {
				cx := float64(px) + 0.5
				w0 := ((t.p[1].Y-t.p[2].Y)*(cx-t.p[2].X) + (t.p[2].X-t.p[1].X)*(cy-t.p[2].Y)) * t.invDen
				w1 := ((t.p[2].Y-t.p[0].Y)*(cx-t.p[2].X) + (t.p[0].X-t.p[2].X)*(cy-t.p[2].Y)) * t.invDen
				w2 := 1 - w0 - w1
				if w0 < -edgeEpsilon || w1 < -edgeEpsilon || w2 < -edgeEpsilon {
					continue
				}
				img.SetNRGBA(px, py, shade(t.c, w0, w1, w2))
			}
		}
	}
}

func shade(c [3][4]float32, w0, w1, w2 float64) color.NRGBA {
	var out [4]uint8
	for i := range out {
		v := w0*float64(c[0][i]) + w1*float64(c[1][i]) + w2*float64(c[2][i])
		out[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}
