package export

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

// MaxSupersample bounds the supersampling factor.
const MaxSupersample = 4

// Options configures a Renderer.
type Options struct {
	Width        int
	Height       int
	Subdivisions int
	Supersample  int // 1 disables supersampling
	Workers      int // 0 uses GOMAXPROCS
}

// Renderer turns grids into images at export quality.
type Renderer struct {
	opts Options
	tess *tessellate.Tessellator
}

// NewRenderer validates opts and returns a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid export size %dx%d", opts.Width, opts.Height)
	}
	if opts.Supersample == 0 {
		opts.Supersample = 1
	}
	if opts.Supersample < 1 || opts.Supersample > MaxSupersample {
		return nil, fmt.Errorf("supersample %d outside [1, %d]", opts.Supersample, MaxSupersample)
	}
	if opts.Subdivisions == 0 {
		opts.Subdivisions = tessellate.DefaultSubdivisions
	}
	return &Renderer{opts: opts, tess: tessellate.New(opts.Workers)}, nil
}

// Options returns the effective options.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render tessellates g at the configured subdivisions and rasterizes it.
func (r *Renderer) Render(ctx context.Context, g *mesh.Grid) (image.Image, error) {
	start := time.Now()

	buf, err := r.tess.GenerateContext(ctx, g, r.opts.Subdivisions, tessellate.Export)
	if err != nil {
		return nil, err
	}

	ss := r.opts.Supersample
	big, err := Rasterize(ctx, buf, r.opts.Width*ss, r.opts.Height*ss, r.opts.Workers)
	if err != nil {
		return nil, err
	}

	var out image.Image = big
	if ss > 1 {
		small := image.NewNRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
		draw.BiLinear.Scale(small, small.Bounds(), big, big.Bounds(), draw.Src, nil)
		out = small
	}

	logger.Debug("mesh rendered",
		zap.Stringer("grid", g.Size()),
		zap.Int("subdivisions", buf.Subdivisions),
		zap.Int("triangles", buf.TriangleCount()),
		zap.Int("supersample", ss),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
