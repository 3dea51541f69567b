package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// FrameSource produces successive grids; *animate.Animator satisfies it.
type FrameSource interface {
	Snapshot() *mesh.Grid
	TickContext(ctx context.Context, dt time.Duration) (*mesh.Grid, error)
}

// Frames renders count frames at fps and writes them as a numbered PNG
// sequence. Frame 0 is the source's current state. A frame that fails to
// render repeats the last good image; progress, when non-nil, is called
// after each written frame.
func (r *Renderer) Frames(ctx context.Context, src FrameSource, count, fps int, w *Writer, progress func(done, total int)) ([]string, error) {
	if count <= 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid frame sequence: %d frames at %d fps", count, fps)
	}
	dt := time.Second / time.Duration(fps)
	log := logger.Named("export")

	var last image.Image
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var g *mesh.Grid
		if i == 0 {
			g = src.Snapshot()
		} else {
			var err error
			if g, err = src.TickContext(ctx, dt); err != nil {
				return paths, fmt.Errorf("frame %d: %w", i, err)
			}
		}

		img, err := r.Render(ctx, g)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return paths, err
		case err != nil && last == nil:
			return paths, fmt.Errorf("frame %d: %w", i, err)
		case err != nil:
			log.Warn("frame render failed, repeating previous frame", zap.Int("frame", i), zap.Error(err))
			img = last
		}
		last = img

		name := w.FrameName(i)
		if err := w.Write(img, name); err != nil {
			return paths, err
		}
		paths = append(paths, name)
		if progress != nil {
			progress(i+1, count)
		}
	}

	log.Info("frame sequence written", zap.Int("frames", len(paths)), zap.Int("fps", fps))
	return paths, nil
}

// Job is a single export running in the background.
type Job struct {
	group  *errgroup.Group
	cancel context.CancelFunc
	path   string
}

// Start renders g on a background goroutine and writes it under a
// timestamped name. g should be a snapshot the caller no longer mutates.
func (r *Renderer) Start(ctx context.Context, g *mesh.Grid, w *Writer) *Job {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	job := &Job{group: eg, cancel: cancel}

	eg.Go(func() error {
		img, err := r.Render(ctx, g)
		if err != nil {
			return err
		}
		name := w.TimestampedName()
		if err := w.Write(img, name); err != nil {
			return err
		}
		job.path = name
		return nil
	})
	return job
}

// Wait blocks until the export finishes and returns the written path.
func (j *Job) Wait() (string, error) {
	defer j.cancel()
	if err := j.group.Wait(); err != nil {
		return "", err
	}
	return j.path, nil
}

// Cancel stops the export. Wait still has to be called.
func (j *Job) Cancel() {
	j.cancel()
}
