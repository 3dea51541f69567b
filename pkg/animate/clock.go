package animate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Clock delivers frame times. C is closed or never fires after Stop.
type Clock interface {
	C() <-chan time.Time
	Stop()
}

// TickerClock is a Clock backed by time.Ticker.
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock returns a clock firing fps times per second.
func NewTickerClock(fps int) (*TickerClock, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: fps %d", ErrInvalidOptions, fps)
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}, nil
}

// C returns the tick channel.
func (c *TickerClock) C() <-chan time.Time {
	return c.ticker.C
}

// Stop stops the underlying ticker.
func (c *TickerClock) Stop() {
	c.ticker.Stop()
}

// FrameFunc receives every committed grid. Its errors never stop Run.
type FrameFunc func(g *mesh.Grid) error

// Run ticks the animator on every clock event until ctx is done or Stop is
// called. The first event only establishes the time base. Errors from fn are
// passed to onErr when non-nil.
func (a *Animator) Run(ctx context.Context, clock Clock, fn FrameFunc, onErr func(error)) error {
	defer clock.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-clock.C():
			if !ok {
				return nil
			}
			if last.IsZero() {
				last = now
				continue
			}
			dt := now.Sub(last)
			last = now
			if dt < 0 {
				dt = 0
			}

			g, err := a.TickContext(ctx, dt)
			if errors.Is(err, ErrAnimationCancelled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			if err != nil {
				return err
			}
			if err := fn(g); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
