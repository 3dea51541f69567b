// Package animate drives the "animated mesh" mode: a stream of grid states in
// which interior control points drift toward random targets and colours
// optionally blend toward freshly generated ones.
package animate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Animation errors.
var (
	ErrAnimationCancelled = errors.New("animation cancelled")
	ErrInvalidDelta       = errors.New("invalid tick delta")
	ErrInvalidOptions     = errors.New("invalid animation options")
)

// Speed range limits accepted by Options.
const (
	MinTransition = time.Second
	MaxTransition = 16 * time.Second
)

// maxTransitionsPerTick bounds how many back-to-back transitions a single
// huge dt may complete for one node.
const maxTransitionsPerTick = 64

// ColorSource supplies replacement colours. Implementations must return
// exactly count colours.
type ColorSource interface {
	Colors(count int) []mesh.Color
}

// ColorSourceFunc adapts a function to ColorSource.
type ColorSourceFunc func(count int) []mesh.Color

// Colors calls f(count).
func (f ColorSourceFunc) Colors(count int) []mesh.Color {
	return f(count)
}

// SpeedRange bounds the duration of a single transition.
type SpeedRange struct {
	Min time.Duration
	Max time.Duration
}

// DefaultSpeedRange is used when Options leaves the range empty.
var DefaultSpeedRange = SpeedRange{Min: 2 * time.Second, Max: 4 * time.Second}

// Options configures an Animator.
type Options struct {
	// PositionMultiplier is the half-width k of the window [coord-k, coord+k)
	// interior nodes may wander in. Zero means mesh.DefaultPositionMultiplier.
	PositionMultiplier float64

	// Speed bounds the duration of each transition. Zero means DefaultSpeedRange.
	Speed SpeedRange

	// AnimateColors blends every node toward a colour from Colors.
	AnimateColors bool

	// Colors supplies new colours for AnimateColors and NewPalette.
	Colors ColorSource

	// Seed makes the random target sequence reproducible.
	Seed uint64
}

func (o *Options) normalize() error {
	if o.PositionMultiplier == 0 {
		o.PositionMultiplier = mesh.DefaultPositionMultiplier
	}
	if o.PositionMultiplier < 0 {
		return fmt.Errorf("%w: negative position multiplier %v", ErrInvalidOptions, o.PositionMultiplier)
	}
	if o.Speed == (SpeedRange{}) {
		o.Speed = DefaultSpeedRange
	}
	if o.Speed.Min < MinTransition || o.Speed.Max > MaxTransition || o.Speed.Min > o.Speed.Max {
		return fmt.Errorf("%w: speed range %v..%v outside %v..%v", ErrInvalidOptions, o.Speed.Min, o.Speed.Max, MinTransition, MaxTransition)
	}
	if o.AnimateColors && o.Colors == nil {
		return fmt.Errorf("%w: AnimateColors requires a colour source", ErrInvalidOptions)
	}
	return nil
}

// transition is one node's journey from a start state to a target state.
type transition struct {
	fromLoc, toLoc     math.Vec2
	fromColor, toColor mesh.Color
	duration           time.Duration
	elapsed            time.Duration
}

// state is everything a tick mutates. Ticks work on a copy and swap it in
// only when complete.
type state struct {
	grid        *mesh.Grid
	transitions []transition
	rng         *rand.Rand
	pcg         rand.PCG
}

func (s *state) clone() *state {
	c := &state{
		grid:        s.grid.Clone(),
		transitions: make([]transition, len(s.transitions)),
		pcg:         s.pcg,
	}
	copy(c.transitions, s.transitions)
	c.rng = rand.New(&c.pcg)
	return c
}

// Animator produces successive grid states. Ticks are serialized; a tick
// either commits fully or leaves the animator untouched.
type Animator struct {
	mu       sync.Mutex
	opts     Options
	baseline *mesh.Grid
	cur      *state
	stopped  bool
}

// WithMeshColors captures a snapshot of g as the animation baseline.
func WithMeshColors(g *mesh.Grid, opts Options) (*Animator, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", mesh.ErrInvalidGridSize)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	a := &Animator{
		opts:     opts,
		baseline: g.Clone(),
	}
	a.cur = a.freshState(a.baseline.Clone())
	return a, nil
}

func (a *Animator) freshState(g *mesh.Grid) *state {
	s := &state{grid: g, transitions: make([]transition, g.Size().Count())}
	s.pcg = *rand.NewPCG(a.opts.Seed, a.opts.Seed^0x9e3779b97f4a7c15)
	s.rng = rand.New(&s.pcg)

	var palette []mesh.Color
	if a.opts.AnimateColors {
		palette = a.opts.Colors.Colors(len(s.transitions))
	}
	for i, n := range g.Nodes() {
		s.transitions[i] = a.newTransition(s.rng, g.Size(), n, colorAt(palette, i, n.Color))
	}
	return s
}

func colorAt(palette []mesh.Color, i int, fallback mesh.Color) mesh.Color {
	if i < len(palette) {
		return palette[i].Clamp()
	}
	return fallback
}

// newTransition starts a transition from n's current state. Edge nodes keep
// their location.
func (a *Animator) newTransition(rng *rand.Rand, size mesh.Size, n mesh.Node, target mesh.Color) transition {
	to := n.Location
	if px, py := mesh.Pinned(size, n.Point); !px && !py {
		k := a.opts.PositionMultiplier
		to = math.Vec2{
			X: float64(n.Point.X) - k + rng.Float64()*2*k,
			Y: float64(n.Point.Y) - k + rng.Float64()*2*k,
		}
		to = mesh.Constrain(size, n.Point, to, k)
	}

	span := a.opts.Speed.Max - a.opts.Speed.Min
	d := a.opts.Speed.Min
	if span > 0 {
		d += time.Duration(rng.Int64N(int64(span) + 1))
	}

	return transition{
		fromLoc:   n.Location,
		toLoc:     to,
		fromColor: n.Color,
		toColor:   target,
		duration:  d,
	}
}

// Tick advances the animation by dt and returns a snapshot of the new grid.
func (a *Animator) Tick(dt time.Duration) (*mesh.Grid, error) {
	return a.TickContext(context.Background(), dt)
}

// TickContext advances the animation by dt. If ctx is cancelled or Stop has
// been called before the tick commits, it returns ErrAnimationCancelled and
// the animator keeps its pre-tick state.
func (a *Animator) TickContext(ctx context.Context, dt time.Duration) (*mesh.Grid, error) {
	if dt < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped || ctx.Err() != nil {
		return nil, ErrAnimationCancelled
	}

	next := a.cur.clone()
	if err := a.advance(ctx, next, dt); err != nil {
		return nil, err
	}

	if a.stopped || ctx.Err() != nil {
		return nil, ErrAnimationCancelled
	}
	a.cur = next
	return next.grid.Clone(), nil
}

func (a *Animator) advance(ctx context.Context, s *state, dt time.Duration) error {
	size := s.grid.Size()
	k := a.opts.PositionMultiplier

	for y := range size.Height {
		if ctx.Err() != nil {
			return ErrAnimationCancelled
		}
		for x := range size.Width {
			i := y*size.Width + x
			tr := &s.transitions[i]
			n := s.grid.At(x, y)

			remaining := dt
			for range maxTransitionsPerTick {
				if tr.elapsed+remaining < tr.duration {
					tr.elapsed += remaining
					break
				}
				remaining -= tr.duration - tr.elapsed
				n.Location = tr.toLoc
				if a.opts.AnimateColors {
					n.Color = tr.toColor
				}
				target := n.Color
				if a.opts.AnimateColors {
					target = a.opts.Colors.Colors(1)[0]
				}
				*tr = a.newTransition(s.rng, size, n, target)
			}

			t := smoothstep(float64(tr.elapsed) / float64(tr.duration))
			n.Location = mesh.Constrain(size, n.Point, tr.fromLoc.Lerp(tr.toLoc, t), k)
			if a.opts.AnimateColors {
				n.Color = tr.fromColor.Lerp(tr.toColor, t).Clamp()
			}
			s.grid.Set(x, y, n)
		}
	}
	return nil
}

func smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// NewPalette replaces every node colour with colours from the configured
// source. Grid size and points are unchanged; running transitions restart
// from the new colours.
func (a *Animator) NewPalette() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.opts.Colors == nil {
		return fmt.Errorf("%w: no colour source", ErrInvalidOptions)
	}

	next := a.cur.clone()
	if err := next.grid.Recolor(a.opts.Colors.Colors(next.grid.Size().Count())); err != nil {
		return err
	}

	var palette []mesh.Color
	if a.opts.AnimateColors {
		palette = a.opts.Colors.Colors(len(next.transitions))
	}
	for i, n := range next.grid.Nodes() {
		tr := &next.transitions[i]
		tr.fromColor = n.Color
		tr.toColor = colorAt(palette, i, n.Color)
	}
	a.cur = next
	return nil
}

// Snapshot returns a copy of the current grid.
func (a *Animator) Snapshot() *mesh.Grid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur.grid.Clone()
}

// Reset returns to the baseline grid and clears a previous Stop.
func (a *Animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cur = a.freshState(a.baseline.Clone())
	a.stopped = false
}

// Stop cancels the animation. Pending and future ticks return
// ErrAnimationCancelled; the last committed state stays available.
func (a *Animator) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

// Stopped reports whether Stop has been called since the last Reset.
func (a *Animator) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}
