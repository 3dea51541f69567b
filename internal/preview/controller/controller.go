// Package controller holds the interactive state of the live preview:
// dragging, key actions and per-frame tessellation. It has no window or GL
// dependencies.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/document"
	"github.com/Faultbox/meshkit/internal/logger"
	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/grabber"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

// Action is a user command bound to a key.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionToggleAnimation
	ActionNewPalette
	ActionResetAnimation
	ActionToggleGrabbers
	ActionMoreDetail
	ActionLessDetail
	ActionSave
	ActionExport
	ActionScreenshot
	ActionQuit
)

var actionNames = []string{"none", "toggle-animation", "new-palette", "reset-animation",
	"toggle-grabbers", "more-detail", "less-detail", "save", "export", "screenshot", "quit"}

// String returns the action name.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// Subdivision range and step for the detail actions. The document keeps the
// chosen count; the preview tessellator applies its own cap when drawing.
const (
	MinSubdivisions = 2
	MaxSubdivisions = 128
	SubdivisionStep = 4
)

// Options configures a Controller.
type Options struct {
	View               grabber.ViewSize
	GrabberRadius      float64
	PositionMultiplier float64
	ShowGrabbers       bool
	Animation          animate.Options
	Colors             animate.ColorSource
}

// Controller owns the preview state. It is driven from the render thread and
// is not safe for concurrent use.
type Controller struct {
	session *document.Session
	opts    Options
	tess    *tessellate.Tessellator

	anim      *animate.Animator
	animating bool

	dragging     bool
	dragX, dragY int

	showGrabbers bool
	display      *mesh.Grid
	last         *tessellate.Buffer
	stale        bool
}

// New creates a controller for session.
func New(session *document.Session, opts Options) (*Controller, error) {
	if !opts.View.Valid() {
		return nil, fmt.Errorf("%w: %vx%v", grabber.ErrInvalidViewSize, opts.View.Width, opts.View.Height)
	}
	if opts.PositionMultiplier <= 0 {
		opts.PositionMultiplier = mesh.DefaultPositionMultiplier
	}
	if opts.GrabberRadius <= 0 {
		opts.GrabberRadius = 10
	}
	if opts.Colors != nil && opts.Animation.Colors == nil {
		opts.Animation.Colors = opts.Colors
	}
	if opts.Animation.PositionMultiplier == 0 {
		opts.Animation.PositionMultiplier = opts.PositionMultiplier
	}

	return &Controller{
		session:      session,
		opts:         opts,
		tess:         tessellate.New(1),
		showGrabbers: opts.ShowGrabbers,
		display:      session.Snapshot(),
		stale:        true,
	}, nil
}

// Animating reports whether the animated mesh is running.
func (c *Controller) Animating() bool {
	return c.animating
}

// Dragging reports whether a grabber is held.
func (c *Controller) Dragging() bool {
	return c.dragging
}

// Subdivisions returns the document subdivision count.
func (c *Controller) Subdivisions() int {
	return c.session.Subdivisions()
}

// Resize updates the view size used for grabber mapping.
func (c *Controller) Resize(width, height int) {
	view := grabber.ViewSize{Width: float64(width), Height: float64(height)}
	if view.Valid() {
		c.opts.View = view
	}
}

// View returns the current view size.
func (c *Controller) View() grabber.ViewSize {
	return c.opts.View
}

// Grabbers returns the screen positions of the control points, or nil while
// they are hidden.
func (c *Controller) Grabbers() []vec.Vec2 {
	if !c.showGrabbers || c.animating {
		return nil
	}
	out := make([]vec.Vec2, 0, c.display.Size().Count())
	c.display.Each(func(n mesh.Node) {
		out = append(out, grabber.GridToScreen(n.Location, c.display.Size(), c.opts.View))
	})
	return out
}

// PointerDown starts a drag when p hits a grabber. Returns true if it did.
func (c *Controller) PointerDown(p vec.Vec2) bool {
	if c.animating || !c.showGrabbers {
		return false
	}
	x, y, ok := grabber.HitTest(c.display, p, c.opts.View, c.opts.GrabberRadius)
	if !ok {
		return false
	}
	c.dragging, c.dragX, c.dragY = true, x, y
	return true
}

// PointerMove moves the held grabber to p.
func (c *Controller) PointerMove(p vec.Vec2) error {
	if !c.dragging {
		return nil
	}
	err := c.session.Update(func(g *mesh.Grid) error {
		_, err := grabber.Drag(g, c.dragX, c.dragY, p, c.opts.View, c.opts.PositionMultiplier)
		return err
	})
	if err != nil {
		return err
	}
	c.stale = true
	return nil
}

// PointerUp releases the held grabber.
func (c *Controller) PointerUp() {
	c.dragging = false
}

// Apply performs a key action. Save, export, screenshot and quit are left
// to the caller.
func (c *Controller) Apply(a Action) error {
	switch a {
	case ActionToggleAnimation:
		return c.toggleAnimation()
	case ActionNewPalette:
		return c.newPalette()
	case ActionResetAnimation:
		if c.anim != nil {
			c.anim.Reset()
			c.stale = true
		}
	case ActionToggleGrabbers:
		c.showGrabbers = !c.showGrabbers
	case ActionMoreDetail:
		c.setSubdivisions(c.session.Subdivisions() + SubdivisionStep)
	case ActionLessDetail:
		c.setSubdivisions(c.session.Subdivisions() - SubdivisionStep)
	}
	return nil
}

func (c *Controller) setSubdivisions(n int) {
	n = max(MinSubdivisions, min(n, MaxSubdivisions))
	if n == c.session.Subdivisions() {
		return
	}
	c.session.SetSubdivisions(n)
	c.stale = true
	logger.Debug("preview subdivisions changed", zap.Int("subdivisions", n))
}

func (c *Controller) toggleAnimation() error {
	if c.animating {
		c.anim.Stop()
		c.anim = nil
		c.animating = false
		c.stale = true
		return nil
	}

	anim, err := animate.WithMeshColors(c.session.Snapshot(), c.opts.Animation)
	if err != nil {
		return err
	}
	c.PointerUp()
	c.anim = anim
	c.animating = true
	return nil
}

func (c *Controller) newPalette() error {
	if c.opts.Colors == nil {
		return errors.New("no palette configured")
	}
	if c.animating {
		if err := c.anim.NewPalette(); err != nil {
			return err
		}
		c.stale = true
		return nil
	}

	err := c.session.Update(func(g *mesh.Grid) error {
		return g.Recolor(c.opts.Colors.Colors(g.Size().Count()))
	})
	if err != nil {
		return err
	}
	c.stale = true
	return nil
}

// ExportSnapshot returns the grid currently on screen.
func (c *Controller) ExportSnapshot() *mesh.Grid {
	if c.animating {
		return c.anim.Snapshot()
	}
	return c.session.Snapshot()
}

// Frame advances the animation by dt when it runs and returns the buffer to
// draw. changed is false when the previous buffer is still current. Errors
// are logged and the last good buffer is kept.
func (c *Controller) Frame(ctx context.Context, dt time.Duration) (buf *tessellate.Buffer, changed bool) {
	switch {
	case c.animating:
		g, err := c.anim.TickContext(ctx, dt)
		if err != nil {
			logger.Warn("animation tick failed", zap.Error(err))
			return c.last, false
		}
		c.display = g
	case c.stale:
		c.display = c.session.Snapshot()
	default:
		return c.last, false
	}

	next, err := c.tess.GenerateContext(ctx, c.display, c.session.Subdivisions(), tessellate.Preview)
	if err != nil {
		logger.Warn("tessellation failed, keeping previous frame", zap.Error(err))
		return c.last, false
	}
	c.last = next
	c.stale = false
	return next, true
}
