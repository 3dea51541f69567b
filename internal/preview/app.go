package preview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/config"
	"github.com/Faultbox/meshkit/internal/document"
	"github.com/Faultbox/meshkit/internal/export"
	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/internal/preview/controller"
	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/grabber"
)

// App is the live preview: window, GL renderer and the interactive controller.
type App struct {
	cfg     *config.Config
	session *document.Session
	log     *zap.Logger

	window   *Window
	renderer *Renderer
	input    *Input
	ctrl     *controller.Controller

	exportOpts export.Options
	writer     *export.Writer
	jobs       sync.WaitGroup

	title string
}

// New creates the preview window for session. colors feeds the new palette
// action and may be nil.
func New(cfg *config.Config, session *document.Session, colors animate.ColorSource) (*App, error) {
	log := logger.Named("preview")
	log.Info("initializing preview",
		zap.Int("width", cfg.Preview.Width),
		zap.Int("height", cfg.Preview.Height),
		zap.Bool("fullscreen", cfg.Preview.Fullscreen),
	)

	a := &App{
		cfg:     cfg,
		session: session,
		log:     log,
		title:   "meshview - " + session.Name(),
	}

	a.exportOpts = export.Options{
		Width:        cfg.Export.Width,
		Height:       cfg.Export.Height,
		Subdivisions: cfg.Export.Subdivisions,
		Supersample:  cfg.Export.Supersample,
		Workers:      cfg.Export.Workers,
	}
	if _, err := export.NewRenderer(a.exportOpts); err != nil {
		return nil, fmt.Errorf("export renderer: %w", err)
	}
	a.writer = export.NewWriter(cfg.Export.OutputDir, cfg.Export.Prefix)

	// Window first, the renderer needs its GL context.
	var err error
	a.window, err = NewWindow(WindowConfig{
		Title:      a.title,
		Width:      cfg.Preview.Width,
		Height:     cfg.Preview.Height,
		Fullscreen: cfg.Preview.Fullscreen,
		VSync:      cfg.Preview.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	dw, dh := a.window.DrawableSize()
	a.renderer, err = NewRenderer(dw, dh)
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	ww, wh := a.window.Size()
	a.ctrl, err = controller.New(session, controller.Options{
		View:               grabber.ViewSize{Width: float64(ww), Height: float64(wh)},
		GrabberRadius:      cfg.Preview.GrabberRadius,
		PositionMultiplier: cfg.Mesh.PositionMultiplier,
		ShowGrabbers:       cfg.Preview.ShowGrabbers,
		Animation: animate.Options{
			PositionMultiplier: cfg.Mesh.PositionMultiplier,
			Speed:              cfg.Animation.SpeedRange(),
			AnimateColors:      cfg.Animation.AnimateColors,
			Seed:               cfg.Palette.Seed,
		},
		Colors: colors,
	})
	if err != nil {
		a.renderer.Close()
		a.window.Close()
		return nil, err
	}

	a.input = NewInput()

	if cfg.Animation.Enabled {
		if err := a.ctrl.Apply(controller.ActionToggleAnimation); err != nil {
			log.Warn("could not start animation", zap.Error(err))
		}
	}

	log.Info("preview initialized")
	return a, nil
}

// Run drives the frame loop until the window closes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting preview loop")

	for ctx.Err() == nil {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		quit := a.input.Update()
		for _, event := range a.input.Events() {
			if a.handle(ctx, event) {
				quit = true
			}
		}
		if quit {
			break
		}

		if buf, changed := a.ctrl.Frame(ctx, dt); changed {
			a.renderer.UploadMesh(buf)
		}

		scale := a.pixelScale()
		a.renderer.UploadGrabbers(a.ctrl.Grabbers(), scale)
		a.renderer.Draw(a.cfg.Preview.GrabberRadius * scale)
		a.window.SwapBuffers()
		a.updateTitle()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", dt))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// handle applies one input event. Returns true when the app should quit.
func (a *App) handle(ctx context.Context, event Event) bool {
	switch event.Type {
	case EventQuit:
		return true

	case EventWindowResize:
		ww, wh := a.window.Size()
		a.ctrl.Resize(ww, wh)
		dw, dh := a.window.DrawableSize()
		a.renderer.Resize(dw, dh)

	case EventMouseDown:
		if event.Button == sdl.BUTTON_LEFT {
			a.ctrl.PointerDown(mousePoint(event))
		}

	case EventMouseMove:
		if err := a.ctrl.PointerMove(mousePoint(event)); err != nil {
			a.log.Warn("drag rejected", zap.Error(err))
		}

	case EventMouseUp:
		if event.Button == sdl.BUTTON_LEFT {
			a.ctrl.PointerUp()
		}

	case EventAction:
		return a.action(ctx, event.Action)
	}
	return false
}

func (a *App) action(ctx context.Context, act controller.Action) bool {
	switch act {
	case controller.ActionQuit:
		return true
	case controller.ActionSave:
		a.save()
	case controller.ActionExport:
		a.export(ctx)
	case controller.ActionScreenshot:
		a.screenshot()
	default:
		if err := a.ctrl.Apply(act); err != nil {
			a.log.Warn("action failed", zap.Stringer("action", act), zap.Error(err))
		}
	}
	return false
}

// save writes the document, falling back to the output directory when it
// was never saved.
func (a *App) save() {
	err := a.session.Save()
	if errors.Is(err, document.ErrNoPath) {
		path := filepath.Join(a.cfg.Export.OutputDir, a.session.Name()+".yaml")
		err = a.session.SaveAs(path)
	}
	if err != nil {
		a.log.Error("save failed", zap.Error(err))
		return
	}
	a.log.Info("document saved", zap.String("path", a.session.Path()))
}

// export renders the grid on screen in the background. Without a configured
// export subdivision count the document's own count is used.
func (a *App) export(ctx context.Context) {
	opts := a.exportOpts
	if opts.Subdivisions == 0 {
		opts.Subdivisions = a.session.Subdivisions()
	}
	r, err := export.NewRenderer(opts)
	if err != nil {
		a.log.Error("export failed", zap.Error(err))
		return
	}

	job := r.Start(ctx, a.ctrl.ExportSnapshot(), a.writer)
	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		path, err := job.Wait()
		if err != nil {
			a.log.Error("export failed", zap.Error(err))
			return
		}
		a.log.Info("image exported", zap.String("path", path))
	}()
}

// screenshot saves the framebuffer as drawn, grabbers included.
func (a *App) screenshot() {
	w, h := a.window.DrawableSize()
	path, err := a.writer.WritePixels(a.renderer.ReadPixels(), w, h)
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

func (a *App) pixelScale() float64 {
	ww, _ := a.window.Size()
	dw, _ := a.window.DrawableSize()
	if ww <= 0 {
		return 1
	}
	return float64(dw) / float64(ww)
}

func (a *App) updateTitle() {
	title := fmt.Sprintf("meshview - %s (%d subdivisions)", a.session.Name(), a.ctrl.Subdivisions())
	if a.session.Dirty() {
		title += " *"
	}
	if a.ctrl.Animating() {
		title += " [animating]"
	}
	if title != a.title {
		a.title = title
		a.window.SetTitle(title)
	}
}

func mousePoint(e Event) vec.Vec2 {
	return vec.Vec2{X: float64(e.MouseX), Y: float64(e.MouseY)}
}

// Close waits for running exports and releases the window.
func (a *App) Close() {
	a.log.Info("closing preview")

	a.jobs.Wait()
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
