// Package config handles meshkit configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/internal/palette"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

// Config holds all settings.
type Config struct {
	Mesh      MeshConfig      `yaml:"mesh"`
	Animation AnimationConfig `yaml:"animation"`
	Palette   PaletteConfig   `yaml:"palette"`
	Export    ExportConfig    `yaml:"export"`
	Preview   PreviewConfig   `yaml:"preview"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MeshConfig holds the shape of newly created grids.
type MeshConfig struct {
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	Subdivisions       int     `yaml:"subdivisions"`
	PositionMultiplier float64 `yaml:"position_multiplier"`
	Tangent            float32 `yaml:"tangent"`
}

// AnimationConfig holds animated mesh settings.
type AnimationConfig struct {
	Enabled       bool          `yaml:"enabled"`
	MinDuration   time.Duration `yaml:"min_duration"`
	MaxDuration   time.Duration `yaml:"max_duration"`
	AnimateColors bool          `yaml:"animate_colors"`
	FPS           int           `yaml:"fps"`
}

// PaletteConfig holds random colour generation settings.
type PaletteConfig struct {
	Hues       string `yaml:"hues"`
	Luminosity string `yaml:"luminosity"`
	Seed       uint64 `yaml:"seed"` // 0 picks a time-based seed
}

// ExportConfig holds image export settings.
type ExportConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Subdivisions int    `yaml:"subdivisions"` // 0 uses the document's value
	Supersample  int    `yaml:"supersample"`
	OutputDir    string `yaml:"output_dir"`
	Prefix       string `yaml:"prefix"`
	Frames       int    `yaml:"frames"`
	Workers      int    `yaml:"workers"` // 0 uses GOMAXPROCS
}

// PreviewConfig holds live preview window settings.
type PreviewConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Fullscreen    bool    `yaml:"fullscreen"`
	VSync         bool    `yaml:"vsync"`
	ShowGrabbers  bool    `yaml:"show_grabbers"`
	GrabberRadius float64 `yaml:"grabber_radius"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// UI limits for grid dimensions and tangents.
const (
	MinGridSide = 3
	MaxGridSide = 8
	MaxTangent  = 5
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mesh: MeshConfig{
			Width:              3,
			Height:             3,
			Subdivisions:       tessellate.DefaultSubdivisions,
			PositionMultiplier: mesh.DefaultPositionMultiplier,
			Tangent:            mesh.DefaultTangent,
		},
		Animation: AnimationConfig{
			Enabled:       false,
			MinDuration:   animate.DefaultSpeedRange.Min,
			MaxDuration:   animate.DefaultSpeedRange.Max,
			AnimateColors: false,
			FPS:           60,
		},
		Palette: PaletteConfig{
			Hues:       "random",
			Luminosity: "bright",
		},
		Export: ExportConfig{
			Width:       1920,
			Height:      1080,
			Supersample: 2,
			OutputDir:   ".",
			Prefix:      "mesh",
			Frames:      120,
		},
		Preview: PreviewConfig{
			Width:         960,
			Height:        640,
			Fullscreen:    false,
			VSync:         true,
			ShowGrabbers:  true,
			GrabberRadius: 10,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Mesh.Width >= MinGridSide && c.Mesh.Width <= MaxGridSide,
		"mesh.width %d outside [%d, %d]", c.Mesh.Width, MinGridSide, MaxGridSide)
	check(c.Mesh.Height >= MinGridSide && c.Mesh.Height <= MaxGridSide,
		"mesh.height %d outside [%d, %d]", c.Mesh.Height, MinGridSide, MaxGridSide)
	check(c.Mesh.Subdivisions >= 2 && c.Mesh.Subdivisions <= 128,
		"mesh.subdivisions %d outside [2, 128]", c.Mesh.Subdivisions)
	check(c.Mesh.PositionMultiplier > 0 && c.Mesh.PositionMultiplier <= 1,
		"mesh.position_multiplier %v outside (0, 1]", c.Mesh.PositionMultiplier)
	check(c.Mesh.Tangent >= 0 && c.Mesh.Tangent <= MaxTangent,
		"mesh.tangent %v outside [0, %d]", c.Mesh.Tangent, MaxTangent)

	a := c.Animation
	check(a.MinDuration >= animate.MinTransition && a.MaxDuration <= animate.MaxTransition && a.MinDuration <= a.MaxDuration,
		"animation durations %v..%v outside %v..%v", a.MinDuration, a.MaxDuration, animate.MinTransition, animate.MaxTransition)
	check(a.FPS > 0 && a.FPS <= 240, "animation.fps %d outside [1, 240]", a.FPS)

	if _, err := palette.ParseHue(c.Palette.Hues); err != nil {
		errs = append(errs, fmt.Errorf("palette.hues: %w", err))
	}
	if _, err := palette.ParseLuminosity(c.Palette.Luminosity); err != nil {
		errs = append(errs, fmt.Errorf("palette.luminosity: %w", err))
	}

	e := c.Export
	check(e.Width > 0 && e.Height > 0, "export size %dx%d must be positive", e.Width, e.Height)
	check(e.Subdivisions == 0 || (e.Subdivisions >= 1 && e.Subdivisions <= tessellate.MaxSubdivisions),
		"export.subdivisions %d outside [1, %d]", e.Subdivisions, tessellate.MaxSubdivisions)
	check(e.Supersample >= 1 && e.Supersample <= 4, "export.supersample %d outside [1, 4]", e.Supersample)
	check(e.Frames >= 1, "export.frames %d must be positive", e.Frames)
	check(e.Workers >= 0, "export.workers %d must not be negative", e.Workers)

	p := c.Preview
	check(p.Width > 0 && p.Height > 0, "preview size %dx%d must be positive", p.Width, p.Height)
	check(p.GrabberRadius > 0, "preview.grabber_radius %v must be positive", p.GrabberRadius)

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// SpeedRange returns the animation durations as an animator range.
func (a AnimationConfig) SpeedRange() animate.SpeedRange {
	return animate.SpeedRange{Min: a.MinDuration, Max: a.MaxDuration}
}

// Generator builds the palette generator described by the config.
// A zero seed is replaced by the current time.
func (p PaletteConfig) Generator() (*palette.Generator, error) {
	hue, err := palette.ParseHue(p.Hues)
	if err != nil {
		return nil, err
	}
	lum, err := palette.ParseLuminosity(p.Luminosity)
	if err != nil {
		return nil, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return palette.NewGenerator(seed, hue, lum), nil
}
