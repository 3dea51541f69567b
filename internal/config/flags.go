package config

import "flag"

// Flags holds command-line overrides bound to a flag set. Zero values mean
// "not given".
type Flags struct {
	config       *string
	debug        *bool
	width        *int
	height       *int
	subdivisions *int
	seed         *uint64
	hues         *string
	luminosity   *string
	animate      *bool
	fullscreen   *bool
	windowed     *bool
	output       *string
}

// BindFlags registers the shared overrides on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:       fs.String("config", "", "Path to config file"),
		debug:        fs.Bool("debug", false, "Enable debug logging"),
		width:        fs.Int("width", 0, "Output or window width in pixels"),
		height:       fs.Int("height", 0, "Output or window height in pixels"),
		subdivisions: fs.Int("subdivisions", 0, "Export subdivisions per grid cell"),
		seed:         fs.Uint64("seed", 0, "Palette and animation seed"),
		hues:         fs.String("hues", "", "Palette hue family"),
		luminosity:   fs.String("luminosity", "", "Palette luminosity"),
		animate:      fs.Bool("animate", false, "Enable the animated mesh"),
		fullscreen:   fs.Bool("fullscreen", false, "Run the preview fullscreen"),
		windowed:     fs.Bool("windowed", false, "Run the preview in a window"),
		output:       fs.String("out", "", "Output directory"),
	}
}

var commandLine = BindFlags(flag.CommandLine)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return commandLine.ConfigPath()
}

// ConfigPath returns the --config value of this flag set.
func (f *Flags) ConfigPath() string {
	return *f.config
}

// apply applies flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.width > 0 {
		cfg.Export.Width = *f.width
		cfg.Preview.Width = *f.width
	}
	if *f.height > 0 {
		cfg.Export.Height = *f.height
		cfg.Preview.Height = *f.height
	}
	if *f.subdivisions > 0 {
		cfg.Export.Subdivisions = *f.subdivisions
	}
	if *f.seed != 0 {
		cfg.Palette.Seed = *f.seed
	}
	if *f.hues != "" {
		cfg.Palette.Hues = *f.hues
	}
	if *f.luminosity != "" {
		cfg.Palette.Luminosity = *f.luminosity
	}
	if *f.animate {
		cfg.Animation.Enabled = true
	}
	if *f.windowed {
		cfg.Preview.Fullscreen = false
	}
	if *f.fullscreen {
		cfg.Preview.Fullscreen = true
	}
	if *f.output != "" {
		cfg.Export.OutputDir = *f.output
	}
}
