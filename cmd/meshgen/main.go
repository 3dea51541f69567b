// meshgen is a CLI utility for creating, inspecting and rendering mesh
// gradient documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/config"
	"github.com/Faultbox/meshkit/internal/document"
	"github.com/Faultbox/meshkit/internal/export"
	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/pkg/animate"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "new":
		cmdNew(args)
	case "info":
		cmdInfo(args)
	case "resize":
		cmdResize(args)
	case "palette":
		cmdPalette(args)
	case "export", "render":
		cmdExport(args)
	case "frames":
		cmdFrames(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshgen - mesh gradient utility

Usage:
  meshgen <command> [options]

Commands:
  new [-cols N -rows N] <file>        Create a random document (.yaml or .mgrd)
  info <file>                         Show document information
  resize -cols N -rows N <file> [out] Change the grid dimensions
  palette [-n N] [-apply <file>]      Print or apply a random palette
  export [-o name.png] <file>         Render a document to PNG
  frames [-n N -fps N] <file>         Render an animated PNG sequence

Shared options:
  -config, -debug, -width, -height, -subdivisions, -seed,
  -hues, -luminosity, -out

Examples:
  meshgen new -cols 4 -rows 4 -hues blue sky.yaml
  meshgen export -width 3840 -height 2160 sky.yaml
  meshgen frames -n 240 -fps 60 -out ./frames sky.mgrd`)
}

// setup parses args, loads the config and initializes logging on stderr.
func setup(fs *flag.FlagSet, flags *config.Flags, args []string) *config.Config {
	fs.Parse(args)

	cfg, err := config.LoadWith(flags)
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)
	return cfg
}

func fatal(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "Usage: meshgen "+line)
	os.Exit(1)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdNew(args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	flags := config.BindFlags(fs)
	cols := fs.Int("cols", 0, "Grid columns (default from config)")
	rows := fs.Int("rows", 0, "Grid rows (default from config)")
	name := fs.String("name", "", "Document name (default from file name)")
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		usage("new [-cols N -rows N] <file>")
	}
	path := fs.Arg(0)

	colors, err := cfg.Palette.Generator()
	if err != nil {
		fatal(err)
	}

	t := document.Template{
		Name:         *name,
		Width:        cfg.Mesh.Width,
		Height:       cfg.Mesh.Height,
		Subdivisions: cfg.Mesh.Subdivisions,
		Tangent:      cfg.Mesh.Tangent,
		Colors:       colors,
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if *cols > 0 {
		t.Width = *cols
	}
	if *rows > 0 {
		t.Height = *rows
	}

	doc, err := document.Generate(t)
	if err != nil {
		fatal(err)
	}
	if err := doc.Save(path); err != nil {
		fatal(err)
	}

	fmt.Printf("Created %s (%s, id %s)\n", path, doc.Grid.Size(), doc.ID)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	nodes := fs.Bool("nodes", false, "List every node")
	fs.Parse(args)

	if fs.NArg() < 1 {
		usage("info [-nodes] <file>")
	}

	doc, err := document.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	g := doc.Grid
	fmt.Printf("Document:     %s\n", fs.Arg(0))
	fmt.Printf("Name:         %s\n", doc.Name)
	fmt.Printf("ID:           %s\n", doc.ID)
	fmt.Printf("Grid:         %s (%d nodes)\n", g.Size(), g.Size().Count())
	fmt.Printf("Subdivisions: %d\n", doc.Subdivisions)

	moved := 0
	g.Each(func(n mesh.Node) {
		if n.Location != n.Point.Location() {
			moved++
		}
	})
	fmt.Printf("Moved nodes:  %d\n", moved)

	if !*nodes {
		return
	}
	fmt.Println()
	fmt.Println("Nodes:")
	g.Each(func(n mesh.Node) {
		c := n.Color.NRGBA()
		fmt.Printf("  (%d,%d)  at %6.3f,%6.3f  #%02x%02x%02x%02x  tangent %.2f,%.2f\n",
			n.Point.X, n.Point.Y, n.Location.X, n.Location.Y,
			c.R, c.G, c.B, c.A, n.Tangent.U, n.Tangent.V)
	})
}

func cmdResize(args []string) {
	fs := flag.NewFlagSet("resize", flag.ExitOnError)
	cols := fs.Int("cols", 0, "New column count")
	rows := fs.Int("rows", 0, "New row count")
	fs.Parse(args)

	if fs.NArg() < 1 || *cols <= 0 || *rows <= 0 {
		usage("resize -cols N -rows N <file> [out]")
	}
	in := fs.Arg(0)
	out := in
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}

	session, err := document.Open(in)
	if err != nil {
		fatal(err)
	}
	before := session.Snapshot().Size()
	if err := session.Update(func(g *mesh.Grid) error {
		return g.Resize(*cols, *rows)
	}); err != nil {
		fatal(err)
	}
	if err := session.SaveAs(out); err != nil {
		fatal(err)
	}

	fmt.Printf("Resized %s -> %s, saved %s\n", before, session.Snapshot().Size(), out)
}

func cmdPalette(args []string) {
	fs := flag.NewFlagSet("palette", flag.ExitOnError)
	flags := config.BindFlags(fs)
	count := fs.Int("n", 9, "Number of colours")
	apply := fs.String("apply", "", "Recolor this document instead of printing")
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	gen, err := cfg.Palette.Generator()
	if err != nil {
		fatal(err)
	}

	if *apply == "" {
		for _, c := range gen.Colors(*count) {
			n := c.NRGBA()
			fmt.Printf("#%02x%02x%02x\n", n.R, n.G, n.B)
		}
		return
	}

	session, err := document.Open(*apply)
	if err != nil {
		fatal(err)
	}
	if err := session.Update(func(g *mesh.Grid) error {
		return g.Recolor(gen.Colors(g.Size().Count()))
	}); err != nil {
		fatal(err)
	}
	if err := session.Save(); err != nil {
		fatal(err)
	}
	fmt.Printf("Recolored %s (%s, %s)\n", *apply, cfg.Palette.Hues, cfg.Palette.Luminosity)
}

// rendererFor builds an export renderer, falling back to the document's
// subdivisions when the config leaves them unset.
func rendererFor(cfg *config.Config, doc *document.Document) *export.Renderer {
	opts := export.Options{
		Width:        cfg.Export.Width,
		Height:       cfg.Export.Height,
		Subdivisions: cfg.Export.Subdivisions,
		Supersample:  cfg.Export.Supersample,
		Workers:      cfg.Export.Workers,
	}
	if opts.Subdivisions == 0 {
		opts.Subdivisions = doc.Subdivisions
	}
	r, err := export.NewRenderer(opts)
	if err != nil {
		fatal(err)
	}
	return r
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := config.BindFlags(fs)
	name := fs.String("o", "", "Output file name (default: timestamped)")
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		usage("export [-o name.png] <file>")
	}

	doc, err := document.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	ctx, stop := signalContext()
	defer stop()

	r := rendererFor(cfg, doc)
	img, err := r.Render(ctx, doc.Grid)
	if err != nil {
		fatal(err)
	}

	w := export.NewWriter(cfg.Export.OutputDir, cfg.Export.Prefix)
	filename := w.TimestampedName()
	if *name != "" {
		filename = filepath.Join(cfg.Export.OutputDir, *name)
	}
	if err := w.Write(img, filename); err != nil {
		fatal(err)
	}

	opts := r.Options()
	logger.Info("exported", zap.String("file", filename), zap.Int("subdivisions", opts.Subdivisions))
	fmt.Printf("Wrote %s (%dx%d)\n", filename, opts.Width, opts.Height)
}

func cmdFrames(args []string) {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	flags := config.BindFlags(fs)
	count := fs.Int("n", 0, "Number of frames (default from config)")
	fps := fs.Int("fps", 0, "Frames per second (default from config)")
	colors := fs.Bool("colors", false, "Animate colours as well as positions")
	cfg := setup(fs, flags, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		usage("frames [-n N -fps N] <file>")
	}
	if *count <= 0 {
		*count = cfg.Export.Frames
	}
	if *fps <= 0 {
		*fps = cfg.Animation.FPS
	}

	doc, err := document.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	gen, err := cfg.Palette.Generator()
	if err != nil {
		fatal(err)
	}
	anim, err := animate.WithMeshColors(doc.Grid, animate.Options{
		PositionMultiplier: cfg.Mesh.PositionMultiplier,
		Speed:              cfg.Animation.SpeedRange(),
		AnimateColors:      *colors || cfg.Animation.AnimateColors,
		Colors:             gen,
		Seed:               cfg.Palette.Seed,
	})
	if err != nil {
		fatal(err)
	}

	ctx, stop := signalContext()
	defer stop()

	w := export.NewWriter(cfg.Export.OutputDir, cfg.Export.Prefix)
	paths, err := rendererFor(cfg, doc).Frames(ctx, anim, *count, *fps, w, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rframe %d/%d", done, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatal(fmt.Errorf("after %d frames: %w", len(paths), err))
	}

	fmt.Printf("Wrote %d frames to %s\n", len(paths), cfg.Export.OutputDir)
}
