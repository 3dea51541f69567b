// Package main is the entry point for the live mesh gradient preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/config"
	"github.com/Faultbox/meshkit/internal/document"
	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/internal/preview"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== meshview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	colors, err := cfg.Palette.Generator()
	if err != nil {
		logger.Error("invalid palette settings", zap.Error(err))
		os.Exit(1)
	}

	// Open the given document or start a new one
	var session *document.Session
	if path := flag.Arg(0); path != "" {
		session, err = document.Open(path)
		if err != nil {
			logger.Error("failed to open document", zap.String("path", path), zap.Error(err))
			os.Exit(1)
		}
	} else {
		doc, err := document.Generate(document.Template{
			Name:         "untitled",
			Width:        cfg.Mesh.Width,
			Height:       cfg.Mesh.Height,
			Subdivisions: cfg.Mesh.Subdivisions,
			Tangent:      cfg.Mesh.Tangent,
			Colors:       colors,
		})
		if err != nil {
			logger.Error("failed to create document", zap.Error(err))
			os.Exit(1)
		}
		session = document.NewSession(doc, "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := preview.New(cfg, session, colors)
	if err != nil {
		logger.Error("failed to create preview", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error("preview error", zap.Error(err))
		os.Exit(1)
	}

	if session.Dirty() {
		logger.Warn("closing with unsaved changes")
	}
	logger.Info("preview closed normally")
}
