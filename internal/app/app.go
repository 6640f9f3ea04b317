// Package app assembles the extraction service and its recognition chain
// from configuration. Shared by the API server and the CLI.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/parchmint/pdfstruct/internal/config"
	"github.com/parchmint/pdfstruct/internal/extract"
	"github.com/parchmint/pdfstruct/internal/ocr"
	"github.com/parchmint/pdfstruct/internal/recognize"
)

// App holds the wired service and the resources behind it.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Service *extract.Service
	// Backends in dispatch order, exposed for health reporting.
	Backends []recognize.Backend

	closers []func() error
}

// Build wires OCR, the recognition backend chain and the extraction
// service. The local model backend is probed exactly once, here; if it
// does not answer, its step is skipped for the life of the process.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	var engine ocr.Engine
	tess, err := ocr.NewTesseractEngine(cfg.Pipeline.OCRLanguage)
	if err != nil {
		log.Warn().Err(err).Msg("tesseract unavailable, image regions will have no OCR text")
	} else {
		engine = tess
		a.closers = append(a.closers, tess.Close)
	}

	local := recognize.NewLocalModel(cfg.Recognition.Local.Endpoint, cfg.Recognition.Local.Timeout)
	if local.Probe(ctx) {
		log.Info().Str("endpoint", cfg.Recognition.Local.Endpoint).Msg("local recognition model online")
	} else {
		log.Warn().Str("endpoint", cfg.Recognition.Local.Endpoint).Msg("local recognition model offline, skipping it")
	}
	mathpix := recognize.NewMathpix(
		cfg.Recognition.Mathpix.APIKey,
		cfg.Recognition.Mathpix.AppID,
		cfg.Recognition.Mathpix.AppKey,
		cfg.Recognition.Mathpix.Timeout,
	)
	relay := recognize.NewRelay(cfg.Recognition.Relay.Endpoint, cfg.Recognition.Relay.Timeout)
	a.Backends = []recognize.Backend{local, mathpix, relay}

	svc, err := extract.NewService(cfg, log, extract.Options{
		OCR:        engine,
		Dispatcher: recognize.NewDispatcher(log, a.Backends...),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

// Close releases held resources. Safe to call more than once.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
