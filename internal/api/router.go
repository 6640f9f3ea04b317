// Package api exposes the extraction service over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/parchmint/pdfstruct/internal/config"
	"github.com/parchmint/pdfstruct/internal/extract"
	"github.com/parchmint/pdfstruct/internal/recognize"
)

// Dependencies wires the router to the rest of the service. Backends is
// used only for health reporting; the service holds its own dispatcher.
type Dependencies struct {
	Log      zerolog.Logger
	Config   *config.Config
	Service  *extract.Service
	Backends []recognize.Backend
}

// NewRouter builds the HTTP surface: health plus the two extraction
// endpoints, behind rate limiting and a request concurrency gate.
func NewRouter(deps Dependencies) http.Handler {
	h := &handler{
		log:      deps.Log,
		cfg:      deps.Config,
		service:  deps.Service,
		backends: deps.Backends,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.Config.Server.RequestTimeout))

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(deps.Config.Server))
		r.Use(concurrencyGate(semaphore.NewWeighted(maxConcurrent(deps.Config.Server))))
		r.Post("/extract-text", h.handleExtractText)
		r.Post("/extract-advanced", h.handleExtractAdvanced)
	})

	return r
}

func maxConcurrent(cfg config.ServerConfig) int64 {
	if cfg.MaxConcurrent > 0 {
		return cfg.MaxConcurrent
	}
	return 16
}
