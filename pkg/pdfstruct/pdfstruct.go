// Package pdfstruct is the public library entry point for embedding the
// extraction pipeline without running the HTTP server.
package pdfstruct

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/parchmint/pdfstruct/internal/app"
	"github.com/parchmint/pdfstruct/internal/config"
	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/extract"
	"github.com/parchmint/pdfstruct/internal/observability"
)

// Re-export the result and document types consumers work with.
type (
	SimpleResult   = extract.SimpleResult
	AdvancedResult = extract.AdvancedResult
	Page           = domain.Page
	Attachment     = domain.Attachment
)

// Error classification helpers, re-exported so callers can distinguish
// rejected inputs from broken ones.
var (
	IsAdmission       = domain.IsAdmission
	IsStructuralParse = domain.IsStructuralParse
)

// Client runs extractions in-process.
type Client struct {
	app *app.App
}

// NewClient builds a client with defaults plus environment overrides
// (.env is honored when present).
func NewClient(ctx context.Context) (*Client, error) {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(ctx, cfg)
}

// NewClientWithConfig builds a client from an explicit configuration.
func NewClientWithConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "pdfstruct",
	})

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{app: a}, nil
}

// ExtractText returns the reconstructed plain text of the document.
func (c *Client) ExtractText(ctx context.Context, pdfData []byte) (*SimpleResult, error) {
	return c.app.Service.ExtractText(ctx, pdfData)
}

// ExtractAdvanced runs the full pipeline: OCR, formula classification and
// recognition, returning pages and attachments alongside the text.
func (c *Client) ExtractAdvanced(ctx context.Context, pdfData []byte) (*AdvancedResult, error) {
	return c.app.Service.ExtractAdvanced(ctx, pdfData)
}

// Close releases the OCR engine and other held resources.
func (c *Client) Close() {
	c.app.Close()
}
