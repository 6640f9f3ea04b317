// Package raster renders PDF pages to bitmaps. The pipeline consumes the
// Renderer interface; the production implementation wraps go-fitz.
package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// Renderer rasterizes pages of one open document.
type Renderer interface {
	// Render returns the page bitmap at the renderer's resolution.
	// Page numbers are 1-based.
	Render(ctx context.Context, pageNumber int) (image.Image, error)
	Close() error
}

// Factory opens a renderer over raw PDF bytes at the given resolution.
type Factory func(data []byte, dpi float64) (Renderer, error)

// NewFitzRenderer opens a go-fitz backed renderer. It is safe for
// concurrent Render calls; page rendering is serialized internally because
// the underlying document handle is not thread safe.
func NewFitzRenderer(data []byte, dpi float64) (Renderer, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.RegionExtractionError("open PDF for rasterization", err)
	}
	return &fitzRenderer{doc: doc, dpi: dpi}, nil
}

type fitzRenderer struct {
	mu  sync.Mutex
	doc *fitz.Document
	dpi float64
}

func (r *fitzRenderer) Render(ctx context.Context, pageNumber int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, err := r.doc.ImageDPI(pageNumber-1, r.dpi)
	if err != nil {
		return nil, domain.RegionExtractionError(fmt.Sprintf("render page %d", pageNumber), err)
	}
	return img, nil
}

func (r *fitzRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Close()
}
