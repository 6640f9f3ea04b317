// Package pdfparse exposes the structural view of a PDF the pipeline
// consumes: per-page word tokens with bounding boxes, embedded-image
// descriptors, page count and page dimensions. Two parsers are provided:
// a primary one built on ledongthuc/pdf and a plain-text fallback built on
// go-fitz for documents the primary cannot read.
package pdfparse

import (
	"context"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// Word is one positioned text token in page coordinates (top-down).
type Word struct {
	Text   string
	X0     float64
	Top    float64
	X1     float64
	Bottom float64
}

// ImageRef is an embedded-image descriptor. Descriptors are recovered from
// different sources and arrive in one of two shapes: explicit corners, or
// origin plus size. Bounds normalizes both.
type ImageRef struct {
	X0, Top, X1, Bottom *float64
	X, Y, Width, Height *float64
}

// Bounds returns the descriptor as a {x0,top,x1,bottom} box. The second
// return is false when the descriptor is too incomplete to locate.
func (r ImageRef) Bounds() (domain.BBox, bool) {
	if r.X0 != nil && r.Top != nil && r.X1 != nil && r.Bottom != nil {
		return domain.BBox{X0: *r.X0, Top: *r.Top, X1: *r.X1, Bottom: *r.Bottom}, true
	}
	if r.X != nil && r.Y != nil && r.Width != nil && r.Height != nil {
		return domain.BBox{
			X0:     *r.X,
			Top:    *r.Y,
			X1:     *r.X + *r.Width,
			Bottom: *r.Y + *r.Height,
		}, true
	}
	return domain.BBox{}, false
}

// PageData is everything the pipeline needs from one page.
type PageData struct {
	Number int // 1-based
	Width  float64
	Height float64
	Words  []Word
	Images []ImageRef
}

// Document is an open PDF. Close releases parser resources; page data
// obtained before Close remains valid.
type Document interface {
	PageCount() int
	Page(ctx context.Context, number int) (*PageData, error)
	Close() error
}

// Parser opens a PDF from raw bytes.
type Parser interface {
	Name() string
	Open(ctx context.Context, data []byte) (Document, error)
}

func ptr(v float64) *float64 { return &v }
