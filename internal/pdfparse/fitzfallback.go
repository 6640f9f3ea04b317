package pdfparse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// FallbackParser reads documents the structural parser rejects. It yields
// plain per-page text split into lines, with synthetic positions so the
// line reconstructor keeps source order; it recovers no image descriptors.
type FallbackParser struct{}

// NewFallbackParser returns the fallback parser.
func NewFallbackParser() *FallbackParser { return &FallbackParser{} }

func (p *FallbackParser) Name() string { return "fallback" }

func (p *FallbackParser) Open(ctx context.Context, data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.StructuralParseError("open PDF with fallback parser", err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, domain.StructuralParseError("PDF has no pages", nil)
	}
	return &fallbackDoc{doc: doc}, nil
}

type fallbackDoc struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fallbackDoc) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fallbackDoc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

func (d *fallbackDoc) Page(ctx context.Context, number int) (*PageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	text, err := d.doc.Text(number - 1)
	if err != nil {
		return nil, domain.StructuralParseError(fmt.Sprintf("extract text for page %d", number), err)
	}

	width, height := defaultPageWidth, defaultPageHeight
	if bound, err := d.doc.Bound(number - 1); err == nil && bound.Dx() > 0 && bound.Dy() > 0 {
		width, height = bound.Dx(), bound.Dy()
	}

	pd := &PageData{
		Number: number,
		Width:  float64(width),
		Height: float64(height),
	}

	// One synthetic token per line: the line index stands in for the
	// vertical coordinate, preserving source order through bucketing.
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pd.Words = append(pd.Words, Word{
			Text:   line,
			X0:     0,
			Top:    float64(i),
			X1:     float64(width),
			Bottom: float64(i) + 1,
		})
	}
	return pd, nil
}
