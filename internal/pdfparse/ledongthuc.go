package pdfparse

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// Letter portrait, the conventional fallback when a page carries no usable
// MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// wordGapFactor is the maximum horizontal gap, as a fraction of font size,
// at which two adjacent text fragments still belong to the same word.
const wordGapFactor = 0.3

// StructuralParser is the primary parser, built on ledongthuc/pdf. It
// recovers positioned text fragments and embedded-image placements.
type StructuralParser struct{}

// NewStructuralParser returns the primary parser.
func NewStructuralParser() *StructuralParser { return &StructuralParser{} }

func (p *StructuralParser) Name() string { return "structural" }

// Open parses the document from memory. Malformed cross-reference tables
// and similar structural damage surface here as an error, letting the
// caller fall back to the secondary parser.
func (p *StructuralParser) Open(ctx context.Context, data []byte) (Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.StructuralParseError("open PDF", err)
	}
	if reader.NumPage() == 0 {
		return nil, domain.StructuralParseError("PDF has no pages", nil)
	}
	return &structuralDoc{reader: reader}, nil
}

type structuralDoc struct {
	// The underlying reader resolves objects lazily and is not safe for
	// concurrent page access.
	mu     sync.Mutex
	reader *pdf.Reader
}

func (d *structuralDoc) PageCount() int { return d.reader.NumPage() }

func (d *structuralDoc) Close() error { return nil }

func (d *structuralDoc) Page(ctx context.Context, number int) (pd *PageData, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// The underlying parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			pd = nil
			err = domain.StructuralParseError(fmt.Sprintf("page %d", number), fmt.Errorf("parser panic: %v", r))
		}
	}()

	page := d.reader.Page(number)
	if page.V.IsNull() {
		return nil, domain.StructuralParseError(fmt.Sprintf("page %d missing", number), nil)
	}

	width, height := pageSize(page)

	pd = &PageData{
		Number: number,
		Width:  width,
		Height: height,
		Words:  extractWords(page, height),
		Images: scanImagePlacements(page, height),
	}
	return pd, nil
}

// pageSize reads the page MediaBox, walking up the page tree when the box
// is inherited. Falls back to Letter when nothing usable is found.
func pageSize(page pdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	for parent := page.V.Key("Parent"); box.IsNull() && !parent.IsNull(); parent = parent.Key("Parent") {
		box = parent.Key("MediaBox")
	}
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageWidth, defaultPageHeight
	}

	coords := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v := box.Index(i)
		switch v.Kind() {
		case pdf.Integer:
			coords[i] = float64(v.Int64())
		case pdf.Real:
			coords[i] = v.Float64()
		default:
			return defaultPageWidth, defaultPageHeight
		}
	}

	w := coords[2] - coords[0]
	h := coords[3] - coords[1]
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}

// extractWords assembles the page's raw text fragments into word tokens.
// Fragments come out of the content stream at char or syllable granularity;
// adjacent fragments on the same baseline with a small gap are merged.
// PDF Y grows upward; output coordinates are top-down.
func extractWords(page pdf.Page, pageHeight float64) []Word {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	frags := make([]pdf.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S != "" && t.S != "\n" {
			frags = append(frags, t)
		}
	}
	if len(frags) == 0 {
		return nil
	}

	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y // higher Y first = top of page first
		}
		return frags[i].X < frags[j].X
	})

	var words []Word
	cur := fragmentRun{}
	for _, t := range frags {
		if !cur.empty() && cur.accepts(t) {
			cur.add(t)
			continue
		}
		if !cur.empty() {
			words = append(words, cur.word(pageHeight))
		}
		cur = fragmentRun{}
		cur.add(t)
	}
	if !cur.empty() {
		words = append(words, cur.word(pageHeight))
	}
	return words
}

// fragmentRun accumulates fragments belonging to one word.
type fragmentRun struct {
	text     []byte
	x0, x1   float64
	y        float64
	fontSize float64
}

func (r *fragmentRun) empty() bool { return len(r.text) == 0 }

func (r *fragmentRun) accepts(t pdf.Text) bool {
	if t.Y != r.y {
		return false
	}
	size := r.fontSize
	if size == 0 {
		size = 10
	}
	gap := t.X - r.x1
	return gap >= -size*0.05 && gap <= size*wordGapFactor
}

func (r *fragmentRun) add(t pdf.Text) {
	if r.empty() {
		r.x0 = t.X
		r.y = t.Y
		r.fontSize = t.FontSize
	}
	r.text = append(r.text, t.S...)
	if end := t.X + t.W; end > r.x1 {
		r.x1 = end
	}
}

func (r *fragmentRun) word(pageHeight float64) Word {
	size := r.fontSize
	if size == 0 {
		size = 10
	}
	// Y is the baseline; approximate the glyph box above it.
	top := pageHeight - r.y - size
	if top < 0 {
		top = 0
	}
	return Word{
		Text:   string(r.text),
		X0:     r.x0,
		Top:    top,
		X1:     r.x1,
		Bottom: pageHeight - r.y,
	}
}
