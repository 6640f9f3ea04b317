// Package domain defines the document model shared by the extraction
// pipeline: pages, blocks, attachments and the error taxonomy.
package domain

import (
	"encoding/json"
	"fmt"
)

// Document is the in-memory result of one extraction request. It is never
// persisted; it exists only while the response is being built.
type Document struct {
	Pages       []Page
	Attachments []*Attachment
}

// Page holds one page's blocks in reading order. Pages are immutable once
// assembled.
type Page struct {
	Number int
	Width  float64
	Height float64
	Blocks []Block
}

// MarshalJSON renders a page as {"page": n, "blocks": [...]}.
func (p Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Page   int     `json:"page"`
		Blocks []Block `json:"blocks"`
	}{Page: p.Number, Blocks: p.Blocks})
}

// Block is a tagged variant: either a TextBlock or an ImageBlock. Code that
// walks blocks must handle both cases explicitly; there is no default
// fallthrough.
type Block interface {
	// Top and Left give the block's position in page coordinates, used for
	// reading-order sorting.
	Top() float64
	Left() float64

	block()
}

// TextBlock is one reconstructed text line.
type TextBlock struct {
	Text string
	Y    float64
	X    float64
}

func (b TextBlock) Top() float64  { return b.Y }
func (b TextBlock) Left() float64 { return b.X }
func (TextBlock) block()          {}

// MarshalJSON renders a text block with its wire field names.
func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string  `json:"type"`
		Text string  `json:"text"`
		Top  float64 `json:"top"`
		X0   float64 `json:"x0"`
	}{Type: "text", Text: b.Text, Top: b.Y, X0: b.X})
}

// ImageBlock is a cropped image region, possibly carrying OCR text and a
// recognized LaTeX string.
type ImageBlock struct {
	Filename string
	BBox     BBox
	OCRText  string
	// Latex is nil when no recognition backend produced a result.
	Latex        *string
	BlockFormula bool
	// FullPage marks the synthesized whole-page fallback raster. It sorts
	// first within its page regardless of coordinates.
	FullPage bool
	// TempPath points at the crop on disk. It is valid only until the
	// response has been built; never stored with the document.
	TempPath string
}

func (b ImageBlock) Top() float64  { return b.BBox.Top }
func (b ImageBlock) Left() float64 { return b.BBox.X0 }
func (ImageBlock) block()          {}

// MarshalJSON renders an image block with its wire field names. The temp
// path is deliberately not serialized.
func (b ImageBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string  `json:"type"`
		Filename string  `json:"filename"`
		Top      float64 `json:"top"`
		X0       float64 `json:"x0"`
		X1       float64 `json:"x1"`
		Bottom   float64 `json:"bottom"`
		OCRText  string  `json:"ocr_text"`
		Latex    *string `json:"latex,omitempty"`
		Block    bool    `json:"block"`
	}{
		Type: "image", Filename: b.Filename,
		Top: b.BBox.Top, X0: b.BBox.X0, X1: b.BBox.X1, Bottom: b.BBox.Bottom,
		OCRText: b.OCRText, Latex: b.Latex, Block: b.BlockFormula,
	})
}

// BBox is an axis-aligned rectangle in page coordinates, top-down.
type BBox struct {
	X0     float64
	Top    float64
	X1     float64
	Bottom float64
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Bottom - b.Top }

func (b BBox) String() string {
	return fmt.Sprintf("(%.1f,%.1f)-(%.1f,%.1f)", b.X0, b.Top, b.X1, b.Bottom)
}

// Attachment is the response-side record for one ImageBlock, correlated by
// filename. Base64 is filled in right before the response is serialized and
// is never kept beyond it.
type Attachment struct {
	Filename string  `json:"filename"`
	Mimetype string  `json:"mimetype"`
	Base64   string  `json:"base64"`
	OCRText  string  `json:"ocr_text"`
	Latex    *string `json:"latex,omitempty"`
	Block    bool    `json:"block"`
	// LatexKey is set during flattening, in the order formulas are emitted
	// into the final text. Keys are dense and unique per document.
	LatexKey string `json:"latex_key,omitempty"`

	// TempPath is the crop file backing Base64. Transient, not serialized.
	TempPath string `json:"-"`
}
