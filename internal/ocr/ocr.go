// Package ocr converts bitmap regions to plain text. The pipeline consumes
// the Engine interface; the production implementation wraps Tesseract via
// gosseract. Tesseract must be installed on the host system.
package ocr

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/parchmint/pdfstruct/internal/domain"
)

// Engine recognizes text in an encoded image (PNG, JPEG, TIFF).
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
	Close() error
}

// TesseractEngine is the gosseract-backed Engine. A single underlying
// client is reused across calls; recognition is serialized internally
// because the client is not thread safe. Concurrency above one engine is
// the caller's concern (the pipeline gates OCR with a semaphore).
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine creates the engine. language may be a "+"-separated
// list ("eng+fra"); empty means the Tesseract default.
func NewTesseractEngine(language string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			client.Close()
			return nil, domain.OCRError("set OCR language", err)
		}
	}
	return &TesseractEngine{client: client}, nil
}

func (e *TesseractEngine) Recognize(ctx context.Context, imageData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(imageData); err != nil {
		return "", domain.OCRError("set image", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", domain.OCRError("recognize", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
