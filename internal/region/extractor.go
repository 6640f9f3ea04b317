// Package region maps embedded-image geometry into raster pixel space and
// produces OCR'd crops, including the synthesized full-page fallback used
// for scanned or figure-dominated pages.
package region

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/ocr"
	"github.com/parchmint/pdfstruct/internal/pdfparse"
	"github.com/parchmint/pdfstruct/internal/textnorm"
)

// Region is one produced crop, on disk until the response is built.
type Region struct {
	Filename string
	TempPath string
	// BBox is the region's location in page coordinates.
	BBox domain.BBox
	// Pixel dimensions of the mapped region and the page raster, used for
	// the block-formula height heuristic.
	PixelWidth   int
	PixelHeight  int
	PageHeightPx int
	OCRText      string
	FullPage     bool
}

// Extractor produces Regions from a page's image descriptors and raster.
type Extractor struct {
	log        zerolog.Logger
	engine     ocr.Engine
	ocrGate    *semaphore.Weighted
	minPixels  int
	maxCropDim int
}

// New creates an extractor. minPixels rejects sliver regions; maxCropDim
// caps crop dimensions before OCR and recognition. ocrGate bounds
// concurrent OCR across the whole process and may be shared.
func New(log zerolog.Logger, engine ocr.Engine, ocrGate *semaphore.Weighted, minPixels, maxCropDim int) *Extractor {
	return &Extractor{
		log:        log,
		engine:     engine,
		ocrGate:    ocrGate,
		minPixels:  minPixels,
		maxCropDim: maxCropDim,
	}
}

// Extract crops every acceptable image region of the page and, when the
// page has no reconstructed text or has at least one accepted region,
// synthesizes a full-page fallback region at index 0. Per-region failures
// degrade that region (or drop it, for crop failures) and are logged; they
// never fail the page.
func (e *Extractor) Extract(ctx context.Context, page *pdfparse.PageData, pageRaster image.Image, hasText bool, tmpDir string) []Region {
	if pageRaster == nil {
		return nil
	}

	bounds := pageRaster.Bounds()
	rasterW, rasterH := bounds.Dx(), bounds.Dy()
	scaleX := float64(rasterW) / math.Max(1, page.Width)
	scaleY := float64(rasterH) / math.Max(1, page.Height)

	var regions []Region
	for idx, ref := range page.Images {
		box, ok := ref.Bounds()
		if !ok {
			e.log.Debug().Int("page", page.Number).Int("image", idx).Msg("image descriptor too incomplete to locate")
			continue
		}

		left := clamp(int(math.Round(box.X0*scaleX)), 0, rasterW)
		top := clamp(int(math.Round(box.Top*scaleY)), 0, rasterH)
		right := clamp(int(math.Round(box.X1*scaleX)), 0, rasterW)
		bottom := clamp(int(math.Round(box.Bottom*scaleY)), 0, rasterH)

		if right-left <= e.minPixels || bottom-top <= e.minPixels {
			continue
		}

		crop := cropImage(pageRaster, image.Rect(bounds.Min.X+left, bounds.Min.Y+top, bounds.Min.X+right, bounds.Min.Y+bottom))
		filename := sanitizeFilename(fmt.Sprintf("page%d_img%d_%s.png", page.Number, idx, uniqueSuffix()))

		r, err := e.makeRegion(ctx, crop, filename, tmpDir)
		if err != nil {
			e.log.Warn().Int("page", page.Number).Int("image", idx).Err(err).Msg("image region degraded")
			continue
		}
		r.BBox = box
		r.PixelWidth = right - left
		r.PixelHeight = bottom - top
		r.PageHeightPx = rasterH
		regions = append(regions, r)
	}

	if !hasText || len(regions) > 0 {
		filename := sanitizeFilename(fmt.Sprintf("page%d_full_%s.png", page.Number, uniqueSuffix()))
		full, err := e.makeRegion(ctx, pageRaster, filename, tmpDir)
		if err != nil {
			e.log.Warn().Int("page", page.Number).Err(err).Msg("full page fallback region degraded")
		} else {
			full.BBox = domain.BBox{X0: 0, Top: 0, X1: page.Width, Bottom: page.Height}
			full.PixelWidth = rasterW
			full.PixelHeight = rasterH
			full.PageHeightPx = rasterH
			full.FullPage = true
			regions = append([]Region{full}, regions...)
		}
	}

	return regions
}

// makeRegion encodes the crop, writes it under tmpDir, and OCRs it. An OCR
// failure yields an empty-text region rather than an error.
func (e *Extractor) makeRegion(ctx context.Context, img image.Image, filename, tmpDir string) (Region, error) {
	img = e.downscale(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Region{}, domain.RegionExtractionError("encode crop", err)
	}

	path := filepath.Join(tmpDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return Region{}, domain.IOError("write crop", err)
	}

	r := Region{Filename: filename, TempPath: path}
	r.OCRText = e.recognizeText(ctx, buf.Bytes())
	return r, nil
}

func (e *Extractor) recognizeText(ctx context.Context, imageData []byte) string {
	if e.engine == nil {
		return ""
	}
	if e.ocrGate != nil {
		if err := e.ocrGate.Acquire(ctx, 1); err != nil {
			return ""
		}
		defer e.ocrGate.Release(1)
	}

	text, err := e.engine.Recognize(ctx, imageData)
	if err != nil {
		e.log.Warn().Err(err).Msg("region OCR failed")
		return ""
	}
	return textnorm.Normalize(text)
}

// downscale caps the crop's longest side at maxCropDim to keep OCR and
// recognition payloads bounded.
func (e *Extractor) downscale(img image.Image) image.Image {
	if e.maxCropDim <= 0 {
		return img
	}
	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest <= e.maxCropDim {
		return img
	}

	scale := float64(e.maxCropDim) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0,
		int(math.Round(float64(b.Dx())*scale)),
		int(math.Round(float64(b.Dy())*scale))))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// cropImage copies the rectangle into a fresh RGBA so the source page
// raster can be released independently.
func cropImage(src image.Image, rect image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, rect.Min, xdraw.Src)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func uniqueSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename strips path components and unsafe characters so the
// name is inert in responses and on disk.
func sanitizeFilename(name string) string {
	if name == "" {
		return "file.png"
	}
	name = filepath.Base(name)
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
