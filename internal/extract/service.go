// Package extract implements the extraction pipeline: admission, structural
// parsing with fallback, per-page rasterization and region work, block
// assembly and document flattening.
package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/parchmint/pdfstruct/internal/config"
	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/layout"
	"github.com/parchmint/pdfstruct/internal/mathdetect"
	"github.com/parchmint/pdfstruct/internal/ocr"
	"github.com/parchmint/pdfstruct/internal/pdfparse"
	"github.com/parchmint/pdfstruct/internal/raster"
	"github.com/parchmint/pdfstruct/internal/recognize"
	"github.com/parchmint/pdfstruct/internal/region"
	"github.com/parchmint/pdfstruct/internal/textnorm"
)

// SimpleResult is the response body of the text-only extraction mode.
type SimpleResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Length  int    `json:"length"`
}

// AdvancedResult is the response body of the full-pipeline mode.
type AdvancedResult struct {
	Success     bool                 `json:"success"`
	Text        string               `json:"text"`
	Length      int                  `json:"length"`
	Pages       []domain.Page        `json:"pages"`
	Attachments []*domain.Attachment `json:"attachments"`
}

// Options lets callers substitute pipeline dependencies. Zero-value fields
// get production defaults; a nil OCR engine or dispatcher disables the
// corresponding step (regions then carry empty ocr_text / no latex).
type Options struct {
	Parser      pdfparse.Parser
	Fallback    pdfparse.Parser
	NewRenderer raster.Factory
	OCR         ocr.Engine
	Dispatcher  *recognize.Dispatcher
	// TempRoot is the parent directory for per-request crop dirs. Empty
	// means the system temp dir.
	TempRoot string
}

// Service runs extraction requests. Safe for concurrent use.
type Service struct {
	cfg         *config.Config
	log         zerolog.Logger
	parser      pdfparse.Parser
	fallback    pdfparse.Parser
	newRenderer raster.Factory
	ocrEngine   ocr.Engine
	dispatcher  *recognize.Dispatcher
	classifier  *mathdetect.Classifier
	flattener   *DocumentFlattener
	// ocrGate bounds concurrent OCR across all in-flight requests.
	ocrGate  *semaphore.Weighted
	tempRoot string
}

// NewService builds a service from config. The cleanup filter is compiled
// here so a bad pattern fails startup, not a request.
func NewService(cfg *config.Config, log zerolog.Logger, opts Options) (*Service, error) {
	cleanup, err := textnorm.NewCleanupFilter(cfg.Cleanup)
	if err != nil {
		return nil, err
	}

	if opts.Parser == nil {
		opts.Parser = pdfparse.NewStructuralParser()
	}
	if opts.Fallback == nil {
		opts.Fallback = pdfparse.NewFallbackParser()
	}
	if opts.NewRenderer == nil {
		opts.NewRenderer = raster.NewFitzRenderer
	}

	ocrWorkers := cfg.Pipeline.OCRConcurrency
	if ocrWorkers < 1 {
		ocrWorkers = 1
	}

	return &Service{
		cfg:         cfg,
		log:         log,
		parser:      opts.Parser,
		fallback:    opts.Fallback,
		newRenderer: opts.NewRenderer,
		ocrEngine:   opts.OCR,
		dispatcher:  opts.Dispatcher,
		classifier:  mathdetect.New(cfg.Classifier),
		flattener:   NewDocumentFlattener(cleanup),
		ocrGate:     semaphore.NewWeighted(ocrWorkers),
		tempRoot:    opts.TempRoot,
	}, nil
}

// ExtractText is the simple mode: reconstructed text lines only, no
// rasterization, no OCR, no recognition.
func (s *Service) ExtractText(ctx context.Context, data []byte) (*SimpleResult, error) {
	if err := s.admitBytes(data); err != nil {
		return nil, err
	}

	doc, parserName, err := s.openDocument(ctx, data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if err := s.admitPages(pageCount); err != nil {
		return nil, err
	}
	s.log.Info().Str("parser", parserName).Int("pages", pageCount).Msg("extracting text")

	pages := make([]domain.Page, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pageWorkers())

	for i := 0; i < pageCount; i++ {
		g.Go(func() error {
			pd, err := doc.Page(gctx, i+1)
			if err != nil {
				s.log.Warn().Int("page", i+1).Err(err).Msg("page parse degraded")
				pages[i] = domain.Page{Number: i + 1}
				return nil
			}
			texts := layout.ReconstructLines(pd.Words, s.cfg.Pipeline.LineTolerance)
			pages[i] = domain.Page{
				Number: pd.Number,
				Width:  pd.Width,
				Height: pd.Height,
				Blocks: layout.AssembleBlocks(texts, nil),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	text, length := s.flattener.Flatten(&domain.Document{Pages: pages})
	return &SimpleResult{Success: true, Text: text, Length: length}, nil
}

// ExtractAdvanced runs the full pipeline: parse, rasterize, crop and OCR
// image regions, classify formulas, run the recognition chain, assemble
// blocks and flatten. Per-region failures degrade that region only.
func (s *Service) ExtractAdvanced(ctx context.Context, data []byte) (*AdvancedResult, error) {
	if err := s.admitBytes(data); err != nil {
		return nil, err
	}

	doc, parserName, err := s.openDocument(ctx, data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if err := s.admitPages(pageCount); err != nil {
		return nil, err
	}
	s.log.Info().Str("parser", parserName).Int("pages", pageCount).Msg("extracting document")

	renderer, err := s.newRenderer(data, s.cfg.Raster.DPI)
	if err != nil {
		// Pages still produce text blocks; image regions are lost.
		s.log.Warn().Err(err).Msg("rasterizer unavailable, image regions degraded")
		renderer = nil
	}
	if renderer != nil {
		defer renderer.Close()
	}

	tmpDir, err := os.MkdirTemp(s.tempRoot, "pdfstruct-*")
	if err != nil {
		return nil, domain.IOError("create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	regions := region.New(s.log, s.ocrEngine, s.ocrGate,
		s.cfg.Pipeline.MinRegionPixels, s.cfg.Raster.MaxCropDim)

	pages := make([]domain.Page, pageCount)
	pageAttachments := make([][]*domain.Attachment, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pageWorkers())

	for i := 0; i < pageCount; i++ {
		g.Go(func() error {
			pages[i], pageAttachments[i] = s.processPage(gctx, doc, renderer, regions, i+1, tmpDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.Document{Pages: pages}
	for _, atts := range pageAttachments {
		result.Attachments = append(result.Attachments, atts...)
	}

	text, length := s.flattener.Flatten(result)
	s.encodeAttachments(result.Attachments)

	return &AdvancedResult{
		Success:     true,
		Text:        text,
		Length:      length,
		Pages:       result.Pages,
		Attachments: result.Attachments,
	}, nil
}

// processPage produces one page's assembled blocks plus its attachments.
// Every failure inside a page degrades rather than errors.
func (s *Service) processPage(ctx context.Context, doc pdfparse.Document, renderer raster.Renderer, regions *region.Extractor, number int, tmpDir string) (domain.Page, []*domain.Attachment) {
	pd, err := doc.Page(ctx, number)
	if err != nil {
		s.log.Warn().Int("page", number).Err(err).Msg("page parse degraded")
		return domain.Page{Number: number}, nil
	}

	texts := layout.ReconstructLines(pd.Words, s.cfg.Pipeline.LineTolerance)

	var pageRaster image.Image
	if renderer != nil {
		if img, rerr := renderer.Render(ctx, number); rerr != nil {
			s.log.Warn().Int("page", number).Err(rerr).Msg("page rasterization degraded")
		} else {
			pageRaster = img
		}
	}

	var (
		imageBlocks []domain.ImageBlock
		attachments []*domain.Attachment
	)
	for _, reg := range regions.Extract(ctx, pd, pageRaster, len(texts) > 0, tmpDir) {
		blk, att := s.resolveRegion(ctx, reg)
		imageBlocks = append(imageBlocks, blk)
		attachments = append(attachments, att)
	}

	page := domain.Page{
		Number: pd.Number,
		Width:  pd.Width,
		Height: pd.Height,
		Blocks: layout.AssembleBlocks(texts, imageBlocks),
	}
	return page, attachments
}

// resolveRegion classifies a crop and, for formulas, runs the recognition
// chain. A full-page formula is always block level.
func (s *Service) resolveRegion(ctx context.Context, reg region.Region) (domain.ImageBlock, *domain.Attachment) {
	var latex *string
	blockFormula := false

	if s.classifier.IsFormula(reg.OCRText) {
		blockFormula = reg.FullPage ||
			s.classifier.IsBlockLevel(reg.PixelHeight, reg.PageHeightPx)
		if s.dispatcher != nil {
			if result, ok := s.dispatcher.Recognize(ctx, reg.TempPath); ok {
				latex = &result
			}
		}
	}

	blk := domain.ImageBlock{
		Filename:     reg.Filename,
		BBox:         reg.BBox,
		OCRText:      reg.OCRText,
		Latex:        latex,
		BlockFormula: blockFormula,
		FullPage:     reg.FullPage,
		TempPath:     reg.TempPath,
	}
	att := &domain.Attachment{
		Filename: reg.Filename,
		Mimetype: "image/png",
		OCRText:  reg.OCRText,
		Latex:    latex,
		Block:    blockFormula,
		TempPath: reg.TempPath,
	}
	return blk, att
}

// encodeAttachments inlines the crop files as base64. Runs after
// flattening, right before the temp dir is removed.
func (s *Service) encodeAttachments(attachments []*domain.Attachment) {
	for _, a := range attachments {
		data, err := os.ReadFile(a.TempPath)
		if err != nil {
			s.log.Warn().Str("filename", a.Filename).Err(err).Msg("attachment payload lost")
			continue
		}
		a.Base64 = base64.StdEncoding.EncodeToString(data)
	}
}

func (s *Service) admitBytes(data []byte) error {
	if len(data) == 0 {
		return domain.AdmissionError("uploaded file is empty", nil)
	}
	if max := s.cfg.Limits.MaxFileBytes; max > 0 && int64(len(data)) > max {
		return domain.AdmissionError(
			fmt.Sprintf("file size %d exceeds limit of %d bytes", len(data), max), nil)
	}
	return nil
}

func (s *Service) admitPages(count int) error {
	if max := s.cfg.Limits.MaxPages; max > 0 && count > max {
		return domain.AdmissionError(
			fmt.Sprintf("document has %d pages, limit is %d", count, max), nil)
	}
	if count == 0 {
		return domain.StructuralParseError("document has no pages", nil)
	}
	return nil
}

// openDocument tries the structural parser first and the plain-text
// fallback second. Both failing is a structural parse error.
func (s *Service) openDocument(ctx context.Context, data []byte) (pdfparse.Document, string, error) {
	doc, err := s.parser.Open(ctx, data)
	if err == nil {
		return doc, s.parser.Name(), nil
	}
	s.log.Warn().Str("parser", s.parser.Name()).Err(err).Msg("primary parse failed, trying fallback")

	doc, ferr := s.fallback.Open(ctx, data)
	if ferr == nil {
		return doc, s.fallback.Name(), nil
	}
	return nil, "", domain.StructuralParseError(
		fmt.Sprintf("all parsers failed (primary: %v)", err), ferr)
}

func (s *Service) pageWorkers() int {
	if s.cfg.Pipeline.PageWorkers > 0 {
		return s.cfg.Pipeline.PageWorkers
	}
	return 1
}
