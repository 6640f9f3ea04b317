// Package mathdetect decides whether an OCR'd image region is a
// mathematical formula, and whether a formula is displayed (block) or
// inline. The heuristics are deliberately cheap: keyword hits, symbol
// density, and region height. Thresholds are configuration, not code.
package mathdetect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/parchmint/pdfstruct/internal/config"
)

// mathSymbols is the fixed symbol set used for density scoring.
const mathSymbols = `=√∑∫π×÷^_()[]{}+-/\<>|∞≤≥≈·`

// mathKeywords are markup tokens and names whose presence alone marks a
// region as a formula.
var mathKeywords = []string{
	"frac", "sqrt", "lim", "sum", "int",
	`\frac`, `\sqrt`, `\int`,
	"sigma", "beta", "alpha", "mu",
	"=",
}

// Classifier applies the formula heuristics.
type Classifier struct {
	cfg config.ClassifierConfig
}

// New creates a classifier with the given thresholds.
func New(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// IsFormula reports whether the region's OCR text looks like math.
// Empty or whitespace-only text is never a formula.
func (c *Classifier) IsFormula(ocrText string) bool {
	txt := strings.TrimSpace(ocrText)
	if txt == "" {
		return false
	}

	lower := strings.ToLower(txt)
	for _, kw := range mathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	total := utf8.RuneCountInString(txt)
	symCount := 0
	alphaCount := 0
	for _, r := range txt {
		if strings.ContainsRune(mathSymbols, r) {
			symCount++
		}
		if unicode.IsLetter(r) {
			alphaCount++
		}
	}

	symRatio := float64(symCount) / float64(total)
	alphaRatio := float64(alphaCount) / float64(total)

	if symRatio > c.cfg.SymbolRatio && alphaRatio < c.cfg.AlphaRatioCeiling {
		return true
	}
	if total < c.cfg.ShortTextLen && symCount >= c.cfg.MinSymbols {
		return true
	}
	return false
}

// IsBlockLevel reports whether a formula region is displayed math rather
// than inline: its raster height relative to the page raster height
// exceeds the configured ratio.
func (c *Classifier) IsBlockLevel(regionHeightPx, pageHeightPx int) bool {
	if pageHeightPx <= 0 {
		return false
	}
	return float64(regionHeightPx)/float64(pageHeightPx) > c.cfg.BlockHeightRatio
}
