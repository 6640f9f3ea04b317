// Package layout turns raw page geometry into reading-order blocks: word
// tokens are grouped into text lines, and a page's text and image blocks
// are merged into one ordered sequence.
package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/pdfparse"
	"github.com/parchmint/pdfstruct/internal/textnorm"
)

// ReconstructLines groups a page's word tokens into ordered text lines.
// Tokens are bucketed by their top coordinate rounded to the given
// tolerance, so minor vertical jitter collapses onto one visual line.
// Within a line, tokens run left to right joined by single spaces; each
// token is normalized before joining. Lines that are empty after trimming
// are dropped.
func ReconstructLines(words []pdfparse.Word, tolerance float64) []domain.TextBlock {
	if len(words) == 0 {
		return nil
	}
	if tolerance <= 0 {
		tolerance = 1
	}

	buckets := make(map[int][]pdfparse.Word)
	for _, w := range words {
		key := int(math.Round(w.Top / tolerance))
		buckets[key] = append(buckets[key], w)
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	lines := make([]domain.TextBlock, 0, len(keys))
	for _, key := range keys {
		row := buckets[key]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })

		parts := make([]string, 0, len(row))
		for _, w := range row {
			if t := textnorm.Normalize(w.Text); t != "" {
				parts = append(parts, t)
			}
		}

		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}

		lines = append(lines, domain.TextBlock{
			Text: text,
			Y:    row[0].Top,
			X:    row[0].X0,
		})
	}
	return lines
}
