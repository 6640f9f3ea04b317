package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/textnorm"
)

// pageSeparator is appended after every page's blocks.
const pageSeparator = "\n"

// DocumentFlattener turns an assembled document into the single text field
// of a response. Formula placeholders are keyed in emission order and the
// keys are mirrored onto the matching attachments, so every [MATH:...] /
// [MATHBLOCK:...] token in the text resolves to exactly one attachment.
type DocumentFlattener struct {
	cleanup *textnorm.CleanupFilter
}

func NewDocumentFlattener(cleanup *textnorm.CleanupFilter) *DocumentFlattener {
	return &DocumentFlattener{cleanup: cleanup}
}

// Flatten walks pages and blocks in order and returns the cleaned text and
// its length in runes. Attachments are mutated: each recognized formula
// gets the latex key of the placeholder emitted for it.
func (f *DocumentFlattener) Flatten(doc *domain.Document) (string, int) {
	byName := make(map[string]*domain.Attachment, len(doc.Attachments))
	for _, a := range doc.Attachments {
		byName[a.Filename] = a
	}

	var sb strings.Builder
	formulaCount := 0

	for _, page := range doc.Pages {
		for _, b := range page.Blocks {
			switch blk := b.(type) {
			case domain.TextBlock:
				if blk.Text != "" {
					sb.WriteString(blk.Text)
					sb.WriteByte('\n')
				}
			case domain.ImageBlock:
				sb.WriteString(f.imageToken(blk, byName, &formulaCount))
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(pageSeparator)
	}

	if f.cleanup != nil {
		return f.cleanup.Apply(sb.String())
	}
	s := strings.TrimSpace(sb.String())
	return s, utf8.RuneCountInString(s)
}

func (f *DocumentFlattener) imageToken(blk domain.ImageBlock, byName map[string]*domain.Attachment, formulaCount *int) string {
	if blk.Latex == nil {
		return "[IMG:" + blk.Filename + "]"
	}

	*formulaCount++
	key := fmt.Sprintf("latex_%d", *formulaCount)
	if a := byName[blk.Filename]; a != nil {
		a.LatexKey = key
	}
	if blk.BlockFormula {
		return "[MATHBLOCK:" + key + "]"
	}
	return "[MATH:" + key + "]"
}
