package layout

import (
	"sort"

	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/textnorm"
)

// AssembleBlocks merges a page's text and image blocks into one
// reading-order sequence, sorted by (top, x0) ascending. A synthesized
// full-page fallback block represents the whole page and carries no
// meaningful local position, so it is forced to index 0 after sorting.
// Text is re-normalized before finalizing; upstream already normalized it,
// but blocks may have been concatenated or patched since.
func AssembleBlocks(texts []domain.TextBlock, images []domain.ImageBlock) []domain.Block {
	blocks := make([]domain.Block, 0, len(texts)+len(images))
	for _, t := range texts {
		t.Text = textnorm.Normalize(t.Text)
		blocks = append(blocks, t)
	}
	for _, img := range images {
		blocks = append(blocks, img)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Top() != blocks[j].Top() {
			return blocks[i].Top() < blocks[j].Top()
		}
		return blocks[i].Left() < blocks[j].Left()
	})

	for i, b := range blocks {
		img, ok := b.(domain.ImageBlock)
		if ok && img.FullPage && i != 0 {
			copy(blocks[1:i+1], blocks[:i])
			blocks[0] = img
			break
		}
	}

	return blocks
}
