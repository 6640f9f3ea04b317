package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/pdfparse"
)

func word(text string, x0, top float64) pdfparse.Word {
	return pdfparse.Word{Text: text, X0: x0, Top: top, X1: x0 + 10, Bottom: top + 10}
}

func TestReconstructLinesGroupsByTop(t *testing.T) {
	words := []pdfparse.Word{
		word("world", 60, 100.3),
		word("hello", 10, 100.1),
		word("second", 10, 120),
	}

	lines := ReconstructLines(words, 1)
	require.Len(t, lines, 2)

	assert.Equal(t, "hello world", lines[0].Text)
	assert.Equal(t, 10.0, lines[0].X)
	assert.Equal(t, "second", lines[1].Text)
}

func TestReconstructLinesToleratesJitter(t *testing.T) {
	// 100.4 and 100.6 round into different integer buckets only when they
	// straddle .5; both land on bucket 100 and 101 respectively with
	// tolerance 1, but the line order stays stable.
	words := []pdfparse.Word{
		word("b", 50, 100.4),
		word("a", 10, 100.2),
		word("c", 90, 99.8),
	}

	lines := ReconstructLines(words, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, "a b c", lines[0].Text)
}

func TestReconstructLinesDropsEmpty(t *testing.T) {
	words := []pdfparse.Word{
		word("  ", 10, 10),
		word("​", 20, 10),
		word("kept", 10, 30),
	}

	lines := ReconstructLines(words, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0].Text)
}

func TestReconstructLinesNormalizesTokens(t *testing.T) {
	words := []pdfparse.Word{
		word("caf e", 10, 10),
	}

	lines := ReconstructLines(words, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, "caf e", lines[0].Text)
}

func TestReconstructLinesEmptyInput(t *testing.T) {
	assert.Nil(t, ReconstructLines(nil, 1))
}

func TestAssembleBlocksOrdering(t *testing.T) {
	texts := []domain.TextBlock{
		{Text: "line two", Y: 200, X: 10},
		{Text: "line one", Y: 100, X: 10},
	}
	images := []domain.ImageBlock{
		{Filename: "fig.png", BBox: domain.BBox{X0: 5, Top: 150, X1: 100, Bottom: 180}},
	}

	blocks := AssembleBlocks(texts, images)
	require.Len(t, blocks, 3)

	for i := 0; i < len(blocks)-1; i++ {
		a, b := blocks[i], blocks[i+1]
		less := a.Top() < b.Top() || (a.Top() == b.Top() && a.Left() <= b.Left())
		assert.True(t, less, "blocks %d and %d out of order", i, i+1)
	}
}

func TestAssembleBlocksTieBreakByX(t *testing.T) {
	texts := []domain.TextBlock{
		{Text: "right", Y: 100, X: 300},
		{Text: "left", Y: 100, X: 10},
	}

	blocks := AssembleBlocks(texts, nil)
	require.Len(t, blocks, 2)
	assert.Equal(t, "left", blocks[0].(domain.TextBlock).Text)
	assert.Equal(t, "right", blocks[1].(domain.TextBlock).Text)
}

func TestAssembleBlocksFullPageFirst(t *testing.T) {
	texts := []domain.TextBlock{
		{Text: "heading", Y: 10, X: 10},
	}
	images := []domain.ImageBlock{
		{Filename: "crop.png", BBox: domain.BBox{X0: 50, Top: 40, X1: 90, Bottom: 80}},
		{Filename: "full.png", FullPage: true, BBox: domain.BBox{X0: 0, Top: 0, X1: 612, Bottom: 792}},
	}

	blocks := AssembleBlocks(texts, images)
	require.Len(t, blocks, 3)

	first, ok := blocks[0].(domain.ImageBlock)
	require.True(t, ok)
	assert.True(t, first.FullPage)

	// The remaining blocks keep their relative order.
	assert.Equal(t, "heading", blocks[1].(domain.TextBlock).Text)
	assert.Equal(t, "crop.png", blocks[2].(domain.ImageBlock).Filename)
}

func TestAssembleBlocksRenormalizesText(t *testing.T) {
	texts := []domain.TextBlock{
		{Text: "padded   text here", Y: 10, X: 10},
	}

	blocks := AssembleBlocks(texts, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, "padded text here", blocks[0].(domain.TextBlock).Text)
}
