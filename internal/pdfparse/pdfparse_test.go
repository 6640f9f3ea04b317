package pdfparse

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestFragmentRunMergesAdjacentGlyphs(t *testing.T) {
	run := fragmentRun{}
	run.add(frag("H", 10, 700, 6, 12))
	require.True(t, run.accepts(frag("e", 16.2, 700, 5, 12)))
	run.add(frag("e", 16.2, 700, 5, 12))
	require.True(t, run.accepts(frag("y", 21.5, 700, 5, 12)))
	run.add(frag("y", 21.5, 700, 5, 12))

	w := run.word(792)
	assert.Equal(t, "Hey", w.Text)
	assert.Equal(t, 10.0, w.X0)
	assert.Equal(t, 26.5, w.X1)
	assert.Equal(t, 792-700-12.0, w.Top)
	assert.Equal(t, 92.0, w.Bottom)
}

func TestFragmentRunBreaksOnWordGap(t *testing.T) {
	run := fragmentRun{}
	run.add(frag("a", 10, 700, 5, 12))
	// Gap of a full em is a word boundary, not a glyph gap.
	assert.False(t, run.accepts(frag("b", 27, 700, 5, 12)))
}

func TestFragmentRunBreaksOnBaselineChange(t *testing.T) {
	run := fragmentRun{}
	run.add(frag("a", 10, 700, 5, 12))
	assert.False(t, run.accepts(frag("b", 15, 688, 5, 12)))
}

func TestFragmentRunClampsTopAtPageEdge(t *testing.T) {
	run := fragmentRun{}
	run.add(frag("x", 0, 790, 5, 14))
	w := run.word(792)
	assert.Equal(t, 0.0, w.Top)
}

func TestMatrixMultiplyAndApply(t *testing.T) {
	translate := matrix{1, 0, 0, 1, 30, 40}
	scale := matrix{2, 0, 0, 3, 0, 0}

	// Scale first, then translate.
	m := scale.multiply(translate)
	x, y := m.apply(1, 1)
	assert.Equal(t, 32.0, x)
	assert.Equal(t, 43.0, y)
}

func TestMatrixFromOperands(t *testing.T) {
	m, ok := matrixFromOperands([]string{"200", "0", "0", "100", "36", "500"})
	require.True(t, ok)
	assert.Equal(t, matrix{200, 0, 0, 100, 36, 500}, m)

	// Extra leading operands are ignored; only the trailing six count.
	m, ok = matrixFromOperands([]string{"/Name", "200", "0", "0", "100", "36", "500"})
	require.True(t, ok)
	assert.Equal(t, matrix{200, 0, 0, 100, 36, 500}, m)

	_, ok = matrixFromOperands([]string{"0", "0", "100", "36", "500"})
	assert.False(t, ok)

	_, ok = matrixFromOperands([]string{"/Name", "0", "0", "100", "36", "500"})
	assert.False(t, ok)
}

func TestPlacementBoxConvertsToTopDown(t *testing.T) {
	// A 200x100 image placed at (36, 500) on a 792pt-tall page.
	ctm := matrix{200, 0, 0, 100, 36, 500}
	ref := placementBox(ctm, 792)

	box, ok := ref.Bounds()
	require.True(t, ok)
	assert.Equal(t, 36.0, box.X0)
	assert.Equal(t, 236.0, box.X1)
	assert.Equal(t, 192.0, box.Top) // 792 - (500+100)
	assert.Equal(t, 292.0, box.Bottom)
}

func TestPlacementBoxHandlesNegativeScale(t *testing.T) {
	// Mirrored placement still yields a well-formed box.
	ctm := matrix{-200, 0, 0, 100, 236, 500}
	ref := placementBox(ctm, 792)

	box, ok := ref.Bounds()
	require.True(t, ok)
	assert.Equal(t, 36.0, box.X0)
	assert.Equal(t, 236.0, box.X1)
}

func TestTokenizeSplitsDelimiters(t *testing.T) {
	toks := tokenize("q 200 0 0 100 36 500 cm\n/Im1 Do\nQ")
	assert.Equal(t, []string{"q", "200", "0", "0", "100", "36", "500", "cm", "/Im1", "Do", "Q"}, toks)
}

func TestIsOperand(t *testing.T) {
	assert.True(t, isOperand("/Im1"))
	assert.True(t, isOperand("3.14"))
	assert.True(t, isOperand("-2"))
	assert.False(t, isOperand("cm"))
	assert.False(t, isOperand(""))
}

func TestImageRefBoundsVariants(t *testing.T) {
	corner := ImageRef{X0: ptr(10), Top: ptr(20), X1: ptr(110), Bottom: ptr(70)}
	box, ok := corner.Bounds()
	require.True(t, ok)
	assert.Equal(t, 100.0, box.Width())
	assert.Equal(t, 50.0, box.Height())

	sized := ImageRef{X: ptr(10), Y: ptr(20), Width: ptr(100), Height: ptr(50)}
	box, ok = sized.Bounds()
	require.True(t, ok)
	assert.Equal(t, 110.0, box.X1)
	assert.Equal(t, 70.0, box.Bottom)

	_, ok = ImageRef{X0: ptr(10)}.Bounds()
	assert.False(t, ok)
}
