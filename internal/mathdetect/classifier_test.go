package mathdetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parchmint/pdfstruct/internal/config"
)

func newClassifier() *Classifier {
	return New(config.DefaultConfig().Classifier)
}

func TestIsFormula(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"latex frac", `\frac{1}{2}`, true},
		{"keyword sqrt", "sqrt of two", true},
		{"equals sign", "E = mc2", true},
		{"greek name", "the alpha coefficient", true},
		{"symbol density", "∑ (x·y) ≤ ∞", true},
		{"short with symbols", "x + y - z", true},
		{"plain prose", "Hello world, this is plain prose.", false},
		{"empty", "", false},
		{"whitespace only", "   \n ", false},
		{"long prose no symbols", strings.Repeat("purely textual content without anything mathematical here ", 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsFormula(tt.in), "input %q", tt.in)
		})
	}
}

func TestIsFormulaAlphaCeiling(t *testing.T) {
	c := newClassifier()

	// Mostly alphabetic text with a couple of stray parens: the short-text
	// rule still fires because two symbols appear in under 200 chars.
	assert.True(t, c.IsFormula("see figure (a) and (b)"))

	// Long alphabetic text with sparse symbols: neither density nor the
	// short-text rule applies.
	long := strings.Repeat("entirely ordinary descriptive sentence about the picture ", 6) + "(end)"
	assert.False(t, c.IsFormula(long))
}

func TestIsBlockLevel(t *testing.T) {
	c := newClassifier()

	// 0.08 of a 1000px page is 80px.
	assert.False(t, c.IsBlockLevel(60, 1000))
	assert.False(t, c.IsBlockLevel(80, 1000))
	assert.True(t, c.IsBlockLevel(81, 1000))
	assert.False(t, c.IsBlockLevel(100, 0))
}
