package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmint/pdfstruct/internal/config"
)

func newTestFilter(t *testing.T) *CleanupFilter {
	t.Helper()
	f, err := NewCleanupFilter(config.DefaultConfig().Cleanup)
	require.NoError(t, err)
	return f
}

func TestCleanupStripsBoilerplate(t *testing.T) {
	f := newTestFilter(t)

	in := "Copyright © 2021 Example Press. All rights reserved.\n" +
		"Lesson 1: Introduction to algebraic expressions\n" +
		"This chapter covers the basics of algebraic manipulation."
	out, n := f.Apply(in)

	assert.NotContains(t, out, "Copyright")
	assert.NotContains(t, out, "All rights reserved")
	assert.Contains(t, out, "Lesson 1: Introduction to algebraic expressions")
	assert.Equal(t, len([]rune(out)), n)
}

func TestCleanupDropsPageNumberLines(t *testing.T) {
	f := newTestFilter(t)

	in := "Lesson 1: Numbers and their many practical applications\n42\nThe rest of the page continues here with more content."
	out, _ := f.Apply(in)

	for _, line := range strings.Split(out, "\n") {
		assert.NotEqual(t, "42", strings.TrimSpace(line))
	}
	assert.Contains(t, out, "The rest of the page continues")
}

func TestCleanupCollapsesFrontMatter(t *testing.T) {
	f := newTestFilter(t)

	in := "Table of contents listing every single topic in the book\n" +
		"Another index line pointing somewhere deep inside the text\n" +
		"Lesson 3: Quadratic equations and how to solve them\n" +
		"Real content starts here and keeps going for a good while."
	out, _ := f.Apply(in)

	assert.True(t, strings.HasPrefix(out, "Lesson 3:"), "front matter should be dropped, got %q", out)
	assert.NotContains(t, out, "Table of contents")
}

func TestCleanupFrontMatterCollapseKeepsPlaceholders(t *testing.T) {
	f := newTestFilter(t)

	in := "[MATHBLOCK:latex_1]\n" +
		"Table of contents listing every single topic in the book\n" +
		"[IMG:page1_img0_abc.png]\n" +
		"Lesson 3: Quadratic equations and how to solve them\n" +
		"Real content starts here and keeps going for a good while."
	out, _ := f.Apply(in)

	assert.NotContains(t, out, "Table of contents")
	// Placeholders from the dropped prefix stay resolvable, ahead of the
	// heading and in their original order.
	assert.Contains(t, out, "[MATHBLOCK:latex_1]")
	assert.Contains(t, out, "[IMG:page1_img0_abc.png]")
	block := strings.Index(out, "[MATHBLOCK:latex_1]")
	img := strings.Index(out, "[IMG:page1_img0_abc.png]")
	heading := strings.Index(out, "Lesson 3:")
	assert.True(t, block < img && img < heading, "got %q", out)
}

func TestCleanupNoSectionMarkerKeepsEverything(t *testing.T) {
	f := newTestFilter(t)

	in := "Just a document without any recognizable heading structure at all.\n" +
		"It still has to come through the cleanup pass intact and whole."
	out, _ := f.Apply(in)

	assert.Contains(t, out, "without any recognizable heading")
	assert.Contains(t, out, "intact and whole")
}

func TestCleanupDropsShortFragments(t *testing.T) {
	f := newTestFilter(t)

	in := "Lesson 2: Fractions explained\n" +
		"frag\n" +
		"A proper sentence that is clearly longer than the minimum length."
	out, _ := f.Apply(in)

	assert.NotContains(t, out, "frag")
	assert.Contains(t, out, "A proper sentence")
	// Section headings survive even when short.
	assert.Contains(t, out, "Lesson 2: Fractions explained")
}

func TestCleanupKeepsPlaceholderLines(t *testing.T) {
	f := newTestFilter(t)

	in := "Lesson 4: Integrals and areas under curves, a first look\n" +
		"[MATHBLOCK:latex_1]\n" +
		"[IMG:page1_img0_abc.png]\n" +
		"Further discussion of the figure shown above continues here."
	out, _ := f.Apply(in)

	assert.Contains(t, out, "[MATHBLOCK:latex_1]")
	assert.Contains(t, out, "[IMG:page1_img0_abc.png]")
}

func TestCleanupRejectsBadPattern(t *testing.T) {
	cfg := config.DefaultConfig().Cleanup
	cfg.BoilerplatePatterns = []string{"(unclosed"}
	_, err := NewCleanupFilter(cfg)
	assert.Error(t, err)
}

func TestCleanupLengthIsRuneCount(t *testing.T) {
	f := newTestFilter(t)
	out, n := f.Apply("Lesson 5: π is the ratio of circumference to diameter")
	assert.Equal(t, len([]rune(out)), n)
	assert.Greater(t, n, 0)
}
