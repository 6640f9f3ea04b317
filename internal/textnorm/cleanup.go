package textnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/parchmint/pdfstruct/internal/config"
)

// Rule is one cleanup step: a pattern and its replacement, applied in order.
// Keeping the cascade as an explicit list makes each rule independently
// testable and externally configurable.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

var (
	pageNumberLineRe = regexp.MustCompile(`(?m)^[ \t]*\d{1,4}[ \t]*$`)
	placeholderRe    = regexp.MustCompile(`\[(?:IMG|MATH|MATHBLOCK):[^\[\]\s]+\]`)
)

// CleanupFilter is the second, document-wide normalization pass. It runs
// once over the fully flattened text, after per-line normalization, because
// its rules need whole-document context.
type CleanupFilter struct {
	rules         []Rule
	sectionMarker *regexp.Regexp
	minLineLength int
}

// NewCleanupFilter compiles the configured rule cascade.
func NewCleanupFilter(cfg config.CleanupConfig) (*CleanupFilter, error) {
	f := &CleanupFilter{minLineLength: cfg.MinLineLength}

	for _, p := range cfg.BoilerplatePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile boilerplate pattern %q: %w", p, err)
		}
		f.rules = append(f.rules, Rule{Pattern: re, Replacement: ""})
	}

	if cfg.SectionMarkerPattern != "" {
		re, err := regexp.Compile(cfg.SectionMarkerPattern)
		if err != nil {
			return nil, fmt.Errorf("compile section marker pattern %q: %w", cfg.SectionMarkerPattern, err)
		}
		f.sectionMarker = re
	}

	return f, nil
}

// Apply cleans the flattened document text and returns it with its rune
// length. Steps: boilerplate rules, page-number lines, front-matter
// collapse up to the first section marker, whitespace collapse, short-line
// removal.
func (f *CleanupFilter) Apply(s string) (string, int) {
	for _, r := range f.rules {
		s = r.Pattern.ReplaceAllString(s, r.Replacement)
	}

	s = pageNumberLineRe.ReplaceAllString(s, "")

	// A leading table-of-contents or index region adds noise; when a real
	// section heading is found, keep only content from it onward. Placeholder
	// tokens in the dropped prefix are carried over: each one corresponds to
	// an attachment and must stay resolvable.
	if f.sectionMarker != nil {
		if loc := f.sectionMarker.FindStringIndex(s); loc != nil && loc[0] > 0 {
			kept := placeholderRe.FindAllString(s[:loc[0]], -1)
			s = s[loc[0]:]
			if len(kept) > 0 {
				s = strings.Join(kept, "\n") + "\n" + s
			}
		}
	}

	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")

	s = f.dropShortLines(s)

	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s)
}

// dropShortLines removes leftover fragments shorter than the configured
// minimum. Blank lines, section headings, and lines carrying placeholder
// tokens are always kept; dropping a placeholder would break the
// text/attachment correspondence.
func (f *CleanupFilter) dropShortLines(s string) string {
	if f.minLineLength <= 0 {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			kept = append(kept, line)
		case utf8.RuneCountInString(trimmed) >= f.minLineLength:
			kept = append(kept, line)
		case placeholderRe.MatchString(trimmed):
			kept = append(kept, line)
		case f.sectionMarker != nil && f.sectionMarker.MatchString(trimmed):
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
