// Package textnorm repairs encoding artifacts and whitespace in extracted
// text, and provides the document-wide cleanup pass applied to the final
// flattened string.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const replacementChar = "�"

var (
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize repairs common PDF extraction artifacts in s. It is idempotent
// and never fails: optional repair steps that cannot apply are skipped.
//
// Steps, in order: strip zero-width characters and BOMs, replace
// non-breaking spaces, attempt mojibake repair, NFKC composition, strip
// replacement characters / control characters / stray combining marks,
// rejoin letter-gap runs, collapse whitespace runs, trim.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\u200b", "")
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\x00", "")

	s = fixMojibake(s)

	s = norm.NFKC.String(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case r < 0x20 && r != '\n' && r != '\t':
			return -1
		case r == 0x7f:
			return -1
		case r >= 0x300 && r <= 0x36f:
			// stray combining marks left behind by bad decoding
			return -1
		}
		return r
	}, s)

	// Leftover 'Â' artifacts from UTF-8 read as latin-1.
	s = strings.ReplaceAll(s, "Â", "")

	s = collapseLetterGaps(s)

	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// fixMojibake attempts to undo a UTF-8-read-as-latin-1 double decoding.
// The repair only runs when tell-tale markers are present, and the result
// is kept only when it strictly reduces the replacement-character count,
// which also keeps Normalize idempotent.
func fixMojibake(s string) string {
	if !strings.Contains(s, "Ã") && !strings.Contains(s, "Â") &&
		!strings.Contains(s, replacementChar) {
		return s
	}

	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x100 {
			buf = append(buf, byte(r))
		}
	}

	candidate := strings.ToValidUTF8(string(buf), replacementChar)
	if strings.Count(candidate, replacementChar) < strings.Count(s, replacementChar) {
		return candidate
	}
	return s
}

// collapseLetterGaps rejoins words that were shattered into single letters
// ("W h a t" -> "What"). Only runs of three or more single-letter tokens
// are joined, so legitimate one-letter words survive.
func collapseLetterGaps(s string) string {
	if s == "" {
		return s
	}

	tokens := splitKeepingWhitespace(s)

	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if isSingleLetter(tok) {
			run := []string{tok}
			j := i + 1
			for j+1 < len(tokens) && isWhitespace(tokens[j]) && isSingleLetter(tokens[j+1]) {
				run = append(run, tokens[j+1])
				j += 2
			}
			if len(run) >= 3 {
				out.WriteString(strings.Join(run, ""))
				i = j
				continue
			}
		}
		out.WriteString(tok)
		i++
	}

	return out.String()
}

// splitKeepingWhitespace splits s into alternating non-whitespace and
// whitespace tokens, preserving every character.
func splitKeepingWhitespace(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range s {
		ws := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if i == 0 {
			inSpace = ws
			continue
		}
		if ws != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
			inSpace = ws
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

func isSingleLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWhitespace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return s != ""
}
