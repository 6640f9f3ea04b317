package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty string",
			in:   "",
			want: "",
		},
		{
			name: "plain text unchanged",
			in:   "Hello world",
			want: "Hello world",
		},
		{
			name: "zero width and bom stripped",
			in:   "Hel​lo\ufeff world",
			want: "Hello world",
		},
		{
			name: "non breaking space becomes space",
			in:   "a b",
			want: "a b",
		},
		{
			name: "replacement chars removed",
			in:   "result� here�",
			want: "result here",
		},
		{
			name: "control chars removed",
			in:   "a\x01b\x7fc",
			want: "abc",
		},
		{
			name: "stray artifact removed",
			in:   "HelloÂ world",
			want: "Hello world",
		},
		{
			name: "space runs collapse",
			in:   "foo   bar\t\tbaz",
			want: "foo bar baz",
		},
		{
			name: "newline runs collapse to two",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "trimmed",
			in:   "  padded  \n",
			want: "padded",
		},
		{
			name: "letter gaps rejoined",
			in:   "W h a t is this",
			want: "What is this",
		},
		{
			name: "two letter run kept apart",
			in:   "a b road",
			want: "a b road",
		},
		{
			name: "stray combining mark stripped",
			in:   "figure 3\u0301 here",
			want: "figure 3 here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello world",
		"W h a t   is this�",
		"line one\n\n\n\nline two",
		"math: x^2 + y^2 = r^2",
		"CafÃ© menu",
		"​\ufeff\x00",
		"A ́ b Â c d",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize not idempotent for %q", in)
	}
}

func TestFixMojibakeOnlyKeptWhenItHelps(t *testing.T) {
	// Contains a replacement char; reinterpreting the latin-1 bytes drops
	// it, so the repaired form wins.
	assert.Equal(t, "Wht", fixMojibake("Wh�t"))

	// No replacement chars at all: candidate cannot strictly improve, the
	// original is kept even though a marker byte is present.
	in := "CafÃ©"
	assert.Equal(t, in, fixMojibake(in))

	// No markers: untouched.
	assert.Equal(t, "plain", fixMojibake("plain"))
}

func TestCollapseLetterGaps(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"W h a t", "What"},
		{"s p a c e d out words", "spaced out words"},
		{"I a m here", "Iam here"},
		{"a b", "a b"},
		{"normal text", "normal text"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, collapseLetterGaps(tt.in), "input %q", tt.in)
	}
}
