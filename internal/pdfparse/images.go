package pdfparse

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// scanImagePlacements recovers embedded-image descriptors by scanning the
// page content stream for XObject invocations. An image is painted by
// mapping the unit square through the current transformation matrix, so the
// box is recovered from the matrix in effect at each Do operator. The scan
// understands q/Q nesting and cm composition; exotic constructs (images
// painted from form XObjects, inline images) are out of reach and simply
// produce no descriptor.
func scanImagePlacements(page pdf.Page, pageHeight float64) []ImageRef {
	imageNames := imageXObjectNames(page)
	if len(imageNames) == 0 {
		return nil
	}

	stream := contentStream(page)
	if stream == "" {
		return nil
	}

	var refs []ImageRef

	ctm := identityMatrix()
	stack := []matrix{}
	var operands []string

	for _, tok := range tokenize(stream) {
		switch tok {
		case "q":
			stack = append(stack, ctm)
			operands = operands[:0]
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
			operands = operands[:0]
		case "cm":
			if m, ok := matrixFromOperands(operands); ok {
				ctm = m.multiply(ctm)
			}
			operands = operands[:0]
		case "Do":
			if len(operands) > 0 {
				name := strings.TrimPrefix(operands[len(operands)-1], "/")
				if imageNames[name] {
					refs = append(refs, placementBox(ctm, pageHeight))
				}
			}
			operands = operands[:0]
		default:
			if isOperand(tok) {
				operands = append(operands, tok)
			} else {
				// any other operator consumes its operands
				operands = operands[:0]
			}
		}
	}

	return refs
}

// imageXObjectNames lists the page's XObject resource names whose subtype
// is Image.
func imageXObjectNames(page pdf.Page) map[string]bool {
	xobj := page.Resources().Key("XObject")
	if xobj.Kind() != pdf.Dict {
		return nil
	}

	names := make(map[string]bool)
	for _, key := range xobj.Keys() {
		if xobj.Key(key).Key("Subtype").Name() == "Image" {
			names[key] = true
		}
	}
	return names
}

// contentStream concatenates the page's content stream data. Contents may
// be a single stream or an array of streams.
func contentStream(page pdf.Page) string {
	contents := page.V.Key("Contents")

	var sb strings.Builder
	readOne := func(v pdf.Value) {
		if v.Kind() != pdf.Stream {
			return
		}
		r := v.Reader()
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}

	switch contents.Kind() {
	case pdf.Stream:
		readOne(contents)
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			readOne(contents.Index(i))
		}
	}
	return sb.String()
}

// tokenize splits a content stream into whitespace-separated tokens,
// also breaking on the array and string delimiters that commonly abut
// operands. This is a coarse scan, not a full postscript lexer; it is
// sufficient to locate cm and Do operators.
func tokenize(stream string) []string {
	return strings.FieldsFunc(stream, func(r rune) bool {
		switch r {
		case ' ', '\t', '\r', '\n', '\f', '\x00', '[', ']', '(', ')', '<', '>':
			return true
		}
		return false
	})
}

func isOperand(tok string) bool {
	if tok == "" {
		return false
	}
	if tok[0] == '/' {
		return true
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

func identityMatrix() matrix { return matrix{1, 0, 0, 1, 0, 0} }

func matrixFromOperands(ops []string) (matrix, bool) {
	if len(ops) < 6 {
		return matrix{}, false
	}
	var m matrix
	for i := 0; i < 6; i++ {
		f, err := strconv.ParseFloat(ops[len(ops)-6+i], 64)
		if err != nil {
			return matrix{}, false
		}
		m[i] = f
	}
	return m, true
}

// multiply returns m x n (m applied first).
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// placementBox maps the unit square through the matrix and converts the
// result to top-down page coordinates as an origin+size descriptor.
func placementBox(m matrix, pageHeight float64) ImageRef {
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, corner := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(corner[0], corner[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := range xs {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}

	// PDF Y grows upward; top-down top is measured from the page top.
	return ImageRef{
		X:      ptr(minX),
		Y:      ptr(pageHeight - maxY),
		Width:  ptr(maxX - minX),
		Height: ptr(maxY - minY),
	}
}
