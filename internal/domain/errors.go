package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures by scope. Only request-scoped kinds
// (admission, structural parse) may abort a request; region-scoped kinds are
// logged and degrade the owning block.
type ErrorKind int

const (
	KindAdmission ErrorKind = iota
	KindStructuralParse
	KindRegionExtraction
	KindOCR
	KindRecognitionBackend
	KindConfig
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindAdmission:
		return "admission"
	case KindStructuralParse:
		return "structural_parse"
	case KindRegionExtraction:
		return "region_extraction"
	case KindOCR:
		return "ocr"
	case KindRecognitionBackend:
		return "recognition_backend"
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Error is the pipeline error type. Every user-visible failure carries a
// human-readable message; Cause is kept for logs and unwrapping.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AdmissionError rejects a request before any parsing work starts
// (oversized payload, too many pages, empty upload).
func AdmissionError(msg string, cause error) *Error {
	return &Error{Kind: KindAdmission, Message: msg, Cause: cause}
}

// StructuralParseError aborts a request whose PDF no available parser can
// read.
func StructuralParseError(msg string, cause error) *Error {
	return &Error{Kind: KindStructuralParse, Message: msg, Cause: cause}
}

// RegionExtractionError marks a per-region crop or raster failure. The block
// degrades to text-only; the request continues.
func RegionExtractionError(msg string, cause error) *Error {
	return &Error{Kind: KindRegionExtraction, Message: msg, Cause: cause}
}

// OCRError marks a per-region OCR failure. The region keeps empty OCR text
// and is never classified as a formula.
func OCRError(msg string, cause error) *Error {
	return &Error{Kind: KindOCR, Message: msg, Cause: cause}
}

// RecognitionBackendError marks one backend's failure inside the dispatch
// chain; the dispatcher moves on to the next backend.
func RecognitionBackendError(msg string, cause error) *Error {
	return &Error{Kind: KindRecognitionBackend, Message: msg, Cause: cause}
}

// ConfigError marks invalid or missing configuration.
func ConfigError(msg string, cause error) *Error {
	return &Error{Kind: KindConfig, Message: msg, Cause: cause}
}

// IOError marks a filesystem failure (temp dirs, crop files).
func IOError(msg string, cause error) *Error {
	return &Error{Kind: KindIO, Message: msg, Cause: cause}
}

// KindOf reports the kind of err if it is a pipeline *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsAdmission reports whether err is an admission rejection.
func IsAdmission(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindAdmission
}

// IsStructuralParse reports whether err is a structural parse failure.
func IsStructuralParse(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindStructuralParse
}
