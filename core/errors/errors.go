// Package errors provides standardized error types and helpers for the CanonScope codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrSourceUnavailable indicates a canonical source could not be read
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEncoding indicates text normalization could not produce valid UTF-8
	ErrEncoding = errors.New("encoding error")
	// ErrSegmentation indicates inconsistent book/chapter/verse boundary markers
	ErrSegmentation = errors.New("segmentation error")
	// ErrScoring indicates a sentiment scorer failed for a verse
	ErrScoring = errors.New("scoring error")
	// ErrPresentation indicates a rendering artifact could not be produced
	ErrPresentation = errors.New("presentation error")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
)

// SourceError represents a failure to read or retrieve a canonical source.
type SourceError struct {
	Source string // Path or URL of the source
	Op     string // Operation being performed (e.g., "open", "fetch", "decompress")
	Err    error  // Underlying error
}

func (e *SourceError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("source unavailable: cannot %s %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSourceUnavailable
}

// Is reports whether this error matches ErrSourceUnavailable regardless of
// the wrapped cause, so callers can classify without unwrapping chains.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// EncodingError represents a normalization failure on source text.
type EncodingError struct {
	Source  string // Path or URL of the source
	Offset  int    // Byte offset of the first undecodable sequence, -1 if unknown
	Message string // Human-readable details
}

func (e *EncodingError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("encoding error in %s at byte %d: %s", e.Source, e.Offset, e.Message)
	}
	return fmt.Sprintf("encoding error in %s: %s", e.Source, e.Message)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }

// SegmentationError represents inconsistent verse boundary markers.
// Book, Chapter, and Verse identify the offending unit when known;
// zero values mean the position could not be attributed.
type SegmentationError struct {
	Book    string
	Chapter int
	Verse   int
	Line    int // 1-indexed source line, 0 if unknown
	Message string
}

func (e *SegmentationError) Error() string {
	loc := e.Book
	if e.Chapter > 0 {
		loc = fmt.Sprintf("%s %d", e.Book, e.Chapter)
		if e.Verse > 0 {
			loc = fmt.Sprintf("%s %d:%d", e.Book, e.Chapter, e.Verse)
		}
	}
	if loc == "" {
		if e.Line > 0 {
			return fmt.Sprintf("segmentation error at line %d: %s", e.Line, e.Message)
		}
		return fmt.Sprintf("segmentation error: %s", e.Message)
	}
	return fmt.Sprintf("segmentation error at %s: %s", loc, e.Message)
}

func (e *SegmentationError) Unwrap() error { return ErrSegmentation }

// ScoringError represents a scorer failure for a single verse.
// Scoring errors are recorded per verse and never abort a batch.
type ScoringError struct {
	Ref    string // Verse reference (e.g., "Genesis 1:1")
	Scorer string // Scorer implementation name
	Err    error  // Underlying error
}

func (e *ScoringError) Error() string {
	if e.Scorer != "" {
		return fmt.Sprintf("scoring error for %s (%s): %v", e.Ref, e.Scorer, e.Err)
	}
	return fmt.Sprintf("scoring error for %s: %v", e.Ref, e.Err)
}

func (e *ScoringError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrScoring
}

func (e *ScoringError) Is(target error) bool {
	return target == ErrScoring
}

// PresentationError represents malformed input to the presenter.
type PresentationError struct {
	Artifact string // Artifact being rendered (e.g., "chart", "table", "html")
	Message  string
}

func (e *PresentationError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("presentation error rendering %s: %s", e.Artifact, e.Message)
	}
	return fmt.Sprintf("presentation error: %s", e.Message)
}

func (e *PresentationError) Unwrap() error { return ErrPresentation }

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Helper functions for creating common errors

// NewSource creates a SourceError
func NewSource(op, source string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Err: err}
}

// NewEncoding creates an EncodingError
func NewEncoding(source string, offset int, message string) *EncodingError {
	return &EncodingError{Source: source, Offset: offset, Message: message}
}

// NewSegmentation creates a SegmentationError
func NewSegmentation(book string, chapter, verse int, message string) *SegmentationError {
	return &SegmentationError{Book: book, Chapter: chapter, Verse: verse, Message: message}
}

// NewScoring creates a ScoringError
func NewScoring(ref, scorer string, err error) *ScoringError {
	return &ScoringError{Ref: ref, Scorer: scorer, Err: err}
}

// NewPresentation creates a PresentationError
func NewPresentation(artifact, message string) *PresentationError {
	return &PresentationError{Artifact: artifact, Message: message}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
