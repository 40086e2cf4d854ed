package edifact

import "errors"

var (
	// ErrInvalidUNA indicates a structurally malformed UNA service string advice.
	ErrInvalidUNA = errors.New("invalid UNA header")
	// ErrUnterminatedSegment indicates input ended inside a segment.
	ErrUnterminatedSegment = errors.New("unterminated segment")
	// ErrUnexpectedEOF indicates truncated input where a segment boundary was expected.
	ErrUnexpectedEOF = errors.New("unexpected end of input")
	// ErrInvalidUTF8 indicates the input is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 input")
	// ErrEmptySegmentID indicates a segment with no tag.
	ErrEmptySegmentID = errors.New("empty segment id")
)
