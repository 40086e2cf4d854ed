package edifact

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tokenize splits raw interchange bytes into segments, honoring a leading UNA
// service string advice and release-character escaping. Release characters are
// stripped from the returned component strings; Render re-inserts them.
//
// Empty input and input containing only whitespace yield zero segments and the
// default delimiters, with no error.
func Tokenize(input []byte) ([]Segment, Delimiters, error) {
	if !utf8.Valid(input) {
		return nil, Delimiters{}, ErrInvalidUTF8
	}

	delims := DefaultDelimiters()
	pos := skipWhitespace(input, 0)
	if len(input)-pos >= 3 && string(input[pos:pos+3]) == "UNA" {
		d, err := ParseUNA(input[pos+3:])
		if err != nil {
			return nil, Delimiters{}, err
		}
		delims = d
		pos += 9
	}

	var segments []Segment
	number := 0
	for {
		pos = skipWhitespace(input, pos)
		if pos >= len(input) {
			return segments, delims, nil
		}
		start := pos
		end, err := findTerminator(input, pos, delims)
		if err != nil {
			return nil, delims, fmt.Errorf("offset %d: %w", start, err)
		}
		number++
		seg, err := splitSegment(input[start:end], delims)
		if err != nil {
			return nil, delims, fmt.Errorf("segment %d at offset %d: %w", number, start, err)
		}
		seg.Number = number
		seg.Offset = start
		segments = append(segments, seg)
		pos = end + 1
	}
}

// HasUNA reports whether the input (after leading whitespace) begins with an
// explicit UNA service string advice.
func HasUNA(input []byte) bool {
	pos := skipWhitespace(input, 0)
	return len(input)-pos >= 9 && string(input[pos:pos+3]) == "UNA"
}

func skipWhitespace(b []byte, pos int) int {
	for pos < len(b) {
		switch b[pos] {
		case '\n', '\r', '\t', ' ':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// findTerminator returns the index of the next unescaped segment terminator.
func findTerminator(b []byte, pos int, d Delimiters) (int, error) {
	for i := pos; i < len(b); i++ {
		switch b[i] {
		case d.Release:
			if i+1 >= len(b) {
				return 0, ErrUnterminatedSegment
			}
			i++ // the escaped byte is data
		case d.Terminator:
			return i, nil
		}
	}
	return 0, ErrUnterminatedSegment
}

// splitSegment splits one raw segment (terminator excluded) into tag and
// elements, stripping release characters.
func splitSegment(raw []byte, d Delimiters) (Segment, error) {
	if len(raw) == 0 {
		return Segment{}, ErrEmptySegmentID
	}
	elements := splitEscaped(raw, d.Element, d.Release)
	tagPart := elements[0]
	tag := strings.ToUpper(string(unescape(splitEscaped(tagPart, d.Component, d.Release)[0], d.Release)))
	if tag == "" {
		return Segment{}, ErrEmptySegmentID
	}
	seg := Segment{Tag: tag}
	for _, el := range elements[1:] {
		comps := splitEscaped(el, d.Component, d.Release)
		element := make(Element, len(comps))
		for i, c := range comps {
			element[i] = string(unescape(c, d.Release))
		}
		seg.Elements = append(seg.Elements, element)
	}
	return seg, nil
}

// splitEscaped splits b at every unescaped occurrence of sep.
func splitEscaped(b []byte, sep, release byte) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case release:
			i++
		case sep:
			parts = append(parts, b[start:i])
			start = i + 1
		}
	}
	return append(parts, b[start:])
}

// unescape removes release characters, keeping the bytes they protect.
func unescape(b []byte, release byte) []byte {
	if idxByte(b, release) < 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == release && i+1 < len(b) {
			i++
		}
		out = append(out, b[i])
	}
	return out
}

func idxByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}
