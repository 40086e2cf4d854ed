package edifact

import "bytes"

// Render serializes segments with the given delimiters, re-applying the release
// character to any data byte that collides with a service character. When
// withUNA is set, a UNA service string advice is emitted first.
//
// Trailing empty elements of a segment are dropped; trailing empty components
// within an element are preserved. Callers that need MIG-mandated trailing
// elements must include non-empty or structurally required components before
// rendering (the disassembler does).
func Render(segments []Segment, d Delimiters, withUNA bool) []byte {
	var buf bytes.Buffer
	if withUNA {
		buf.Write(d.UNA())
	}
	for i := range segments {
		RenderSegment(&buf, &segments[i], d)
	}
	return buf.Bytes()
}

// RenderSegment writes a single segment, terminator included, to buf.
func RenderSegment(buf *bytes.Buffer, seg *Segment, d Delimiters) {
	buf.WriteString(seg.Tag)
	elements := seg.Elements
	for len(elements) > 0 && elementEmpty(elements[len(elements)-1]) {
		elements = elements[:len(elements)-1]
	}
	for _, el := range elements {
		buf.WriteByte(d.Element)
		for j, comp := range el {
			if j > 0 {
				buf.WriteByte(d.Component)
			}
			writeEscaped(buf, comp, d)
		}
	}
	buf.WriteByte(d.Terminator)
}

// elementEmpty reports whether every component of el is the empty string. A
// multi-component element of empty strings is not empty for rendering purposes:
// its internal separators carry structure (e.g. "CAV+SA:::").
func elementEmpty(el Element) bool {
	if len(el) > 1 {
		return false
	}
	for _, c := range el {
		if c != "" {
			return false
		}
	}
	return true
}

func writeEscaped(buf *bytes.Buffer, s string, d Delimiters) {
	for i := 0; i < len(s); i++ {
		if d.IsService(s[i]) {
			buf.WriteByte(d.Release)
		}
		buf.WriteByte(s[i])
	}
}
