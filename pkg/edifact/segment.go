package edifact

// Element is one data element of a segment: a non-empty sequence of component
// strings. A simple element has exactly one component.
type Element []string

// Segment is a tagged record of elements with its position metadata.
//
// Number is the 1-based ordinal of the segment within the interchange; Offset is
// the byte offset of the segment's first byte in the raw input. Trailing empty
// components within an element are preserved for round-trip fidelity.
type Segment struct {
	Tag      string
	Elements []Element
	Number   int
	Offset   int
}

// Component returns the component at the given element and component index, or
// false when either index is out of range.
func (s *Segment) Component(elem, comp int) (string, bool) {
	if elem < 0 || elem >= len(s.Elements) {
		return "", false
	}
	e := s.Elements[elem]
	if comp < 0 || comp >= len(e) {
		return "", false
	}
	return e[comp], true
}

// First returns the first component of the given element, or "" when absent.
func (s *Segment) First(elem int) string {
	v, _ := s.Component(elem, 0)
	return v
}

// Qualifier returns the first component of the first element. By EDIFACT
// convention this is where a segment's discriminating code lives.
func (s *Segment) Qualifier() string {
	return s.First(0)
}

// Clone returns a deep copy of the segment.
func (s *Segment) Clone() Segment {
	c := Segment{Tag: s.Tag, Number: s.Number, Offset: s.Offset}
	c.Elements = make([]Element, len(s.Elements))
	for i, e := range s.Elements {
		c.Elements[i] = append(Element(nil), e...)
	}
	return c
}

// Equal reports whether two segments carry the same tag and data, ignoring
// position metadata.
func (s *Segment) Equal(o *Segment) bool {
	if s.Tag != o.Tag || len(s.Elements) != len(o.Elements) {
		return false
	}
	for i, e := range s.Elements {
		if len(e) != len(o.Elements[i]) {
			return false
		}
		for j, c := range e {
			if c != o.Elements[i][j] {
				return false
			}
		}
	}
	return true
}
