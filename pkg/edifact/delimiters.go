package edifact

import "fmt"

// Delimiters holds the six service characters of an interchange. The zero value
// is not usable; construct with DefaultDelimiters or parse a UNA header.
type Delimiters struct {
	Component  byte // separates components within an element (default ':')
	Element    byte // separates elements within a segment (default '+')
	Decimal    byte // decimal mark (default '.')
	Release    byte // escapes the following byte (default '?')
	Terminator byte // ends a segment (default '\'')
	Reserved   byte // reserved for future use (default ' ')
}

// DefaultDelimiters returns the UN/EDIFACT level-A service characters.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Component:  ':',
		Element:    '+',
		Decimal:    '.',
		Release:    '?',
		Terminator: '\'',
		Reserved:   ' ',
	}
}

// ParseUNA reads the six service characters following a "UNA" tag. The slice
// must contain at least the six delimiter bytes.
func ParseUNA(b []byte) (Delimiters, error) {
	if len(b) < 6 {
		return Delimiters{}, fmt.Errorf("%w: UNA header truncated after %d of 6 service characters", ErrInvalidUNA, len(b))
	}
	d := Delimiters{
		Component:  b[0],
		Element:    b[1],
		Decimal:    b[2],
		Release:    b[3],
		Reserved:   b[4],
		Terminator: b[5],
	}
	seen := map[byte]bool{}
	for _, c := range []byte{d.Component, d.Element, d.Release, d.Terminator} {
		if seen[c] {
			return Delimiters{}, fmt.Errorf("%w: service character %q assigned twice", ErrInvalidUNA, c)
		}
		seen[c] = true
	}
	return d, nil
}

// UNA renders the delimiter set as a UNA segment, e.g. "UNA:+.? '".
func (d Delimiters) UNA() []byte {
	return []byte{'U', 'N', 'A', d.Component, d.Element, d.Decimal, d.Release, d.Reserved, d.Terminator}
}

// IsService reports whether b acts as a delimiter under this set.
func (d Delimiters) IsService(b byte) bool {
	return b == d.Component || b == d.Element || b == d.Release || b == d.Terminator
}
