package mig

import "strings"

// Schema is a loaded MIG: top-level segments followed by segment groups, both
// in MIG counter order. A Schema is immutable after loading and may be shared
// across goroutines.
type Schema struct {
	MessageType string
	Version     string
	Segments    []*SegmentDef
	Groups      []*GroupDef
}

// SegmentDef declares one segment position in the MIG.
type SegmentDef struct {
	Tag     string
	MinRep  int
	MaxRep  int
	Counter int    // strictly increasing across the whole MIG; orders output
	Number  string // AHB field link, e.g. "00062"

	Elements []*ElementDef
}

// Mandatory reports whether at least one repetition is required.
func (s *SegmentDef) Mandatory() bool { return s.MinRep > 0 }

// ElementDef declares one element of a segment. A simple element carries a
// single component whose ID equals the element ID.
type ElementDef struct {
	ID         string
	Components []*ComponentDef
}

// ComponentDef declares a component's value domain for validation and
// synthesis.
type ComponentDef struct {
	ID        string
	MaxLength int
	Format    string   // "a", "n" or "an"
	Codes     []string // allowed code values; empty means unrestricted
}

// GroupDef declares a segment group, possibly a qualifier-discriminated
// variant of a base group (e.g. SG5 with qualifier Z16).
type GroupDef struct {
	ID            string // base identifier, e.g. "SG5"
	Qualifier     string // variant key, e.g. "Z16"; empty for undiscriminated groups
	MinRep        int
	MaxRep        int
	Counter       int
	Segments      []*SegmentDef
	Groups        []*GroupDef
	Discriminator *Discriminator
}

// Discriminator names the entry-segment position whose value selects a group
// variant.
type Discriminator struct {
	Element    int
	Component  int
	Qualifiers []string
}

// VariantID returns the PID-style variant identifier, e.g. "SG5_Z16".
func (g *GroupDef) VariantID() string {
	if g.Qualifier == "" {
		return g.ID
	}
	return g.ID + "_" + g.Qualifier
}

// EntrySegment returns the group's first declared segment, which opens each
// repetition. Nil for an empty (malformed) group.
func (g *GroupDef) EntrySegment() *SegmentDef {
	if len(g.Segments) == 0 {
		return nil
	}
	return g.Segments[0]
}

// Matches reports whether seg can open a repetition of this group: the tag
// equals the entry segment's tag (case-insensitive) and, for discriminated
// groups, the discriminator component equals one of the declared qualifiers
// after trimming surrounding whitespace.
func (g *GroupDef) Matches(tag string, component func(elem, comp int) (string, bool)) bool {
	entry := g.EntrySegment()
	if entry == nil || !strings.EqualFold(tag, entry.Tag) {
		return false
	}
	if g.Discriminator == nil {
		return true
	}
	v, ok := component(g.Discriminator.Element, g.Discriminator.Component)
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	for _, q := range g.Discriminator.Qualifiers {
		if v == q {
			return true
		}
	}
	return false
}

// FindSegment returns the top-level segment definition for tag, or nil.
func (s *Schema) FindSegment(tag string) *SegmentDef {
	for _, def := range s.Segments {
		if strings.EqualFold(def.Tag, tag) {
			return def
		}
	}
	return nil
}

// FindGroup returns the first group (searching depth-first) whose variant ID
// or base ID equals id, or nil.
func (s *Schema) FindGroup(id string) *GroupDef {
	return findGroup(s.Groups, id)
}

func findGroup(groups []*GroupDef, id string) *GroupDef {
	for _, g := range groups {
		if strings.EqualFold(g.VariantID(), id) || strings.EqualFold(g.ID, id) {
			return g
		}
		if found := findGroup(g.Groups, id); found != nil {
			return found
		}
	}
	return nil
}

// SegmentIn returns the definition of tag within the group, or nil.
func (g *GroupDef) SegmentIn(tag string) *SegmentDef {
	for _, def := range g.Segments {
		if strings.EqualFold(def.Tag, tag) {
			return def
		}
	}
	return nil
}
