package assemble

import (
	"errors"
	"strings"

	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

var (
	// ErrCursorOutOfBounds indicates internal cursor movement past the segment list.
	ErrCursorOutOfBounds = errors.New("cursor out of bounds")
	// ErrSegmentNotFound indicates a lookup for a segment the tree does not hold.
	ErrSegmentNotFound = errors.New("segment not found in tree")
)

// Zone is the coarse section of a message a passthrough segment was captured
// in; it decides where the disassembler replays the segment.
type Zone int

const (
	ZoneMessageHeader Zone = iota
	ZoneTransactionHeader
	ZoneLocations
	ZoneReferences
	ZoneSequences
	ZoneParties
)

func (z Zone) String() string {
	switch z {
	case ZoneMessageHeader:
		return "message-header"
	case ZoneTransactionHeader:
		return "transaction-header"
	case ZoneLocations:
		return "locations"
	case ZoneReferences:
		return "references"
	case ZoneSequences:
		return "sequences"
	case ZoneParties:
		return "parties"
	}
	return "unknown"
}

// zoneForTag classifies a segment tag into its message zone.
func zoneForTag(tag string) Zone {
	switch tag {
	case "IDE":
		return ZoneTransactionHeader
	case "LOC":
		return ZoneLocations
	case "RFF":
		return ZoneReferences
	case "SEQ", "CCI", "CAV", "QTY", "REL":
		return ZoneSequences
	case "NAD", "CTA", "COM":
		return ZoneParties
	}
	return ZoneMessageHeader
}

// Passthrough is a segment the assembler could not place, kept for replay.
// Anchor is the number of segments its owner held when it was captured, so the
// disassembler can re-emit it at the position it was encountered.
type Passthrough struct {
	Segment edifact.Segment
	Zone    Zone
	Anchor  int
}

// Instance is one repetition of a group: its own segments in MIG order,
// nested child groups, and any passthrough segments captured inside it.
type Instance struct {
	Segments    []edifact.Segment
	Children    []*Group
	Passthrough []Passthrough
}

// Group collects the repetitions of one MIG group (or group variant).
type Group struct {
	Def       *mig.GroupDef
	Instances []*Instance
}

// ID returns the group's variant identifier, e.g. "SG5_Z16".
func (g *Group) ID() string { return g.Def.VariantID() }

// Tree is an assembled message: segments above the first group, the groups in
// MIG order, segments below the last group, and top-level passthroughs.
type Tree struct {
	BeforeGroups []edifact.Segment
	Groups       []*Group
	AfterGroups  []edifact.Segment
	Passthrough  []Passthrough
}

// FindGroup returns the first assembled group (depth-first) whose variant or
// base ID matches, or nil.
func (t *Tree) FindGroup(id string) *Group {
	return findGroup(t.Groups, id)
}

func findGroup(groups []*Group, id string) *Group {
	for _, g := range groups {
		if equalFold(g.ID(), id) || equalFold(g.Def.ID, id) {
			return g
		}
		for _, inst := range g.Instances {
			if found := findGroup(inst.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindSegment returns the first top-level segment with the given tag.
func (t *Tree) FindSegment(tag string) (*edifact.Segment, error) {
	for i := range t.BeforeGroups {
		if equalFold(t.BeforeGroups[i].Tag, tag) {
			return &t.BeforeGroups[i], nil
		}
	}
	for i := range t.AfterGroups {
		if equalFold(t.AfterGroups[i].Tag, tag) {
			return &t.AfterGroups[i], nil
		}
	}
	return nil, ErrSegmentNotFound
}

// FindIn returns the first segment with the given tag inside the instance.
func (inst *Instance) FindIn(tag string) (*edifact.Segment, error) {
	for i := range inst.Segments {
		if equalFold(inst.Segments[i].Tag, tag) {
			return &inst.Segments[i], nil
		}
	}
	return nil, ErrSegmentNotFound
}

// Child returns the instance's child group with the given variant or base ID.
func (inst *Instance) Child(id string) *Group {
	return findGroup(inst.Children, id)
}

// Clone returns a deep copy of the tree; filters operate on copies so the
// input tree stays untouched.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		BeforeGroups: cloneSegments(t.BeforeGroups),
		AfterGroups:  cloneSegments(t.AfterGroups),
		Passthrough:  append([]Passthrough(nil), t.Passthrough...),
	}
	for _, g := range t.Groups {
		c.Groups = append(c.Groups, g.clone())
	}
	return c
}

func (g *Group) clone() *Group {
	c := &Group{Def: g.Def}
	for _, inst := range g.Instances {
		ci := &Instance{
			Segments:    cloneSegments(inst.Segments),
			Passthrough: append([]Passthrough(nil), inst.Passthrough...),
		}
		for _, child := range inst.Children {
			ci.Children = append(ci.Children, child.clone())
		}
		c.Instances = append(c.Instances, ci)
	}
	return c
}

func cloneSegments(segs []edifact.Segment) []edifact.Segment {
	out := make([]edifact.Segment, len(segs))
	for i := range segs {
		out[i] = segs[i].Clone()
	}
	return out
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }
