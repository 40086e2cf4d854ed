package assemble

import (
	"strings"

	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

// Assemble runs a single left-to-right cursor pass over a message's segments,
// matching them against the MIG schema. Structure problems are recoverable:
// they accumulate as diagnostics and assembly continues. Segments that match
// no MIG position are kept as passthrough entries on the innermost instance.
func Assemble(segments []edifact.Segment, schema *mig.Schema) (*Tree, []Diagnostic, error) {
	a := &assembler{segs: segments}
	tree := &Tree{}

	beforeDefs, afterDefs := splitTopLevel(schema)
	a.consumeFlat(beforeDefs, &tree.BeforeGroups, "")

	afterIdx := 0
	for a.pos < len(a.segs) {
		seg := &a.segs[a.pos]

		if def := matchGroup(schema.Groups, seg); def != nil {
			grp := groupFor(tree, def)
			if len(grp.Instances) >= def.MaxRep {
				a.diags = append(a.diags, maxRepetitions(def.VariantID(), def.MaxRep, seg.Number))
			}
			grp.Instances = append(grp.Instances, a.consumeInstance(def))
			continue
		}

		if i := matchFlat(afterDefs, afterIdx, seg.Tag); i >= 0 {
			for j := afterIdx; j < i; j++ {
				if afterDefs[j].Mandatory() {
					a.diags = append(a.diags, missingRequired(afterDefs[j].Tag, ""))
				}
			}
			afterIdx = i
			a.consumeReps(afterDefs[i], &tree.AfterGroups)
			afterIdx++
			continue
		}

		a.unexpected(tree, seg)
		a.pos++
	}
	for j := afterIdx; j < len(afterDefs); j++ {
		if afterDefs[j].Mandatory() {
			a.diags = append(a.diags, missingRequired(afterDefs[j].Tag, ""))
		}
	}
	return tree, a.diags, nil
}

type assembler struct {
	segs  []edifact.Segment
	pos   int
	diags []Diagnostic
}

// splitTopLevel partitions the schema's top-level segments into those declared
// above the first group and those declared below the last group.
func splitTopLevel(schema *mig.Schema) (before, after []*mig.SegmentDef) {
	if len(schema.Groups) == 0 {
		return schema.Segments, nil
	}
	firstGroup := schema.Groups[0].Counter
	for _, def := range schema.Segments {
		if def.Counter < firstGroup {
			before = append(before, def)
		} else {
			after = append(after, def)
		}
	}
	return before, after
}

// consumeFlat walks an ordered run of segment definitions, consuming matching
// repetitions and diagnosing mandatory absences.
func (a *assembler) consumeFlat(defs []*mig.SegmentDef, out *[]edifact.Segment, groupID string) {
	for _, def := range defs {
		if n := a.consumeReps(def, out); n == 0 && def.Mandatory() {
			a.diags = append(a.diags, missingRequired(def.Tag, groupID))
		}
	}
}

// consumeReps consumes up to MaxRep cursor segments matching def's tag.
func (a *assembler) consumeReps(def *mig.SegmentDef, out *[]edifact.Segment) int {
	n := 0
	for a.pos < len(a.segs) && n < def.MaxRep && strings.EqualFold(a.segs[a.pos].Tag, def.Tag) {
		*out = append(*out, a.segs[a.pos])
		a.pos++
		n++
	}
	return n
}

// consumeInstance opens one repetition of def at the cursor: the entry
// segment, then inner segments in MIG order, then child groups recursively.
func (a *assembler) consumeInstance(def *mig.GroupDef) *Instance {
	inst := &Instance{}
	// entry segment
	inst.Segments = append(inst.Segments, a.segs[a.pos])
	a.pos++

	for _, segDef := range def.Segments[1:] {
		if n := a.consumeReps(segDef, &inst.Segments); n == 0 && segDef.Mandatory() {
			a.diags = append(a.diags, missingRequired(segDef.Tag, def.VariantID()))
		}
	}

	for a.pos < len(a.segs) {
		childDef := matchGroup(def.Groups, &a.segs[a.pos])
		if childDef == nil {
			break
		}
		grp := childGroupFor(inst, childDef)
		if len(grp.Instances) >= childDef.MaxRep {
			a.diags = append(a.diags, maxRepetitions(childDef.VariantID(), childDef.MaxRep, a.segs[a.pos].Number))
		}
		grp.Instances = append(grp.Instances, a.consumeInstance(childDef))
	}

	for _, childDef := range def.Groups {
		if childDef.MinRep > 0 && inst.Child(childDef.VariantID()) == nil {
			a.diags = append(a.diags, missingRequired(childDef.EntrySegment().Tag, childDef.VariantID()))
		}
	}
	return inst
}

// matchGroup returns the first declared group (counter order, so earlier
// counters take precedence) that the segment can open.
func matchGroup(groups []*mig.GroupDef, seg *edifact.Segment) *mig.GroupDef {
	for _, g := range groups {
		if g.Matches(seg.Tag, seg.Component) {
			return g
		}
	}
	return nil
}

func matchFlat(defs []*mig.SegmentDef, from int, tag string) int {
	for i := from; i < len(defs); i++ {
		if strings.EqualFold(defs[i].Tag, tag) {
			return i
		}
	}
	return -1
}

// unexpected records a diagnostic and preserves the segment as passthrough on
// the innermost instance consumed so far, or on the tree itself.
func (a *assembler) unexpected(tree *Tree, seg *edifact.Segment) {
	zone := zoneForTag(seg.Tag)
	if inst, groupID := innermostInstance(tree); inst != nil {
		a.diags = append(a.diags, unexpectedSegment(seg.Tag, groupID, seg.Number, zone))
		inst.Passthrough = append(inst.Passthrough, Passthrough{
			Segment: *seg,
			Zone:    zone,
			Anchor:  len(inst.Segments),
		})
		return
	}
	a.diags = append(a.diags, unexpectedSegment(seg.Tag, "", seg.Number, zone))
	anchor := len(tree.BeforeGroups)
	if len(tree.Groups) > 0 {
		anchor = -1 // past the group section, replay before the trailing segments
	}
	tree.Passthrough = append(tree.Passthrough, Passthrough{Segment: *seg, Zone: zone, Anchor: anchor})
}

// innermostInstance returns the most recently opened instance, descending into
// the last child group chain.
func innermostInstance(tree *Tree) (*Instance, string) {
	if len(tree.Groups) == 0 {
		return nil, ""
	}
	grp := tree.Groups[len(tree.Groups)-1]
	if len(grp.Instances) == 0 {
		return nil, ""
	}
	inst := grp.Instances[len(grp.Instances)-1]
	for {
		if len(inst.Children) == 0 {
			return inst, grp.ID()
		}
		child := inst.Children[len(inst.Children)-1]
		if len(child.Instances) == 0 {
			return inst, grp.ID()
		}
		grp = child
		inst = child.Instances[len(child.Instances)-1]
	}
}

func groupFor(tree *Tree, def *mig.GroupDef) *Group {
	for _, g := range tree.Groups {
		if g.Def == def {
			return g
		}
	}
	g := &Group{Def: def}
	tree.Groups = append(tree.Groups, g)
	return g
}

func childGroupFor(inst *Instance, def *mig.GroupDef) *Group {
	for _, g := range inst.Children {
		if g.Def == def {
			return g
		}
	}
	g := &Group{Def: def}
	inst.Children = append(inst.Children, g)
	return g
}
