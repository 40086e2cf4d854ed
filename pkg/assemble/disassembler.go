package assemble

import (
	"sort"
	"strings"

	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

// Disassemble flattens an assembled tree back into a segment list in
// MIG-defined order: top-level segments above the groups, then groups in
// counter order, each instance's segments in declared order with nested groups
// recursed, then the trailing top-level segments. Passthrough segments are
// replayed at the position they were captured.
func Disassemble(tree *Tree, schema *mig.Schema) []edifact.Segment {
	var out []edifact.Segment

	emitWithPassthrough(&out, tree.BeforeGroups, topAnchored(tree.Passthrough))

	groups := append([]*Group(nil), tree.Groups...)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Def.Counter < groups[j].Def.Counter
	})
	for _, g := range groups {
		for _, inst := range g.Instances {
			emitInstance(&out, g.Def, inst)
		}
	}

	for _, pt := range tree.Passthrough {
		if pt.Anchor < 0 {
			out = append(out, pt.Segment)
		}
	}
	out = append(out, tree.AfterGroups...)
	return out
}

func emitInstance(out *[]edifact.Segment, def *mig.GroupDef, inst *Instance) {
	segs := append([]edifact.Segment(nil), inst.Segments...)
	sort.SliceStable(segs, func(i, j int) bool {
		return defOrder(def, segs[i].Tag) < defOrder(def, segs[j].Tag)
	})
	emitWithPassthrough(out, segs, inst.Passthrough)

	children := append([]*Group(nil), inst.Children...)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Def.Counter < children[j].Def.Counter
	})
	for _, child := range children {
		for _, childInst := range child.Instances {
			emitInstance(out, child.Def, childInst)
		}
	}
}

// emitWithPassthrough interleaves segments with passthroughs anchored between
// them: a passthrough with Anchor n is replayed after the first n segments.
func emitWithPassthrough(out *[]edifact.Segment, segs []edifact.Segment, pts []Passthrough) {
	for i := 0; i <= len(segs); i++ {
		for _, pt := range pts {
			if pt.Anchor == i {
				*out = append(*out, pt.Segment)
			}
		}
		if i < len(segs) {
			*out = append(*out, segs[i])
		}
	}
	// anchors past the segment run (captured after later consumption)
	for _, pt := range pts {
		if pt.Anchor > len(segs) {
			*out = append(*out, pt.Segment)
		}
	}
}

func topAnchored(pts []Passthrough) []Passthrough {
	var anchored []Passthrough
	for _, pt := range pts {
		if pt.Anchor >= 0 {
			anchored = append(anchored, pt)
		}
	}
	return anchored
}

// defOrder positions a tag within its group definition; undeclared tags sort
// last, keeping their relative source order.
func defOrder(def *mig.GroupDef, tag string) int {
	for i, s := range def.Segments {
		if strings.EqualFold(s.Tag, tag) {
			return i
		}
	}
	return len(def.Segments)
}
