package pid

import (
	"fmt"
	"strings"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

// Registry holds the rule sets of all known Prüfidentifikatoren. Immutable
// after construction; share freely across goroutines.
type Registry struct {
	schemas map[string]*mig.PIDSchema
}

// NewRegistry indexes PID schemas by their Prüfidentifikator.
func NewRegistry(schemas ...*mig.PIDSchema) *Registry {
	r := &Registry{schemas: make(map[string]*mig.PIDSchema, len(schemas))}
	for _, s := range schemas {
		r.schemas[s.Pruefidentifikator] = s
	}
	return r
}

// Lookup returns the schema for a PID or ErrUnknownPID.
func (r *Registry) Lookup(pruefidentifikator string) (*mig.PIDSchema, error) {
	s, ok := r.schemas[pruefidentifikator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPID, pruefidentifikator)
	}
	return s, nil
}

// Filter returns a copy of tree retaining only the segments and group
// variants the PID schema declares. The input tree is not modified.
// Passthrough segments are dropped: by definition the PID view has no
// position for them.
func Filter(tree *assemble.Tree, schema *mig.PIDSchema) *assemble.Tree {
	s := schema.Schema
	out := &assemble.Tree{
		BeforeGroups: keepDeclared(tree.BeforeGroups, s.Segments),
		AfterGroups:  keepDeclared(tree.AfterGroups, s.Segments),
	}
	out.Groups = filterGroups(tree.Groups, s.Groups)
	return out
}

func keepDeclared(segs []edifact.Segment, defs []*mig.SegmentDef) []edifact.Segment {
	var out []edifact.Segment
	for i := range segs {
		for _, def := range defs {
			if strings.EqualFold(segs[i].Tag, def.Tag) {
				out = append(out, segs[i].Clone())
				break
			}
		}
	}
	return out
}

func filterGroups(groups []*assemble.Group, defs []*mig.GroupDef) []*assemble.Group {
	var out []*assemble.Group
	for _, g := range groups {
		def := matchDef(g, defs)
		if def == nil {
			continue
		}
		fg := &assemble.Group{Def: def}
		for _, inst := range g.Instances {
			fi := &assemble.Instance{
				Segments: keepDeclared(inst.Segments, def.Segments),
				Children: filterGroups(inst.Children, def.Groups),
			}
			fg.Instances = append(fg.Instances, fi)
		}
		out = append(out, fg)
	}
	return out
}

// matchDef finds the PID-schema declaration for an assembled group: same base
// ID and, for variants, the same qualifier.
func matchDef(g *assemble.Group, defs []*mig.GroupDef) *mig.GroupDef {
	for _, def := range defs {
		if !strings.EqualFold(def.ID, g.Def.ID) {
			continue
		}
		if def.Qualifier == "" || strings.EqualFold(def.Qualifier, g.Def.Qualifier) {
			return def
		}
	}
	return nil
}
