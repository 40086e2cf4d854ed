package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

// Engine executes a definition set against assembled trees, in both
// directions. Immutable after construction; share freely across goroutines.
type Engine struct {
	schema     *mig.Schema
	defs       *DefinitionSet
	transforms TransformRegistry
	handlers   HandlerRegistry
	txGroup    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransforms replaces the default transform registry.
func WithTransforms(reg TransformRegistry) Option {
	return func(e *Engine) { e.transforms = reg }
}

// WithHandlers installs the complex handler registry.
func WithHandlers(reg HandlerRegistry) Option {
	return func(e *Engine) { e.handlers = reg }
}

// WithTransactionGroup overrides the group that delimits transactions
// (default SG4, entered by IDE).
func WithTransactionGroup(id string) Option {
	return func(e *Engine) { e.txGroup = id }
}

// NewEngine validates the definitions against the schema and registries:
// unknown transform or handler names and unresolvable EDIFACT paths fail here,
// not at conversion time.
func NewEngine(schema *mig.Schema, defs *DefinitionSet, opts ...Option) (*Engine, error) {
	e := &Engine{
		schema:     schema,
		defs:       defs,
		transforms: DefaultTransforms(),
		handlers:   HandlerRegistry{},
		txGroup:    "SG4",
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, def := range defs.All() {
		if err := e.validateDefinition(def); err != nil {
			return nil, fmt.Errorf("definition %q: %w", def.Meta.Entity, err)
		}
	}
	return e, nil
}

func (e *Engine) validateDefinition(def *Definition) error {
	for _, name := range def.Handlers {
		if _, ok := e.handlers[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownHandler, name)
		}
	}
	scope, err := e.scopeFor(def)
	if err != nil {
		return err
	}
	if err := e.validateFields(def.Fields, scope); err != nil {
		return err
	}
	if err := e.validateFields(def.CompanionFields, scope); err != nil {
		return err
	}
	if def.Meta.Discriminator != nil {
		if _, err := resolvePath(def.Meta.Discriminator.Path, scope); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) validateFields(fields map[string]FieldSpec, scope []*mig.SegmentDef) error {
	for path, spec := range fields {
		if _, err := resolvePath(path, scope); err != nil {
			return err
		}
		if spec.Transform != "" {
			if _, ok := e.transforms[spec.Transform]; !ok {
				return fmt.Errorf("%w: %q", ErrUnknownTransform, spec.Transform)
			}
		}
		if spec.When != nil {
			if _, err := resolvePath(spec.When.Path, scope); err != nil {
				return err
			}
		}
		if spec.Fields != nil {
			if err := e.validateFields(spec.Fields, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

// scopeFor returns the segment definitions a definition's paths resolve
// against: its source group's segments, or the schema's top-level segments
// for envelope-scoped definitions.
func (e *Engine) scopeFor(def *Definition) ([]*mig.SegmentDef, error) {
	groupID := def.Meta.SourceGroup
	if def.Meta.SourcePath != "" {
		parts := strings.Split(def.Meta.SourcePath, ".")
		groupID = parts[len(parts)-1]
	}
	if groupID == "" {
		return e.schema.Segments, nil
	}
	grp := e.schema.FindGroup(groupID)
	if grp == nil {
		return nil, fmt.Errorf("%w: source group %q not in schema", ErrInvalidPath, groupID)
	}
	return grp.Segments, nil
}

// groupDefFor resolves the definition's source group in the MIG schema.
func (e *Engine) groupDefFor(def *Definition) *mig.GroupDef {
	groupID := def.Meta.SourceGroup
	if def.Meta.SourcePath != "" {
		parts := strings.Split(def.Meta.SourcePath, ".")
		groupID = parts[len(parts)-1]
	}
	if groupID == "" {
		return nil
	}
	return e.schema.FindGroup(groupID)
}

type pathResolver struct {
	scope []*mig.SegmentDef
}

func resolvePath(path string, scope []*mig.SegmentDef) (mig.FieldRef, error) {
	p, err := mig.ParsePath(path)
	if err != nil {
		return mig.FieldRef{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	ref, err := mig.Resolve(p, scope)
	if err != nil {
		return mig.FieldRef{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return ref, nil
}

// read extracts the component value an aliased path names from the instance.
func (r *pathResolver) read(inst *assemble.Instance, path string) (string, bool) {
	ref, err := resolvePath(path, r.scope)
	if err != nil {
		return "", false
	}
	seg, err := inst.FindIn(ref.Tag)
	if err != nil {
		return "", false
	}
	v, ok := seg.Component(ref.Element, ref.Component)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// guardHolds reports whether any repetition of the guard path's segment
// carries the guard value.
func (r *pathResolver) guardHolds(inst *assemble.Instance, when *Predicate) bool {
	ref, err := resolvePath(when.Path, r.scope)
	if err != nil {
		return false
	}
	return r.matchSegment(inst, ref, when.Value) != nil
}

// readWhere extracts the path's component from the repetition of its segment
// that satisfies the guard. Without a guard, or with a guard on a different
// tag, it reads the first repetition.
func (r *pathResolver) readWhere(inst *assemble.Instance, path string, when *Predicate) (string, bool) {
	if when == nil {
		return r.read(inst, path)
	}
	ref, err := resolvePath(path, r.scope)
	if err != nil {
		return "", false
	}
	guardRef, err := resolvePath(when.Path, r.scope)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(ref.Tag, guardRef.Tag) {
		return r.read(inst, path)
	}
	seg := r.matchSegment(inst, guardRef, when.Value)
	if seg == nil {
		return "", false
	}
	v, ok := seg.Component(ref.Element, ref.Component)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// matchSegment returns the first repetition of the ref's segment whose
// component at the ref carries value, or nil.
func (r *pathResolver) matchSegment(inst *assemble.Instance, ref mig.FieldRef, value string) *edifact.Segment {
	for i := range inst.Segments {
		seg := &inst.Segments[i]
		if !strings.EqualFold(seg.Tag, ref.Tag) {
			continue
		}
		if v, ok := seg.Component(ref.Element, ref.Component); ok && v == value {
			return seg
		}
	}
	return nil
}

// write stores a value at the path, synthesizing the segment with the exact
// element and component counts the MIG declares for its tag.
func (r *pathResolver) write(inst *assemble.Instance, path, value string) error {
	ref, err := resolvePath(path, r.scope)
	if err != nil {
		return err
	}
	seg, errFind := inst.FindIn(ref.Tag)
	if errFind != nil {
		inst.Segments = append(inst.Segments, synthesizeSegment(ref.Def))
		seg = &inst.Segments[len(inst.Segments)-1]
	}
	if ref.Element >= len(seg.Elements) || ref.Component >= len(seg.Elements[ref.Element]) {
		return fmt.Errorf("%w: %q does not fit synthesized %s", ErrInvalidPath, path, ref.Tag)
	}
	seg.Elements[ref.Element][ref.Component] = value
	return nil
}

// writeWhere stores a value at the path in the repetition of its segment that
// carries the guard value, allocating a fresh repetition when none does yet.
// Guarded fields on the same tag thus land on distinct repetitions instead of
// collapsing onto one. Guards on a different tag fall back to plain writes.
func (r *pathResolver) writeWhere(inst *assemble.Instance, path, value string, when *Predicate) error {
	if when == nil {
		return r.write(inst, path, value)
	}
	ref, err := resolvePath(path, r.scope)
	if err != nil {
		return err
	}
	guardRef, err := resolvePath(when.Path, r.scope)
	if err != nil {
		return err
	}
	if !strings.EqualFold(ref.Tag, guardRef.Tag) {
		if err := r.write(inst, path, value); err != nil {
			return err
		}
		return r.write(inst, when.Path, when.Value)
	}
	seg := r.matchSegment(inst, guardRef, when.Value)
	if seg == nil {
		inst.Segments = append(inst.Segments, synthesizeSegment(ref.Def))
		seg = &inst.Segments[len(inst.Segments)-1]
	}
	if ref.Element >= len(seg.Elements) || ref.Component >= len(seg.Elements[ref.Element]) ||
		guardRef.Element >= len(seg.Elements) || guardRef.Component >= len(seg.Elements[guardRef.Element]) {
		return fmt.Errorf("%w: %q does not fit synthesized %s", ErrInvalidPath, path, ref.Tag)
	}
	seg.Elements[guardRef.Element][guardRef.Component] = when.Value
	seg.Elements[ref.Element][ref.Component] = value
	return nil
}

// synthesizeSegment allocates a segment shaped exactly as the MIG declares.
func synthesizeSegment(def *mig.SegmentDef) edifact.Segment {
	seg := edifact.Segment{Tag: def.Tag}
	for _, el := range def.Elements {
		seg.Elements = append(seg.Elements, make(edifact.Element, len(el.Components)))
	}
	return seg
}

// sortedPaths returns field paths in lexicographic order for deterministic
// output and trace sequences.
func sortedPaths(fields map[string]FieldSpec) []string {
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func joinTarget(prefix, target string) string {
	if prefix == "" {
		return target
	}
	return prefix + "." + target
}
