package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/enermsg/edikit/pkg/assemble"
)

// ForwardResult carries the BO4E document plus everything recoverable that
// happened on the way.
type ForwardResult struct {
	Document []byte
	Trace    []TraceRecord
	Issues   []Issue
}

// ForwardOption configures one forward extraction.
type ForwardOption func(*forwardRun)

// WithTrace records a step-by-step trace of every mapped value.
func WithTrace() ForwardOption {
	return func(r *forwardRun) { r.trace = true }
}

type forwardRun struct {
	engine *Engine
	trace  bool
	result *ForwardResult
	doc    []byte
}

// Forward extracts BO4E JSON from an assembled tree: message-level entities at
// the document root and one object per transaction under "transactions".
// Field-level problems become issues, a missing source group yields an empty
// entity; neither is fatal.
func (e *Engine) Forward(tree *assemble.Tree, opts ...ForwardOption) (*ForwardResult, error) {
	run := &forwardRun{engine: e, result: &ForwardResult{}, doc: []byte(`{}`)}
	for _, opt := range opts {
		opt(run)
	}

	for _, def := range e.defs.Message {
		if err := run.extractEntity(def, messageInstance(tree), def.Meta.JSONKey); err != nil {
			return nil, err
		}
	}

	txGroup := tree.FindGroup(e.txGroup)
	if txGroup != nil {
		for ti, txInst := range txGroup.Instances {
			base := fmt.Sprintf("transactions.%d", ti)
			for _, def := range e.defs.Transaction {
				if err := run.extractTransactionEntity(def, txInst, base); err != nil {
					return nil, err
				}
			}
		}
	}

	run.result.Document = run.doc
	return run.result, nil
}

// messageInstance wraps the tree's top-level segments as a pseudo instance so
// envelope-scoped definitions can use the same extraction path.
func messageInstance(tree *assemble.Tree) *assemble.Instance {
	inst := &assemble.Instance{}
	inst.Segments = append(inst.Segments, tree.BeforeGroups...)
	inst.Segments = append(inst.Segments, tree.AfterGroups...)
	return inst
}

// extractEntity maps a definition over a single source instance.
func (r *forwardRun) extractEntity(def *Definition, inst *assemble.Instance, target string) error {
	scope, err := r.engine.scopeFor(def)
	if err != nil {
		return err
	}
	return r.buildObject(def, inst, &pathResolver{scope: scope}, target)
}

// extractTransactionEntity locates the definition's source instances within
// one transaction and aggregates them: groups with a single allowed
// repetition produce one object, repeatable groups an array.
func (r *forwardRun) extractTransactionEntity(def *Definition, txInst *assemble.Instance, base string) error {
	scope, err := r.engine.scopeFor(def)
	if err != nil {
		return err
	}
	resolver := &pathResolver{scope: scope}

	instances := r.engine.sourceInstances(def, txInst)
	if def.Meta.Discriminator != nil {
		instances = filterByPredicate(instances, resolver, def.Meta.Discriminator)
	}
	if len(instances) == 0 {
		return nil // missing source group: empty result, not an error
	}

	groupDef := r.engine.groupDefFor(def)
	repeatable := groupDef != nil && groupDef.MaxRep > 1 &&
		!strings.EqualFold(groupDef.VariantID(), r.engine.txGroup) &&
		!strings.EqualFold(groupDef.ID, r.engine.txGroup)

	if !repeatable {
		return r.buildObject(def, instances[0], resolver, joinTarget(base, def.Meta.JSONKey))
	}
	for i, inst := range instances {
		target := fmt.Sprintf("%s.%s.%d", base, def.Meta.JSONKey, i)
		if err := r.buildObject(def, inst, resolver, target); err != nil {
			return err
		}
	}
	return nil
}

// sourceInstances locates a definition's source group instances within a
// transaction instance, following source_path when declared.
func (e *Engine) sourceInstances(def *Definition, txInst *assemble.Instance) []*assemble.Instance {
	if def.Meta.SourcePath != "" {
		return instancesAtPath(txInst, splitSourcePath(def.Meta.SourcePath, e.txGroup))
	}
	if def.Meta.SourceGroup == "" || strings.EqualFold(def.Meta.SourceGroup, e.txGroup) {
		return []*assemble.Instance{txInst}
	}
	grp := txInst.Child(def.Meta.SourceGroup)
	if grp == nil {
		return nil
	}
	return grp.Instances
}

func instancesAtPath(inst *assemble.Instance, parts []string) []*assemble.Instance {
	current := []*assemble.Instance{inst}
	for _, part := range parts {
		var next []*assemble.Instance
		for _, in := range current {
			if grp := in.Child(part); grp != nil {
				next = append(next, grp.Instances...)
			}
		}
		current = next
	}
	return current
}

// splitSourcePath splits a dotted source path, dropping a leading
// transaction-group part ("sg4.sg8_z79" navigates sg8_z79 below the
// transaction).
func splitSourcePath(path, txGroup string) []string {
	parts := strings.Split(path, ".")
	if len(parts) > 0 && strings.EqualFold(parts[0], txGroup) {
		return parts[1:]
	}
	return parts
}

func filterByPredicate(instances []*assemble.Instance, resolver *pathResolver, pred *Predicate) []*assemble.Instance {
	var out []*assemble.Instance
	for _, inst := range instances {
		if v, ok := resolver.read(inst, pred.Path); ok && v == pred.Value {
			out = append(out, inst)
		}
	}
	return out
}

// buildObject walks the definition's fields (and companion fields) over one
// instance and writes the resulting values into the document at target.
func (r *forwardRun) buildObject(def *Definition, inst *assemble.Instance, resolver *pathResolver, target string) error {
	var err error
	if def.Meta.BO4EType != "" {
		if r.doc, err = sjson.SetBytes(r.doc, target+".boTyp", def.Meta.BO4EType); err != nil {
			return err
		}
	} else {
		// materialize the object even if every field turns out absent
		if r.doc, err = sjson.SetRawBytes(r.doc, target, []byte(`{}`)); err != nil {
			return err
		}
	}
	if err := r.applyFields(def, def.Fields, inst, resolver, target, ""); err != nil {
		return err
	}
	if err := r.applyFields(def, def.CompanionFields, inst, resolver, target, ""); err != nil {
		return err
	}
	for _, name := range def.Handlers {
		handler := r.engine.handlers[name]
		if handler.Forward == nil {
			continue
		}
		extra, err := handler.Forward(&InstanceView{Instance: inst, resolver: resolver})
		if err != nil {
			r.issue(def, name, err.Error())
			continue
		}
		for _, key := range sortedKeys(extra) {
			if r.doc, err = sjson.SetBytes(r.doc, joinTarget(target, key), extra[key]); err != nil {
				return err
			}
			r.traceStep(def, name, joinTarget(target, key), fmt.Sprint(extra[key]))
		}
	}
	return nil
}

func (r *forwardRun) applyFields(def *Definition, fields map[string]FieldSpec, inst *assemble.Instance, resolver *pathResolver, target, prefix string) error {
	for _, path := range sortedPaths(fields) {
		spec := fields[path]
		if err := r.applyField(def, path, spec, inst, resolver, target, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (r *forwardRun) applyField(def *Definition, path string, spec FieldSpec, inst *assemble.Instance, resolver *pathResolver, target, prefix string) error {
	if spec.When != nil && !resolver.guardHolds(inst, spec.When) {
		return nil
	}
	if spec.Fields != nil {
		return r.applyFields(def, spec.Fields, inst, resolver, target, joinTarget(prefix, spec.Target))
	}

	raw, ok := resolver.readWhere(inst, path, spec.When)
	if !ok {
		if spec.Default == "" {
			return nil // optional and absent: omitted, no null
		}
		raw = spec.Default
	}
	value := raw
	if spec.EnumMap != nil {
		mapped, found := spec.EnumMap[raw]
		if !found {
			r.issue(def, path, fmt.Sprintf("code %q not in enum map", raw))
			return nil
		}
		value = mapped
	}
	if spec.Transform != "" {
		transformed, err := r.engine.transforms[spec.Transform].Forward(value)
		if err != nil {
			r.issue(def, path, err.Error())
			return nil
		}
		value = transformed
	}

	full := joinTarget(target, joinTarget(prefix, spec.Target))
	doc, err := sjson.SetBytes(r.doc, full, value)
	if err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrInvalidPath, full, err)
	}
	r.doc = doc
	r.traceStep(def, segmentOf(path), full, value)
	return nil
}

func (r *forwardRun) issue(def *Definition, path, msg string) {
	r.result.Issues = append(r.result.Issues, Issue{Entity: def.Meta.Entity, Path: path, Message: msg})
}

func (r *forwardRun) traceStep(def *Definition, segmentID, targetPath, value string) {
	if !r.trace {
		return
	}
	r.result.Trace = append(r.result.Trace, TraceRecord{
		Mapper:     def.Meta.Entity,
		SegmentID:  segmentID,
		TargetPath: targetPath,
		Value:      value,
	})
}

func segmentOf(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return strings.ToUpper(path[:i])
	}
	return strings.ToUpper(path)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entity reads one extracted entity back out of a forward document; mostly a
// test convenience.
func Entity(doc []byte, path string) gjson.Result {
	return gjson.GetBytes(doc, path)
}
