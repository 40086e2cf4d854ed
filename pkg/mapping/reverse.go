package mapping

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/mig"
)

// Reverse rebuilds an assembled tree from a BO4E document. The inverse of
// Forward up to the fields both directions can express: transforms run their
// Reverse leg, enum maps pick the lexicographically smallest source code, and
// fields whose transform has no inverse become issues instead of segments.
func (e *Engine) Reverse(doc []byte) (*assemble.Tree, []Issue, error) {
	run := &reverseRun{engine: e}
	tree := &assemble.Tree{}

	for _, def := range e.defs.Message {
		obj := gjson.GetBytes(doc, def.Meta.JSONKey)
		if !obj.Exists() {
			continue
		}
		scope, err := e.scopeFor(def)
		if err != nil {
			return nil, nil, err
		}
		inst := &assemble.Instance{}
		run.populate(def, obj, inst, &pathResolver{scope: scope})
		tree.BeforeGroups = append(tree.BeforeGroups, inst.Segments...)
	}

	transactions := gjson.GetBytes(doc, "transactions")
	if transactions.IsArray() {
		txDef := e.schema.FindGroup(e.txGroup)
		if txDef == nil {
			return nil, nil, fmt.Errorf("%w: transaction group %q not in schema", ErrInvalidPath, e.txGroup)
		}
		txGroup := &assemble.Group{Def: txDef}
		for _, tx := range transactions.Array() {
			txInst := &assemble.Instance{}
			if err := run.populateTransaction(tx, txInst); err != nil {
				return nil, nil, err
			}
			txGroup.Instances = append(txGroup.Instances, txInst)
		}
		if len(txGroup.Instances) > 0 {
			tree.Groups = append(tree.Groups, txGroup)
		}
	}

	return tree, run.issues, nil
}

type reverseRun struct {
	engine *Engine
	issues []Issue
}

func (r *reverseRun) populateTransaction(tx gjson.Result, txInst *assemble.Instance) error {
	for _, def := range r.engine.defs.Transaction {
		obj := tx.Get(def.Meta.JSONKey)
		if !obj.Exists() {
			continue
		}
		scope, err := r.engine.scopeFor(def)
		if err != nil {
			return err
		}
		resolver := &pathResolver{scope: scope}
		groupDef := r.engine.groupDefFor(def)

		// entities mapped straight off the transaction instance
		if groupDef == nil || strings.EqualFold(groupDef.VariantID(), r.engine.txGroup) || strings.EqualFold(groupDef.ID, r.engine.txGroup) {
			r.populate(def, obj, txInst, resolver)
			continue
		}

		parent, err := r.parentInstance(def, txInst)
		if err != nil {
			return err
		}
		group := ensureChildGroup(parent, groupDef)
		for _, item := range objectList(obj) {
			inst := &assemble.Instance{}
			r.writeQualifier(inst, groupDef, resolver)
			r.populate(def, item, inst, resolver)
			group.Instances = append(group.Instances, inst)
		}
	}
	return nil
}

// parentInstance walks the definition's source path down from the transaction,
// creating intermediate group instances along the way.
func (r *reverseRun) parentInstance(def *Definition, txInst *assemble.Instance) (*assemble.Instance, error) {
	parts := splitSourcePath(def.Meta.SourcePath, r.engine.txGroup)
	if def.Meta.SourcePath == "" || len(parts) <= 1 {
		return txInst, nil
	}
	current := txInst
	for _, part := range parts[:len(parts)-1] {
		groupDef := r.engine.schema.FindGroup(part)
		if groupDef == nil {
			return nil, fmt.Errorf("%w: source path group %q not in schema", ErrInvalidPath, part)
		}
		group := ensureChildGroup(current, groupDef)
		if len(group.Instances) == 0 {
			group.Instances = append(group.Instances, &assemble.Instance{})
		}
		current = group.Instances[len(group.Instances)-1]
	}
	return current, nil
}

func ensureChildGroup(inst *assemble.Instance, def *mig.GroupDef) *assemble.Group {
	for _, g := range inst.Children {
		if g.Def == def {
			return g
		}
	}
	g := &assemble.Group{Def: def}
	inst.Children = append(inst.Children, g)
	return g
}

// objectList flattens a JSON value into the entity objects it holds: arrays
// element-wise, single objects as a one-element list.
func objectList(v gjson.Result) []gjson.Result {
	if v.IsArray() {
		return v.Array()
	}
	return []gjson.Result{v}
}

// writeQualifier stamps a variant group's qualifier into the discriminator
// position of its entry segment, so the synthesized tree reassembles into the
// same variant.
func (r *reverseRun) writeQualifier(inst *assemble.Instance, groupDef *mig.GroupDef, resolver *pathResolver) {
	if groupDef.Qualifier == "" || groupDef.Discriminator == nil {
		return
	}
	entry := groupDef.EntrySegment()
	if entry == nil {
		return
	}
	seg, err := inst.FindIn(entry.Tag)
	if err != nil {
		inst.Segments = append(inst.Segments, synthesizeSegment(entry))
		seg = &inst.Segments[len(inst.Segments)-1]
	}
	d := groupDef.Discriminator
	if d.Element < len(seg.Elements) && d.Component < len(seg.Elements[d.Element]) {
		seg.Elements[d.Element][d.Component] = groupDef.Qualifier
	}
}

func (r *reverseRun) populate(def *Definition, obj gjson.Result, inst *assemble.Instance, resolver *pathResolver) {
	if def.Meta.Discriminator != nil {
		if err := resolver.write(inst, def.Meta.Discriminator.Path, def.Meta.Discriminator.Value); err != nil {
			r.issue(def, def.Meta.Discriminator.Path, err.Error())
		}
	}
	r.populateFields(def, def.Fields, obj, inst, resolver, "")
	r.populateFields(def, def.CompanionFields, obj, inst, resolver, "")
	for _, name := range def.Handlers {
		handler := r.engine.handlers[name]
		if handler.Reverse == nil {
			continue
		}
		if err := handler.Reverse(obj, inst); err != nil {
			r.issue(def, name, err.Error())
		}
	}
}

func (r *reverseRun) populateFields(def *Definition, fields map[string]FieldSpec, obj gjson.Result, inst *assemble.Instance, resolver *pathResolver, prefix string) {
	for _, path := range sortedPaths(fields) {
		spec := fields[path]
		if spec.Fields != nil {
			r.populateFields(def, spec.Fields, obj, inst, resolver, joinTarget(prefix, spec.Target))
			continue
		}
		r.populateField(def, path, spec, obj, inst, resolver, prefix)
	}
}

func (r *reverseRun) populateField(def *Definition, path string, spec FieldSpec, obj gjson.Result, inst *assemble.Instance, resolver *pathResolver, prefix string) {
	v := obj.Get(joinTarget(prefix, spec.Target))
	if !v.Exists() {
		return
	}
	value := v.String()

	// invert the forward pipeline: transform first, then enum lookup
	if spec.Transform != "" {
		t := r.engine.transforms[spec.Transform]
		if t.Reverse == nil {
			r.issue(def, path, fmt.Sprintf("%v: transform %q", ErrNoInverse, spec.Transform))
			return
		}
		reversed, err := t.Reverse(value)
		if err != nil {
			r.issue(def, path, err.Error())
			return
		}
		value = reversed
	}
	if spec.EnumMap != nil {
		code, ok := reverseEnum(spec.EnumMap, value)
		if !ok {
			r.issue(def, path, fmt.Sprintf("value %q not in enum map", value))
			return
		}
		value = code
	}

	if err := resolver.writeWhere(inst, path, value, spec.When); err != nil {
		r.issue(def, path, err.Error())
	}
}

func (r *reverseRun) issue(def *Definition, path, msg string) {
	r.issues = append(r.issues, Issue{Entity: def.Meta.Entity, Path: path, Message: msg})
}
