package condition

import (
	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
)

// Value is a three-valued truth value. Unknown means the condition depends on
// context the evaluator does not have (e.g. external business state); it is
// distinct from "the rule is violated".
type Value int

const (
	False Value = iota
	True
	Unknown
)

func (v Value) String() string {
	switch v {
	case False:
		return "false"
	case True:
		return "true"
	case Unknown:
		return "unknown"
	}
	return "invalid"
}

// Not negates with Unknown fixed: ¬Unknown = Unknown.
func (v Value) Not() Value {
	switch v {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// AndValues folds the conjunction lattice: False dominates, then Unknown.
func AndValues(vals ...Value) Value {
	out := True
	for _, v := range vals {
		switch v {
		case False:
			return False
		case Unknown:
			out = Unknown
		}
	}
	return out
}

// OrValues folds the disjunction lattice: True dominates, then Unknown.
func OrValues(vals ...Value) Value {
	out := False
	for _, v := range vals {
		switch v {
		case True:
			return True
		case Unknown:
			out = Unknown
		}
	}
	return out
}

// XorValues folds exclusive disjunction; any Unknown operand poisons the
// result.
func XorValues(vals ...Value) Value {
	trues := 0
	for _, v := range vals {
		if v == Unknown {
			return Unknown
		}
		if v == True {
			trues++
		}
	}
	if trues%2 == 1 {
		return True
	}
	return False
}

// ExternalProvider answers named external conditions with yes/no/unknown.
type ExternalProvider interface {
	External(name string) Value
}

// ExternalFunc adapts a function to an ExternalProvider.
type ExternalFunc func(name string) Value

func (f ExternalFunc) External(name string) Value { return f(name) }

// Context is what condition evaluators may inspect: the PID under validation,
// the message's segments, the assembled tree for group navigation, and the
// external-condition provider.
type Context struct {
	Pruefidentifikator string
	Segments           []edifact.Segment
	Tree               *assemble.Tree
	Provider           ExternalProvider
}

// External resolves a named external condition; without a provider the answer
// is Unknown.
func (c *Context) External(name string) Value {
	if c.Provider == nil {
		return Unknown
	}
	return c.Provider.External(name)
}

// EvaluatorFunc decides a single numbered condition against a context.
type EvaluatorFunc func(ctx *Context) Value

// Registry is the per-condition dispatch table.
type Registry map[uint32]EvaluatorFunc

// Missing returns the condition numbers referenced by e that have no
// registered evaluator, in first-appearance order.
func (r Registry) Missing(e Expr) []uint32 {
	seen := map[uint32]bool{}
	var missing []uint32
	for _, id := range Leaves(e) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := r[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Evaluate computes the three-valued result of e. Leaves without a registered
// evaluator yield Unknown; use Registry.Missing to report them.
func Evaluate(e Expr, ctx *Context, reg Registry) Value {
	switch v := e.(type) {
	case Ref:
		fn, ok := reg[v.ID]
		if !ok {
			return Unknown
		}
		return fn(ctx)
	case Not:
		return Evaluate(v.X, ctx, reg).Not()
	case And:
		return foldEval(v.Operands, ctx, reg, AndValues)
	case Or:
		return foldEval(v.Operands, ctx, reg, OrValues)
	case Xor:
		return foldEval(v.Operands, ctx, reg, XorValues)
	}
	return Unknown
}

func foldEval(ops []Expr, ctx *Context, reg Registry, fold func(...Value) Value) Value {
	vals := make([]Value, len(ops))
	for i, op := range ops {
		vals[i] = Evaluate(op, ctx, reg)
	}
	return fold(vals...)
}
