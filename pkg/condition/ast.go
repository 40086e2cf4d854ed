package condition

import (
	"fmt"
	"strings"
)

// Expr is a parsed AHB condition expression.
type Expr interface {
	fmt.Stringer
	expr()
}

// Ref is a leaf: a numbered condition from the AHB's Bedingungen section.
type Ref struct{ ID uint32 }

// Not negates its operand.
type Not struct{ X Expr }

// And is an n-ary conjunction.
type And struct{ Operands []Expr }

// Or is an n-ary disjunction.
type Or struct{ Operands []Expr }

// Xor is an n-ary exclusive disjunction.
type Xor struct{ Operands []Expr }

func (Ref) expr() {}
func (Not) expr() {}
func (And) expr() {}
func (Or) expr()  {}
func (Xor) expr() {}

func (r Ref) String() string { return fmt.Sprintf("[%d]", r.ID) }

func (n Not) String() string { return "NOT " + parenthesize(n.X, precNot) }

func (a And) String() string { return joinOperands(a.Operands, " ∧ ", precAnd) }
func (x Xor) String() string { return joinOperands(x.Operands, " ⊻ ", precXor) }
func (o Or) String() string  { return joinOperands(o.Operands, " ∨ ", precOr) }

const (
	precOr = iota
	precXor
	precAnd
	precNot
	precLeaf
)

func precedence(e Expr) int {
	switch e.(type) {
	case Ref:
		return precLeaf
	case Not:
		return precNot
	case And:
		return precAnd
	case Xor:
		return precXor
	case Or:
		return precOr
	}
	return precLeaf
}

func parenthesize(e Expr, parent int) string {
	if precedence(e) < parent {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func joinOperands(ops []Expr, sep string, prec int) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = parenthesize(op, prec)
	}
	return strings.Join(parts, sep)
}

// Leaves returns every condition number referenced by the expression, in
// left-to-right order with duplicates preserved.
func Leaves(e Expr) []uint32 {
	var out []uint32
	walk(e, func(r Ref) { out = append(out, r.ID) })
	return out
}

func walk(e Expr, fn func(Ref)) {
	switch v := e.(type) {
	case Ref:
		fn(v)
	case Not:
		walk(v.X, fn)
	case And:
		for _, op := range v.Operands {
			walk(op, fn)
		}
	case Or:
		for _, op := range v.Operands {
			walk(op, fn)
		}
	case Xor:
		for _, op := range v.Operands {
			walk(op, fn)
		}
	}
}
