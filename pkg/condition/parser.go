package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrUnexpectedToken indicates a token the grammar does not allow here.
	ErrUnexpectedToken = errors.New("unexpected token")
	// ErrUnmatchedCloseParen indicates a ')' with no matching '('.
	ErrUnmatchedCloseParen = errors.New("unmatched closing parenthesis")
	// ErrEmptyExpression indicates no condition reference at all.
	ErrEmptyExpression = errors.New("empty expression")
	// ErrInvalidConditionRef indicates a malformed [n] reference.
	ErrInvalidConditionRef = errors.New("invalid condition reference")
)

// statusPrefixes are requirement markers the AHB prepends to an expression;
// they carry no logic and are stripped together with their trailing whitespace.
var statusPrefixes = []string{"Muss", "Soll", "Kann", "X"}

type tokenKind int

const (
	tokRef tokenKind = iota
	tokAnd
	tokOr
	tokXor
	tokNot
	tokOpen
	tokClose
	tokEOF
)

type token struct {
	kind tokenKind
	ref  uint32
	pos  int // byte position in the input
}

// Parse parses an AHB condition expression. It is total: any input yields
// either an expression or a typed error with a byte position, never a panic.
func Parse(input string) (Expr, error) {
	body := stripStatusPrefix(input)
	offset := len(input) - len(body)
	toks, err := lex(body, offset)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokClose {
			return nil, fmt.Errorf("position %d: %w", t.pos, ErrUnmatchedCloseParen)
		}
		return nil, fmt.Errorf("position %d: %w", t.pos, ErrUnexpectedToken)
	}
	return expr, nil
}

func stripStatusPrefix(input string) string {
	trimmed := strings.TrimLeft(input, " \t")
	for _, prefix := range statusPrefixes {
		rest, ok := strings.CutPrefix(trimmed, prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return rest
		}
		if r, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(r) {
			return strings.TrimLeft(rest, " \t")
		}
	}
	return trimmed
}

func lex(input string, offset int) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		pos := offset + i
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '[':
			end := strings.IndexByte(input[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("position %d: %w", pos, ErrInvalidConditionRef)
			}
			digits := input[i+1 : i+end]
			n, err := strconv.ParseUint(digits, 10, 32)
			if err != nil || digits == "" {
				return nil, fmt.Errorf("position %d: %w: [%s]", pos, ErrInvalidConditionRef, digits)
			}
			toks = append(toks, token{kind: tokRef, ref: uint32(n), pos: pos})
			i += end + 1
		case r == '(':
			toks = append(toks, token{kind: tokOpen, pos: pos})
			i += size
		case r == ')':
			toks = append(toks, token{kind: tokClose, pos: pos})
			i += size
		case r == '∧':
			toks = append(toks, token{kind: tokAnd, pos: pos})
			i += size
		case r == '∨':
			toks = append(toks, token{kind: tokOr, pos: pos})
			i += size
		case r == '⊻':
			toks = append(toks, token{kind: tokXor, pos: pos})
			i += size
		case unicode.IsLetter(r):
			j := i
			for j < len(input) {
				rr, sz := utf8.DecodeRuneInString(input[j:])
				if !unicode.IsLetter(rr) {
					break
				}
				j += sz
			}
			switch word := input[i:j]; word {
			case "AND":
				toks = append(toks, token{kind: tokAnd, pos: pos})
			case "OR":
				toks = append(toks, token{kind: tokOr, pos: pos})
			case "XOR":
				toks = append(toks, token{kind: tokXor, pos: pos})
			case "NOT":
				toks = append(toks, token{kind: tokNot, pos: pos})
			default:
				return nil, fmt.Errorf("position %d: %w: %q", pos, ErrUnexpectedToken, word)
			}
			i = j
		default:
			return nil, fmt.Errorf("position %d: %w: %q", pos, ErrUnexpectedToken, r)
		}
	}
	return append(toks, token{kind: tokEOF, pos: offset + len(input)}), nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

// Grammar, loosest binding first (NOT > AND > XOR > OR, left associative):
//
//	or   := xor (OR xor)*
//	xor  := and (XOR and)*
//	and  := unary (AND unary)*
//	unary := NOT unary | "[" n "]" | "(" or ")"
func (p *parser) parseOr() (Expr, error) {
	first, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().kind == tokOr {
		p.next()
		next, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return Or{Operands: operands}, nil
}

func (p *parser) parseXor() (Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().kind == tokXor {
		p.next()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return Xor{Operands: operands}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().kind == tokAnd {
		p.next()
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return And{Operands: operands}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch t := p.peek(); t.kind {
	case tokNot:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	case tokRef:
		p.next()
		return Ref{ID: t.ref}, nil
	case tokOpen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokClose {
			return nil, fmt.Errorf("position %d: %w: expected ')'", closing.pos, ErrUnexpectedToken)
		}
		return inner, nil
	case tokClose:
		return nil, fmt.Errorf("position %d: %w", t.pos, ErrUnmatchedCloseParen)
	case tokEOF:
		return nil, fmt.Errorf("position %d: %w", t.pos, ErrEmptyExpression)
	default:
		return nil, fmt.Errorf("position %d: %w", t.pos, ErrUnexpectedToken)
	}
}
