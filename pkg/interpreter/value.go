package interpreter

import (
	"strings"

	"github.com/sandrolain/luppolo/pkg/expr"
)

// Value is a runtime value held on an operand stack or in a local table:
// an expr.Expr, a Bool produced by a condition, or a Sequence holding the
// elements a foreach loop has not visited yet.
type Value interface {
	String() string
}

// Bool is the result of a condition.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Sequence is the remainder of a foreach iteration.
type Sequence []expr.Expr

func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// elements returns what a foreach loop iterates over: the operands of a
// Sum, Product or Power, or the value itself for a Number or a Symbol.
func elements(v Value) (Sequence, bool) {
	switch x := v.(type) {
	case Sequence:
		return x, true
	case expr.Expr:
		if ops := x.Operands(); len(ops) > 0 {
			return ops, true
		}
		return Sequence{x}, true
	default:
		return nil, false
	}
}

func describe(v Value) string {
	switch x := v.(type) {
	case Bool:
		return "boolean"
	case Sequence:
		return "sequence"
	case expr.Expr:
		return x.Kind().String()
	default:
		return "unknown value"
	}
}
