// Package expr implements the symbolic value type used by the Luppolo runtime.
//
// An [Expr] is one of five kinds:
//   - Number: an exact rational (math/big)
//   - Symbol: a named variable such as x
//   - Sum: a flattened, ordered list of terms
//   - Product: a flattened, ordered list of factors
//   - Power: a base and an exponent
//
// Every Expr is held in canonical form. The factories [Add], [Mul] and [Pow]
// are the single normalization point: they flatten nested operands, fold
// numeric parts, combine like terms and like factors and sort operands by
// the total order implemented by [Compare]. Two algebraically identical
// values built through the factories are therefore structurally identical,
// and [Equal] is plain structural equality.
//
// # Example
//
//	x := expr.Sym("x")
//	p := expr.Pow(expr.Add(x, expr.Int(1)), expr.Int(2))
//	fmt.Println(p.Expand()) // 1 + x^2 + 2 * x
//
// Expr values are immutable and safe to share between goroutines.
package expr

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind identifies the shape of an Expr.
//
// The numeric value of a Kind is its sort priority: operands of a Sum or a
// Product are ordered first by Kind, then structurally.
type Kind uint8

const (
	KindNumber Kind = iota
	KindSum
	KindSymbol
	KindPower
	KindProduct
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindSum:
		return "sum"
	case KindSymbol:
		return "symbol"
	case KindPower:
		return "power"
	case KindProduct:
		return "product"
	default:
		return "(unknown)"
	}
}

// tag is the one-letter form used by Tree and Key.
func (k Kind) tag() byte {
	return "NASPM"[k]
}

// Expr is an immutable symbolic expression in canonical form.
//
// The zero value is the Number 0.
type Expr struct {
	kind Kind
	num  *big.Rat // KindNumber; nil means 0
	name string   // KindSymbol
	ops  []Expr   // KindSum, KindProduct; KindPower holds [base, exponent]
}

var (
	ratZero = new(big.Rat)
	ratOne  = big.NewRat(1, 1)
)

// Int returns the Number n.
func Int(n int64) Expr {
	return Expr{kind: KindNumber, num: new(big.Rat).SetInt64(n)}
}

// Rat returns the Number r. The argument is copied.
func Rat(r *big.Rat) Expr {
	return Expr{kind: KindNumber, num: new(big.Rat).Set(r)}
}

// Frac returns the Number a/b. It panics if b is zero.
func Frac(a, b int64) Expr {
	return Expr{kind: KindNumber, num: big.NewRat(a, b)}
}

// Sym returns the Symbol with the given name.
func Sym(name string) Expr {
	return Expr{kind: KindSymbol, name: name}
}

// Of coerces a Go value into an Expr. Integers, *big.Int and *big.Rat become
// Numbers, strings become Symbols and an Expr is returned unchanged.
func Of(v any) (Expr, error) {
	switch x := v.(type) {
	case Expr:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case uint:
		return Rat(new(big.Rat).SetUint64(uint64(x))), nil
	case uint64:
		return Rat(new(big.Rat).SetUint64(x)), nil
	case *big.Int:
		return Rat(new(big.Rat).SetInt(x)), nil
	case *big.Rat:
		return Rat(x), nil
	case string:
		if x == "" {
			return Expr{}, fmt.Errorf("expr: empty symbol name")
		}
		return Sym(x), nil
	default:
		return Expr{}, fmt.Errorf("expr: cannot convert %T to an expression", v)
	}
}

// MustOf is like Of but panics on error. It simplifies building constant
// expressions in tests and examples.
func MustOf(v any) Expr {
	e, err := Of(v)
	if err != nil {
		panic(err)
	}
	return e
}

// Kind returns the kind of e.
func (e Expr) Kind() Kind {
	return e.kind
}

// IsNumber reports whether e is a Number.
func (e Expr) IsNumber() bool { return e.kind == KindNumber }

// IsSymbol reports whether e is a Symbol.
func (e Expr) IsSymbol() bool { return e.kind == KindSymbol }

// rat returns the shared numeric value. Callers must not modify it.
func (e Expr) rat() *big.Rat {
	if e.num == nil {
		return ratZero
	}
	return e.num
}

// Rat returns a copy of the numeric value of a Number, or nil for other kinds.
func (e Expr) Rat() *big.Rat {
	if e.kind != KindNumber {
		return nil
	}
	return new(big.Rat).Set(e.rat())
}

// Name returns the name of a Symbol, or "" for other kinds.
func (e Expr) Name() string {
	return e.name
}

// Operands returns a copy of the operands of a Sum, Product or Power
// (base, exponent). Numbers and Symbols have no operands.
func (e Expr) Operands() []Expr {
	if len(e.ops) == 0 {
		return nil
	}
	out := make([]Expr, len(e.ops))
	copy(out, e.ops)
	return out
}

// Base returns the base of a Power, or e itself for other kinds.
func (e Expr) Base() Expr {
	if e.kind == KindPower {
		return e.ops[0]
	}
	return e
}

// Exponent returns the exponent of a Power, or the Number 1 for other kinds.
func (e Expr) Exponent() Expr {
	if e.kind == KindPower {
		return e.ops[1]
	}
	return Int(1)
}

// IsZero reports whether e is the Number 0.
func (e Expr) IsZero() bool {
	return e.kind == KindNumber && e.rat().Sign() == 0
}

// IsOne reports whether e is the Number 1.
func (e Expr) IsOne() bool {
	return e.kind == KindNumber && e.rat().Cmp(ratOne) == 0
}

// IsInteger reports whether e is an integral Number.
func (e Expr) IsInteger() bool {
	return e.kind == KindNumber && e.rat().IsInt()
}

// Sign returns the sign of a Number (-1, 0, +1) and 0 for other kinds.
func (e Expr) Sign() int {
	if e.kind != KindNumber {
		return 0
	}
	return e.rat().Sign()
}

// Key returns a string that identifies e structurally. Two expressions have
// the same key exactly when they are Equal.
func (e Expr) Key() string {
	var b strings.Builder
	e.writeKey(&b)
	return b.String()
}

func (e Expr) writeKey(b *strings.Builder) {
	b.WriteByte(e.kind.tag())
	b.WriteByte('(')
	switch e.kind {
	case KindNumber:
		b.WriteString(e.rat().RatString())
	case KindSymbol:
		b.WriteString(e.name)
	default:
		for i, op := range e.ops {
			if i > 0 {
				b.WriteByte(',')
			}
			op.writeKey(b)
		}
	}
	b.WriteByte(')')
}
