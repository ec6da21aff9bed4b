package expr

import (
	"fmt"
	"math/big"
	"slices"
)

// maxExpandPower bounds the repeated multiplication used when expanding an
// integer power of a sum. Larger powers are kept as a Power of the expanded
// base.
const maxExpandPower = 1 << 12

// Expand distributes products over sums and integer powers over their base.
//
// A Power with a non-negative integer exponent becomes a repeated product;
// a negative or fractional rational exponent expands the integer part of the
// numerator and keeps a Power wrapper carrying the sign and the denominator.
// Powers with non-numeric exponents are expanded structurally.
func (e Expr) Expand() Expr {
	switch e.kind {
	case KindSum:
		terms := make([]Expr, len(e.ops))
		for i, op := range e.ops {
			terms[i] = op.Expand()
		}
		return Add(terms...)
	case KindProduct:
		return expandProduct(e.ops)
	case KindPower:
		return expandPower(e.ops[0], e.ops[1])
	default:
		return e
	}
}

func expandPower(base, exponent Expr) Expr {
	if exponent.kind != KindNumber {
		return Pow(base.Expand(), exponent.Expand())
	}
	r := exponent.rat()
	p := new(big.Int).Abs(r.Num())
	expanded := base.Expand()
	if (expanded.kind == KindSum || expanded.kind == KindProduct) && p.IsInt64() && p.Int64() <= maxExpandPower {
		factors := make([]Expr, p.Int64())
		for i := range factors {
			factors[i] = expanded
		}
		expanded = expandProduct(factors)
	} else {
		expanded = Pow(expanded, Expr{kind: KindNumber, num: new(big.Rat).SetInt(p)})
	}

	residual := new(big.Rat).SetFrac(big.NewInt(int64(r.Sign())), r.Denom())
	return Pow(expanded, Expr{kind: KindNumber, num: residual})
}

func expandProduct(factors []Expr) Expr {
	if len(factors) == 0 {
		return Int(1)
	}
	result := factors[0].Expand()
	for _, f := range factors[1:] {
		result = distribute(result, f.Expand())
	}
	return result
}

// distribute multiplies two expanded expressions, distributing over sums.
func distribute(a, b Expr) Expr {
	switch {
	case a.kind == KindSum && b.kind == KindSum:
		terms := make([]Expr, 0, len(a.ops)*len(b.ops))
		for _, x := range a.ops {
			for _, y := range b.ops {
				terms = append(terms, Mul(x, y))
			}
		}
		return Add(terms...)
	case a.kind == KindSum:
		terms := make([]Expr, len(a.ops))
		for i, x := range a.ops {
			terms[i] = Mul(x, b)
		}
		return Add(terms...)
	case b.kind == KindSum:
		terms := make([]Expr, len(b.ops))
		for i, y := range b.ops {
			terms[i] = Mul(a, y)
		}
		return Add(terms...)
	default:
		return Mul(a, b)
	}
}

// Substitute replaces every sub-expression structurally equal to match with
// replacement. The result is rebuilt through the factories, so replacements
// may combine with neighbouring terms. It fails with ErrDivisionByZero when
// a replacement leaves zero raised to a negative power.
func (e Expr) Substitute(match, replacement Expr) (Expr, error) {
	return e.rewrite(func(x Expr) (Expr, bool) {
		if Equal(x, match) {
			return replacement, true
		}
		return Expr{}, false
	})
}

// rewrite rebuilds e bottom-up, replacing the sub-expressions for which f
// reports true. A division by zero is reported where it first appears,
// before an enclosing product can absorb it.
func (e Expr) rewrite(f func(Expr) (Expr, bool)) (Expr, error) {
	if r, ok := f(e); ok {
		if r.undefined() {
			return Expr{}, ErrDivisionByZero
		}
		return r, nil
	}
	if len(e.ops) == 0 {
		return e, nil
	}
	ops := make([]Expr, len(e.ops))
	for i, op := range e.ops {
		r, err := op.rewrite(f)
		if err != nil {
			return Expr{}, err
		}
		ops[i] = r
	}

	var out Expr
	switch e.kind {
	case KindSum:
		out = Add(ops...)
	case KindProduct:
		out = Mul(ops...)
	default:
		out = Pow(ops[0], ops[1])
	}
	if out.undefined() {
		return Expr{}, ErrDivisionByZero
	}
	return out, nil
}

// Symbols returns the distinct symbols of e sorted by name.
func (e Expr) Symbols() []Expr {
	seen := make(map[string]bool)
	var out []Expr
	var walk func(Expr)
	walk = func(x Expr) {
		if x.kind == KindSymbol {
			if !seen[x.name] {
				seen[x.name] = true
				out = append(out, x)
			}
			return
		}
		for _, op := range x.ops {
			walk(op)
		}
	}
	walk(e)
	slices.SortFunc(out, Compare)
	return out
}

// Eval binds the distinct symbols of e, sorted by name, to the given Numbers
// positionally and returns the simplified result. Eval(y^x, 2, 3) binds x=2
// and y=3 and yields 9.
func (e Expr) Eval(values ...Expr) (Expr, error) {
	for i, v := range values {
		if v.kind != KindNumber {
			return Expr{}, fmt.Errorf("%w: argument %d is a %s", ErrNotNumber, i+1, v.kind)
		}
	}

	symbols := e.Symbols()
	switch {
	case len(symbols) < len(values):
		return Expr{}, fmt.Errorf("%w: too many rational numbers to evaluate expression, expected %d but got %d",
			ErrArgumentCount, len(symbols), len(values))
	case len(symbols) > len(values):
		return Expr{}, fmt.Errorf("%w: not enough rational numbers to evaluate expression, expected %d but got %d",
			ErrArgumentCount, len(symbols), len(values))
	}

	bound := make(map[string]Expr, len(symbols))
	for i, s := range symbols {
		bound[s.name] = values[i]
	}
	return e.rewrite(func(x Expr) (Expr, bool) {
		if x.kind != KindSymbol {
			return Expr{}, false
		}
		v, ok := bound[x.name]
		return v, ok
	})
}
