package expr

import "fmt"

// SimpleDerive differentiates e with respect to the symbol s using the sum,
// product and power rules. Powers must have a Number exponent.
func (e Expr) SimpleDerive(s Expr) (Expr, error) {
	if s.kind != KindSymbol {
		return Expr{}, ErrNotSymbol
	}
	return e.derive(s)
}

func (e Expr) derive(s Expr) (Expr, error) {
	switch e.kind {
	case KindNumber:
		return Int(0), nil
	case KindSymbol:
		if e.name == s.name {
			return Int(1), nil
		}
		return Int(0), nil
	case KindSum:
		terms := make([]Expr, len(e.ops))
		for i, op := range e.ops {
			d, err := op.derive(s)
			if err != nil {
				return Expr{}, err
			}
			terms[i] = d
		}
		return Add(terms...), nil
	case KindProduct:
		terms := make([]Expr, len(e.ops))
		for i, op := range e.ops {
			d, err := op.derive(s)
			if err != nil {
				return Expr{}, err
			}
			factors := make([]Expr, 0, len(e.ops))
			factors = append(factors, d)
			factors = append(factors, e.ops[:i]...)
			factors = append(factors, e.ops[i+1:]...)
			terms[i] = Mul(factors...)
		}
		return Add(terms...), nil
	case KindPower:
		base, exp := e.ops[0], e.ops[1]
		if exp.kind != KindNumber {
			return Expr{}, fmt.Errorf("%w: %s", ErrNonRationalExponent, e)
		}
		d, err := base.derive(s)
		if err != nil {
			return Expr{}, err
		}
		return Mul(exp, Pow(base, Add(exp, Int(-1))), d), nil
	default:
		return Expr{}, fmt.Errorf("expr: unknown kind %d", e.kind)
	}
}

// DerivePolynomial expands e and differentiates it with respect to s. The
// expanded form must contain s and no other symbol.
func (e Expr) DerivePolynomial(s Expr) (Expr, error) {
	if s.kind != KindSymbol {
		return Expr{}, ErrNotSymbol
	}
	expanded := e.Expand()
	symbols := expanded.Symbols()
	if len(symbols) != 1 || !Equal(symbols[0], s) {
		return Expr{}, ErrNotUnivariate
	}
	return expanded.SimpleDerive(s)
}
