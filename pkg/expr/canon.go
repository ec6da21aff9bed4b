package expr

import (
	"math/big"
	"slices"
)

// accumulator groups operands by structural key, keeping first-seen order.
type accumulator struct {
	index map[string]int
	keys  []Expr
	acc   []Expr
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

// add adds v to the running value associated with key.
func (a *accumulator) add(key, v Expr) {
	k := key.Key()
	if i, ok := a.index[k]; ok {
		a.acc[i] = Add(a.acc[i], v)
		return
	}
	a.index[k] = len(a.keys)
	a.keys = append(a.keys, key)
	a.acc = append(a.acc, v)
}

// Add returns the canonical sum of the operands.
//
// Nested sums are flattened, Number terms fold into one constant and terms
// that share the same non-numeric unit are combined by adding their
// coefficients (x + 2*x = 3*x). An empty sum is 0 and a single surviving
// term is returned as is.
func Add(operands ...Expr) Expr {
	constant := new(big.Rat)
	terms := newAccumulator()

	queue := slices.Clone(operands)
	for i := 0; i < len(queue); i++ {
		op := queue[i]
		switch op.kind {
		case KindNumber:
			constant.Add(constant, op.rat())
		case KindSum:
			queue = append(queue, op.ops...)
		case KindProduct:
			coef, unit := splitCoefficient(op)
			terms.add(unit, coef)
		default:
			terms.add(op, Int(1))
		}
	}

	result := make([]Expr, 0, len(terms.keys)+1)
	nested := false
	for i, unit := range terms.keys {
		coef := terms.acc[i]
		switch {
		case coef.IsZero():
			continue
		case coef.IsOne():
			result = append(result, unit)
			nested = nested || unit.kind == KindSum
		default:
			result = append(result, Mul(coef, unit))
		}
	}
	if constant.Sign() != 0 {
		result = append(result, Expr{kind: KindNumber, num: constant})
	}

	switch len(result) {
	case 0:
		return Int(0)
	case 1:
		return result[0]
	}
	// A unit that is itself a sum came back with coefficient one; flatten again.
	if nested {
		return Add(result...)
	}
	slices.SortFunc(result, Compare)
	return Expr{kind: KindSum, ops: result}
}

// splitCoefficient separates a canonical product into its numeric
// coefficient (1 when absent) and the product of the remaining factors.
func splitCoefficient(p Expr) (coef, unit Expr) {
	factors := p.ops
	coef = Int(1)
	if factors[0].kind == KindNumber {
		coef = factors[0]
		factors = factors[1:]
	}
	if len(factors) == 1 {
		return coef, factors[0]
	}
	return coef, Expr{kind: KindProduct, ops: factors}
}

// Mul returns the canonical product of the operands.
//
// Nested products are flattened, Number factors fold into one leading
// coefficient and factors sharing a base are combined by adding their
// exponents (x * x^2 = x^3). A zero factor makes the whole product 0
// unless another factor divides by zero, which then wins.
func Mul(operands ...Expr) Expr {
	coef := big.NewRat(1, 1)
	powers := newAccumulator()

	queue := slices.Clone(operands)
	for i := 0; i < len(queue); i++ {
		op := queue[i]
		switch op.kind {
		case KindNumber:
			if op.rat().Sign() == 0 {
				return absorb(operands)
			}
			coef.Mul(coef, op.rat())
		case KindProduct:
			queue = append(queue, op.ops...)
		case KindPower:
			powers.add(op.ops[0], op.ops[1])
		default:
			powers.add(op, Int(1))
		}
	}

	result := make([]Expr, 0, len(powers.keys)+1)
	nested := false
	for i, base := range powers.keys {
		exp := powers.acc[i]
		if exp.IsZero() {
			continue
		}
		f := Pow(base, exp)
		switch f.kind {
		case KindNumber:
			if f.rat().Sign() == 0 {
				return absorb(operands)
			}
			coef.Mul(coef, f.rat())
			continue
		case KindProduct:
			nested = true
		}
		result = append(result, f)
	}

	if nested {
		return Mul(append(result, Expr{kind: KindNumber, num: coef})...)
	}
	if len(result) == 0 {
		return Expr{kind: KindNumber, num: coef}
	}
	if coef.Cmp(ratOne) == 0 {
		if len(result) == 1 {
			return result[0]
		}
	} else {
		result = append(result, Expr{kind: KindNumber, num: coef})
	}
	slices.SortFunc(result, Compare)
	return Expr{kind: KindProduct, ops: result}
}

// Pow returns the canonical power base^exponent.
//
// Number^Number folds when the result is an exact rational, (b^e1)^e2 with
// numeric exponents folds to b^(e1*e2), exponent 0 gives 1, exponent 1
// gives the base, and bases 0 and 1 give themselves.
func Pow(base, exponent Expr) Expr {
	if base.kind == KindNumber && exponent.kind == KindNumber {
		if r, ok := ratPow(base.rat(), exponent.rat()); ok {
			return Expr{kind: KindNumber, num: r}
		}
		return Expr{kind: KindPower, ops: []Expr{base, exponent}}
	}
	if base.undefined() || exponent.undefined() {
		return Expr{kind: KindPower, ops: []Expr{base, exponent}}
	}
	if base.kind == KindPower && base.ops[1].kind == KindNumber && exponent.kind == KindNumber {
		e := new(big.Rat).Mul(base.ops[1].rat(), exponent.rat())
		return Pow(base.ops[0], Expr{kind: KindNumber, num: e})
	}
	switch {
	case exponent.IsZero():
		return Int(1)
	case exponent.IsOne():
		return base
	case base.IsZero():
		return Int(0)
	case base.IsOne():
		return Int(1)
	}
	return Expr{kind: KindPower, ops: []Expr{base, exponent}}
}

// absorb is the value of a product with a zero factor: 0, or the first
// operand that divides by zero.
func absorb(operands []Expr) Expr {
	for _, op := range operands {
		if op.undefined() {
			return op
		}
	}
	return Int(0)
}

// Neg returns -e.
func Neg(e Expr) Expr {
	return Mul(Int(-1), e)
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	return Add(a, Neg(b))
}

// Undefined reports whether e divides by zero.
func (e Expr) Undefined() bool {
	return e.undefined()
}

// undefined reports whether e contains a power of zero with a negative
// exponent, the only shape a division by zero can leave behind.
func (e Expr) undefined() bool {
	if e.kind == KindPower && e.ops[0].IsZero() && e.ops[1].Sign() < 0 {
		return true
	}
	for _, op := range e.ops {
		if op.undefined() {
			return true
		}
	}
	return false
}
