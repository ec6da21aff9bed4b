package expr

import (
	"math/big"
	"strings"
)

// String renders e in conventional mathematical notation, e.g.
// "1 + x^2 + 2 * x" or "-x/(1 + y)".
func (e Expr) String() string {
	var b strings.Builder
	e.format(&b)
	return b.String()
}

func (e Expr) format(b *strings.Builder) {
	switch e.kind {
	case KindNumber:
		b.WriteString(e.rat().RatString())
	case KindSymbol:
		b.WriteString(e.name)
	case KindSum:
		for i, term := range e.ops {
			if i == 0 {
				term.format(b)
				continue
			}
			if abs, neg := negated(term); neg {
				b.WriteString(" - ")
				abs.format(b)
			} else {
				b.WriteString(" + ")
				term.format(b)
			}
		}
	case KindProduct:
		formatProduct(b, e.ops)
	case KindPower:
		base, exp := e.ops[0], e.ops[1]
		if exp.kind == KindNumber && exp.rat().Sign() < 0 {
			b.WriteString("1/")
			writeGrouped(b, Pow(base, Neg(exp)), needsParensAsDivisor)
			return
		}
		writeGrouped(b, base, needsParensInPower)
		b.WriteByte('^')
		writeGrouped(b, exp, needsParensInPower)
	}
}

func formatProduct(b *strings.Builder, factors []Expr) {
	coef := ratOne
	if factors[0].kind == KindNumber {
		coef = factors[0].rat()
		factors = factors[1:]
	}

	var numer, denom []Expr
	for _, f := range factors {
		if f.kind == KindPower && f.ops[1].kind == KindNumber && f.ops[1].rat().Sign() < 0 {
			denom = append(denom, Pow(f.ops[0], Neg(f.ops[1])))
			continue
		}
		numer = append(numer, f)
	}

	minusOne := big.NewRat(-1, 1)
	switch {
	case coef.Cmp(minusOne) == 0:
		b.WriteByte('-')
	case coef.Cmp(ratOne) != 0:
		writeGrouped(b, Expr{kind: KindNumber, num: coef}, func(x Expr) bool { return !x.rat().IsInt() })
		if len(numer) > 0 {
			b.WriteString(" * ")
		}
	}
	if len(numer) == 0 && (coef.Cmp(minusOne) == 0 || coef.Cmp(ratOne) == 0) {
		b.WriteByte('1')
	}
	for i, f := range numer {
		if i > 0 {
			b.WriteString(" * ")
		}
		writeGrouped(b, f, func(x Expr) bool { return x.kind == KindSum })
	}
	for _, d := range denom {
		b.WriteByte('/')
		writeGrouped(b, d, needsParensAsDivisor)
	}
}

// negated reports whether a sum term carries a negative sign and returns
// its absolute value.
func negated(term Expr) (Expr, bool) {
	switch term.kind {
	case KindNumber:
		if term.rat().Sign() < 0 {
			return Expr{kind: KindNumber, num: new(big.Rat).Neg(term.rat())}, true
		}
	case KindProduct:
		if lead := term.ops[0]; lead.kind == KindNumber && lead.rat().Sign() < 0 {
			return Neg(term), true
		}
	}
	return term, false
}

func needsParensInPower(x Expr) bool {
	switch x.kind {
	case KindSum, KindProduct, KindPower:
		return true
	case KindNumber:
		return x.rat().Sign() < 0 || !x.rat().IsInt()
	}
	return false
}

func needsParensAsDivisor(x Expr) bool {
	switch x.kind {
	case KindSum, KindProduct:
		return true
	case KindNumber:
		return !x.rat().IsInt()
	}
	return false
}

func writeGrouped(b *strings.Builder, x Expr, parens func(Expr) bool) {
	if parens(x) {
		b.WriteByte('(')
		x.format(b)
		b.WriteByte(')')
		return
	}
	x.format(b)
}

// Tree renders the structural form of e, e.g. "A(N(1), S(x))".
func (e Expr) Tree() string {
	var b strings.Builder
	e.writeTree(&b)
	return b.String()
}

func (e Expr) writeTree(b *strings.Builder) {
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
				b.WriteString(", ")
			}
			op.writeTree(b)
		}
	}
	b.WriteByte(')')
}
