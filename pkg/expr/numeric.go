package expr

import "math/big"

const (
	// maxPowerBits bounds the size of a folded Number^Number result. Larger
	// powers stay symbolic instead of exhausting memory.
	maxPowerBits = 1 << 20
	// maxRootDegree bounds the root taken when folding a rational exponent.
	maxRootDegree = 1 << 10
)

// ratPow computes b^e exactly. It reports false when the result is not a
// rational number, is undefined (0 to a negative power) or is too large.
func ratPow(b, e *big.Rat) (*big.Rat, bool) {
	if e.IsInt() {
		return ratIntPow(b, e.Num())
	}
	q := e.Denom()
	if !q.IsInt64() || q.Int64() > maxRootDegree {
		return nil, false
	}
	root, ok := ratRoot(b, int(q.Int64()))
	if !ok {
		return nil, false
	}
	return ratIntPow(root, e.Num())
}

func ratIntPow(b *big.Rat, n *big.Int) (*big.Rat, bool) {
	switch {
	case n.Sign() == 0:
		return big.NewRat(1, 1), true
	case b.Sign() == 0:
		if n.Sign() < 0 {
			return nil, false
		}
		return new(big.Rat), true
	case b.Cmp(ratOne) == 0:
		return big.NewRat(1, 1), true
	case b.Cmp(big.NewRat(-1, 1)) == 0:
		if n.Bit(0) == 0 {
			return big.NewRat(1, 1), true
		}
		return big.NewRat(-1, 1), true
	}
	if !n.IsInt64() {
		return nil, false
	}
	k := n.Int64()
	if k < 0 {
		k = -k
	}
	bits := int64(b.Num().BitLen() + b.Denom().BitLen())
	if bits*k > maxPowerBits {
		return nil, false
	}
	exp := big.NewInt(k)
	num := new(big.Int).Exp(b.Num(), exp, nil)
	den := new(big.Int).Exp(b.Denom(), exp, nil)
	if n.Sign() < 0 {
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den), true
}

// ratRoot returns the exact q-th root of b when one exists.
func ratRoot(b *big.Rat, q int) (*big.Rat, bool) {
	neg := b.Sign() < 0
	if neg && q%2 == 0 {
		return nil, false
	}
	num := new(big.Int).Abs(b.Num())
	rn, ok := intRoot(num, q)
	if !ok {
		return nil, false
	}
	rd, ok := intRoot(b.Denom(), q)
	if !ok {
		return nil, false
	}
	if neg {
		rn.Neg(rn)
	}
	return new(big.Rat).SetFrac(rn, rd), true
}

// intRoot computes floor(x^(1/q)) for x >= 0 with Newton's method and reports
// whether the root is exact.
func intRoot(x *big.Int, q int) (*big.Int, bool) {
	if x.Sign() == 0 || q == 1 {
		return new(big.Int).Set(x), true
	}
	qm1 := big.NewInt(int64(q - 1))
	bq := big.NewInt(int64(q))
	r := new(big.Int).Lsh(big.NewInt(1), uint(x.BitLen()/q+1))
	for {
		t := new(big.Int).Exp(r, qm1, nil)
		t.Quo(x, t)
		y := new(big.Int).Mul(qm1, r)
		y.Add(y, t)
		y.Quo(y, bq)
		if y.Cmp(r) >= 0 {
			break
		}
		r = y
	}
	return r, new(big.Int).Exp(r, bq, nil).Cmp(x) == 0
}
