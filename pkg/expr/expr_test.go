package expr_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/sandrolain/luppolo/pkg/expr"
)

var (
	x = expr.Sym("x")
	y = expr.Sym("y")
	z = expr.Sym("z")
)

func n(v int64) expr.Expr { return expr.Int(v) }

func assertEqual(t *testing.T, got, want expr.Expr) {
	t.Helper()
	if !expr.Equal(got, want) {
		t.Errorf("got %s [%s], want %s [%s]", got, got.Tree(), want, want.Tree())
	}
}

func TestCanonicalConstruction(t *testing.T) {
	tests := []struct {
		name string
		got  expr.Expr
		want string
	}{
		{"fold numbers", expr.Add(n(2), n(3)), "N(5)"},
		{"like terms", expr.Add(x, x), "M(N(2), S(x))"},
		{"like factors", expr.Mul(x, x), "P(S(x), N(2))"},
		{"cancel terms", expr.Add(x, expr.Neg(x)), "N(0)"},
		{"cancel factors", expr.Mul(x, expr.Pow(x, n(-1))), "N(1)"},
		{"zero factor", expr.Mul(x, n(0), y), "N(0)"},
		{"flatten sum", expr.Add(expr.Add(x, n(1)), expr.Add(y, n(2))), "A(N(3), S(x), S(y))"},
		{"flatten product", expr.Mul(expr.Mul(x, n(2)), expr.Mul(y, n(3))), "M(N(6), S(x), S(y))"},
		{"power of power", expr.Pow(expr.Pow(x, n(2)), n(3)), "P(S(x), N(6))"},
		{"number power", expr.Pow(n(2), n(10)), "N(1024)"},
		{"negative exponent", expr.Pow(n(2), n(-2)), "N(1/4)"},
		{"exact root", expr.Pow(n(4), expr.Frac(1, 2)), "N(2)"},
		{"exact rational root", expr.Pow(expr.Frac(8, 27), expr.Frac(2, 3)), "N(4/9)"},
		{"odd root of negative", expr.Pow(n(-8), expr.Frac(1, 3)), "N(-2)"},
		{"irrational root kept", expr.Pow(n(2), expr.Frac(1, 2)), "P(N(2), N(1/2))"},
		{"root squared folds", expr.Mul(expr.Pow(n(2), expr.Frac(1, 2)), expr.Pow(n(2), expr.Frac(1, 2))), "N(2)"},
		{"zero to negative kept", expr.Pow(n(0), n(-1)), "P(N(0), N(-1))"},
		{"exponent zero", expr.Pow(x, n(0)), "N(1)"},
		{"exponent one", expr.Pow(x, n(1)), "S(x)"},
		{"base zero", expr.Pow(n(0), x), "N(0)"},
		{"base one", expr.Pow(n(1), x), "N(1)"},
		{"kind order in sum", expr.Add(expr.Mul(n(2), y), expr.Pow(x, n(2)), x, n(1)), "A(N(1), S(x), P(S(x), N(2)), M(N(2), S(y)))"},
		{"sum unit with coefficient one", expr.Add(expr.Mul(n(2), expr.Add(x, n(1))), expr.Neg(expr.Add(x, n(1)))), "A(N(1), S(x))"},
		{"power of product folds back", expr.Mul(expr.Pow(expr.Mul(x, y), expr.Frac(1, 2)), expr.Pow(expr.Mul(x, y), expr.Frac(1, 2))), "M(S(x), S(y))"},
		{"symbolic exponents combine", expr.Mul(expr.Pow(x, y), expr.Pow(x, z)), "P(S(x), A(S(y), S(z)))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.Tree(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCommutativity(t *testing.T) {
	values := []expr.Expr{
		n(3), x, y,
		expr.Add(x, n(1)),
		expr.Mul(n(2), y),
		expr.Pow(x, n(3)),
		expr.Pow(expr.Add(x, y), expr.Frac(1, 2)),
	}
	for _, a := range values {
		for _, b := range values {
			assertEqual(t, expr.Add(a, b), expr.Add(b, a))
			assertEqual(t, expr.Mul(a, b), expr.Mul(b, a))
		}
	}
}

func TestIdentities(t *testing.T) {
	values := []expr.Expr{
		n(0), n(7), expr.Frac(-3, 4), x,
		expr.Add(x, y, n(2)),
		expr.Mul(n(5), x, y),
		expr.Pow(x, y),
	}
	for _, e := range values {
		t.Run(e.String(), func(t *testing.T) {
			assertEqual(t, expr.Add(e, n(0)), e)
			assertEqual(t, expr.Mul(e, n(1)), e)
			assertEqual(t, expr.Pow(e, n(1)), e)
			assertEqual(t, expr.Pow(e, n(0)), n(1))
		})
	}
}

func TestIdempotence(t *testing.T) {
	values := []expr.Expr{
		expr.Add(n(1), expr.Mul(n(2), x), expr.Pow(x, n(2))),
		expr.Mul(n(3), x, expr.Pow(y, n(2)), expr.Add(x, z)),
		expr.Add(expr.Mul(x, y), expr.Mul(n(-1), z), n(4)),
	}
	for _, e := range values {
		ops := e.Operands()
		var rebuilt expr.Expr
		switch e.Kind() {
		case expr.KindSum:
			rebuilt = expr.Add(ops...)
		case expr.KindProduct:
			rebuilt = expr.Mul(ops...)
		}
		assertEqual(t, rebuilt, e)
	}
}

func TestCompareTotalOrder(t *testing.T) {
	ordered := []expr.Expr{
		n(-1),
		n(2),
		expr.Add(x, n(1)),
		x,
		y,
		expr.Pow(x, n(2)),
		expr.Mul(n(2), x),
	}
	for i := range ordered {
		for j := range ordered {
			c := expr.Compare(ordered[i], ordered[j])
			switch {
			case i < j && c >= 0:
				t.Errorf("Compare(%s, %s) = %d, want < 0", ordered[i], ordered[j], c)
			case i > j && c <= 0:
				t.Errorf("Compare(%s, %s) = %d, want > 0", ordered[i], ordered[j], c)
			case i == j && c != 0:
				t.Errorf("Compare(%s, %s) = %d, want 0", ordered[i], ordered[j], c)
			}
		}
	}
}

func TestKeyMatchesEquality(t *testing.T) {
	a := expr.Add(x, expr.Mul(n(2), y))
	b := expr.Add(expr.Mul(y, n(2)), x)
	if a.Key() != b.Key() {
		t.Errorf("keys differ for equal values: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() == expr.Add(x, y).Key() {
		t.Errorf("keys collide for different values")
	}
}

func TestOf(t *testing.T) {
	tests := []struct {
		in   any
		want expr.Expr
	}{
		{3, n(3)},
		{int64(-4), n(-4)},
		{"x", x},
		{big.NewRat(1, 3), expr.Frac(1, 3)},
		{big.NewInt(12), n(12)},
		{x, x},
	}
	for _, tt := range tests {
		got, err := expr.Of(tt.in)
		if err != nil {
			t.Fatalf("Of(%v): %v", tt.in, err)
		}
		assertEqual(t, got, tt.want)
	}

	if _, err := expr.Of(1.5); err == nil {
		t.Error("Of(float64) should fail")
	}
	if _, err := expr.Of(""); err == nil {
		t.Error("Of(\"\") should fail")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		e    expr.Expr
		want string
	}{
		{n(5), "5"},
		{expr.Frac(-1, 2), "-1/2"},
		{expr.Add(n(1), x), "1 + x"},
		{expr.Add(n(2), x, expr.Pow(x, n(2))), "2 + x + x^2"},
		{expr.Add(n(6), x, expr.Pow(x, n(4)), expr.Mul(n(2), expr.Pow(x, n(2)))), "6 + x + x^4 + 2 * x^2"},
		{expr.Sub(x, y), "x - y"},
		{expr.Sub(x, n(3)), "-3 + x"},
		{expr.Neg(x), "-x"},
		{expr.Pow(x, n(-1)), "1/x"},
		{expr.Mul(x, expr.Pow(y, n(-1))), "x/y"},
		{expr.Mul(n(-1), expr.Pow(expr.Add(x, n(1)), n(-1))), "-1/(1 + x)"},
		{expr.Pow(expr.Add(x, n(1)), expr.Frac(1, 2)), "(1 + x)^(1/2)"},
		{expr.Mul(expr.Frac(1, 2), x), "(1/2) * x"},
		{expr.Mul(n(3), expr.Add(x, y)), "3 * (x + y)"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String(%s) = %q, want %q", tt.e.Tree(), got, tt.want)
		}
	}
}

func TestEval(t *testing.T) {
	e := expr.Pow(y, x)
	got, err := e.Eval(n(2), n(3))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, n(9))

	got, err = expr.Add(x, expr.Frac(1, 2)).Eval(expr.Frac(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, n(1))

	got, err = n(7).Eval()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, got, n(7))

	errTests := []struct {
		name   string
		e      expr.Expr
		values []expr.Expr
		want   error
	}{
		{"too many", x, []expr.Expr{n(1), n(2)}, expr.ErrArgumentCount},
		{"not enough", expr.Add(x, y), []expr.Expr{n(1)}, expr.ErrArgumentCount},
		{"not a number", x, []expr.Expr{y}, expr.ErrNotNumber},
		{"division by zero", expr.Pow(x, n(-1)), []expr.Expr{n(0)}, expr.ErrDivisionByZero},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.Eval(tt.values...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name    string
		e, m, r expr.Expr
		want    expr.Expr
	}{
		{"root match", x, x, y, y},
		{"creates like terms", expr.Add(x, y), y, x, expr.Mul(n(2), x)},
		{"inside power", expr.Pow(expr.Add(x, n(1)), n(2)), x, n(2), n(9)},
		{"sub-expression", expr.Mul(n(3), expr.Add(x, n(1))), expr.Add(x, n(1)), z, expr.Mul(n(3), z)},
		{"no match", expr.Add(x, n(1)), y, z, expr.Add(x, n(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.e.Substitute(tt.m, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			assertEqual(t, got, tt.want)
		})
	}

	errTests := []struct {
		name    string
		e, m, r expr.Expr
	}{
		{"reciprocal", expr.Pow(x, n(-1)), x, n(0)},
		{"inside a sum", expr.Add(expr.Pow(x, n(2)), expr.Pow(x, n(-1))), x, n(0)},
		{"next to a zero factor", expr.Mul(y, expr.Pow(x, n(-3))), expr.Mul(y, expr.Pow(x, n(-3))), expr.Mul(n(0), expr.Pow(n(0), n(-1)))},
		{"sub-expression", expr.Pow(expr.Add(x, n(1)), n(-2)), expr.Add(x, n(1)), n(0)},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.e.Substitute(tt.m, tt.r); !errors.Is(err, expr.ErrDivisionByZero) {
				t.Errorf("got %v, want %v", err, expr.ErrDivisionByZero)
			}
		})
	}
}

func TestDivisionByZeroIsNotAbsorbed(t *testing.T) {
	inf := expr.Pow(n(0), n(-1))
	if !inf.Undefined() {
		t.Fatalf("%s should be undefined", inf.Tree())
	}
	if x.Undefined() || expr.Pow(x, n(-1)).Undefined() {
		t.Error("a symbolic reciprocal is defined")
	}

	tests := []struct {
		name string
		e    expr.Expr
	}{
		{"zero factor", expr.Mul(n(0), inf)},
		{"zero factor last", expr.Mul(x, inf, n(0))},
		{"zero exponent", expr.Pow(inf, n(0))},
		{"negated exponent", expr.Pow(inf, n(-1))},
		{"zero base", expr.Pow(n(0), expr.Mul(x, inf))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.e.Undefined() {
				t.Errorf("got %s, a division by zero was absorbed", tt.e.Tree())
			}
		})
	}
}
