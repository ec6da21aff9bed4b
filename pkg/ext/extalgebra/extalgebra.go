// Package extalgebra provides polynomial inspection built-ins for Luppolo
// beyond the standard set.
package extalgebra

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/functions"
)

// ErrNotPolynomial is returned when an expression is not a polynomial in
// the requested symbol.
var ErrNotPolynomial = errors.New("expression is not a polynomial in the symbol")

// All returns all algebra function definitions.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		Degree(),
		Coefficient(),
		Numerator(),
		Denominator(),
		TermCount(),
	}
}

// Degree returns the definition for Degree(expr, sym): the highest power of
// sym in the expansion of expr.
func Degree() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Degree",
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...expr.Expr) (expr.Expr, error) {
			s, err := symbol(args[1])
			if err != nil {
				return expr.Expr{}, err
			}
			degree := int64(0)
			for _, term := range terms(args[0].Expand()) {
				d, _, err := split(term, s)
				if err != nil {
					return expr.Expr{}, err
				}
				degree = max(degree, d)
			}
			return expr.Int(degree), nil
		},
	}
}

// Coefficient returns the definition for Coefficient(expr, sym, n): the
// coefficient of sym^n in the expansion of expr.
func Coefficient() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Coefficient",
		MinArgs: 3,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...expr.Expr) (expr.Expr, error) {
			s, err := symbol(args[1])
			if err != nil {
				return expr.Expr{}, err
			}
			n, err := power(args[2])
			if err != nil {
				return expr.Expr{}, err
			}
			var parts []expr.Expr
			for _, term := range terms(args[0].Expand()) {
				d, coeff, err := split(term, s)
				if err != nil {
					return expr.Expr{}, err
				}
				if d == n {
					parts = append(parts, coeff)
				}
			}
			return expr.Add(parts...), nil
		},
	}
}

// Numerator returns the definition for Numerator(n).
func Numerator() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Numerator",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...expr.Expr) (expr.Expr, error) {
			r, err := number(args[0])
			if err != nil {
				return expr.Expr{}, err
			}
			return expr.Rat(new(big.Rat).SetInt(r.Num())), nil
		},
	}
}

// Denominator returns the definition for Denominator(n).
func Denominator() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Denominator",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...expr.Expr) (expr.Expr, error) {
			r, err := number(args[0])
			if err != nil {
				return expr.Expr{}, err
			}
			return expr.Rat(new(big.Rat).SetInt(r.Denom())), nil
		},
	}
}

// TermCount returns the definition for TermCount(expr): the number of terms
// of a Sum, 0 for the Number 0 and 1 otherwise.
func TermCount() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "TermCount",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...expr.Expr) (expr.Expr, error) {
			if args[0].IsZero() {
				return expr.Int(0), nil
			}
			return expr.Int(int64(len(terms(args[0])))), nil
		},
	}
}

func terms(e expr.Expr) []expr.Expr {
	if e.Kind() == expr.KindSum {
		return e.Operands()
	}
	return []expr.Expr{e}
}

// split separates a term of an expanded polynomial into the power of s and
// the remaining coefficient.
func split(term, s expr.Expr) (int64, expr.Expr, error) {
	factors := []expr.Expr{term}
	if term.Kind() == expr.KindProduct {
		factors = term.Operands()
	}

	degree := int64(0)
	coeff := make([]expr.Expr, 0, len(factors))
	for _, f := range factors {
		switch {
		case expr.Equal(f, s):
			degree++
		case f.Kind() == expr.KindPower && expr.Equal(f.Base(), s):
			k, err := power(f.Exponent())
			if err != nil {
				return 0, expr.Expr{}, fmt.Errorf("%w: %s", ErrNotPolynomial, f)
			}
			degree += k
		case contains(f, s):
			return 0, expr.Expr{}, fmt.Errorf("%w: %s", ErrNotPolynomial, f)
		default:
			coeff = append(coeff, f)
		}
	}
	return degree, expr.Mul(coeff...), nil
}

func contains(e, s expr.Expr) bool {
	for _, sym := range e.Symbols() {
		if expr.Equal(sym, s) {
			return true
		}
	}
	return false
}

func symbol(e expr.Expr) (expr.Expr, error) {
	if !e.IsSymbol() {
		return expr.Expr{}, expr.ErrNotSymbol
	}
	return e, nil
}

func number(e expr.Expr) (*big.Rat, error) {
	if !e.IsNumber() {
		return nil, fmt.Errorf("%w: got a %s", expr.ErrNotNumber, e.Kind())
	}
	return e.Rat(), nil
}

// power reads a non-negative integral exponent.
func power(e expr.Expr) (int64, error) {
	if !e.IsInteger() || e.Sign() < 0 {
		return 0, fmt.Errorf("%w: %s is not a non-negative integer", expr.ErrNotNumber, e)
	}
	n := e.Rat().Num()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s is too large", expr.ErrNotNumber, e)
	}
	return n.Int64(), nil
}
