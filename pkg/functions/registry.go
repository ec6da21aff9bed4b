// Package functions describes the built-in functions of Luppolo and the
// types used to register custom ones.
//
// Built-ins are called like user functions but are implemented in Go. The
// standard set is Expand, Substitute, Eval, SimpleDerive, DerivePolynomial,
// Input and Print. Embedders can add more through [CustomFunctionDef] and
// luppolo.WithFunctions, making them available to every program run by the
// engine.
//
// # Example
//
//	double := functions.CustomFunctionDef{
//	    Name:    "Double",
//	    MinArgs: 1,
//	    MaxArgs: 1,
//	    Fn: func(ctx context.Context, args ...expr.Expr) (expr.Expr, error) {
//	        return expr.Mul(expr.Int(2), args[0]), nil
//	    },
//	}
//	result, err := luppolo.Exec(ctx, "Main() { return Double(x) }", nil,
//	    luppolo.WithFunctions(double))
//	// result == 2 * x
package functions

import (
	"context"
	"slices"

	"github.com/sandrolain/luppolo/pkg/expr"
)

// Variadic is the MaxArgs value of a function that accepts any number of
// trailing arguments.
const Variadic = -1

// CustomFunc is the signature of a built-in implementation.
// args contains the evaluated arguments in source order.
type CustomFunc func(ctx context.Context, args ...expr.Expr) (expr.Expr, error)

// CustomFunctionDef describes a function implemented in Go.
type CustomFunctionDef struct {
	// Name is the function name as it appears in programs.
	Name string
	// MinArgs is the minimum number of arguments.
	MinArgs int
	// MaxArgs is the maximum number of arguments, or Variadic.
	MaxArgs int
	// Fn is the implementation.
	Fn CustomFunc
}

// Accepts reports whether the function can be called with n arguments.
func (d CustomFunctionDef) Accepts(n int) bool {
	return n >= d.MinArgs && (d.MaxArgs == Variadic || n <= d.MaxArgs)
}

// Arity describes how many arguments a built-in accepts.
type Arity struct {
	Min, Max int
}

var standard = map[string]Arity{
	"Expand":           {1, 1},
	"Substitute":       {3, 3},
	"Eval":             {1, Variadic},
	"SimpleDerive":     {2, 2},
	"DerivePolynomial": {2, 2},
	"Input":            {0, 0},
	"Print":            {1, 1},
}

// IsStandard reports whether name is one of the standard built-ins.
func IsStandard(name string) bool {
	_, ok := standard[name]
	return ok
}

// StandardArity returns the arity of a standard built-in.
func StandardArity(name string) (Arity, bool) {
	a, ok := standard[name]
	return a, ok
}

// Standard returns the names of the standard built-ins in sorted order.
func Standard() []string {
	names := make([]string, 0, len(standard))
	for name := range standard {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
