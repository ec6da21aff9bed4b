package expr

import "errors"

var (
	// ErrNotSymbol is returned when an operation requires a Symbol argument.
	ErrNotSymbol = errors.New("second argument must be a symbol")
	// ErrNotNumber is returned by Eval for a non-Number value.
	ErrNotNumber = errors.New("expected rational number")
	// ErrArgumentCount is returned by Eval when the number of values does not
	// match the number of distinct symbols.
	ErrArgumentCount = errors.New("wrong number of rational numbers")
	// ErrNonRationalExponent is returned when differentiating a power whose
	// exponent is not a Number.
	ErrNonRationalExponent = errors.New("non-rational exponent in expression")
	// ErrNotUnivariate is returned by DerivePolynomial when the expanded
	// expression does not contain exactly the requested symbol.
	ErrNotUnivariate = errors.New("expression is not a univariate polynomial")
	// ErrDivisionByZero is returned when a result would divide by zero.
	ErrDivisionByZero = errors.New("division by zero")
)
