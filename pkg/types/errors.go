package types

import (
	"fmt"
	"strings"
)

// ErrorCode represents a Luppolo error code.
type ErrorCode string

// Error codes, grouped by the stage that raises them.
const (
	// S01xx: Lexer/Syntax errors
	ErrUnexpectedChar  ErrorCode = "S0101"
	ErrUnexpectedToken ErrorCode = "S0102"
	ErrUnexpectedEnd   ErrorCode = "S0103"
	ErrExpectedToken   ErrorCode = "S0104"

	// L01xx: Linearization errors
	ErrEntryNotFound     ErrorCode = "L0101"
	ErrDuplicateFunction ErrorCode = "L0102"
	ErrNotProgram        ErrorCode = "L0103"
	ErrInvalidIR         ErrorCode = "L0104"

	// T01xx: Type errors
	ErrNotNumber     ErrorCode = "T0101"
	ErrNotBoolean    ErrorCode = "T0102"
	ErrNotExpression ErrorCode = "T0103"
	ErrNotSymbol     ErrorCode = "T0104"

	// D01xx: Evaluation errors
	ErrDivisionByZero     ErrorCode = "D0101"
	ErrMissingReturn      ErrorCode = "D0102"
	ErrBuiltinFailed      ErrorCode = "D0103"
	ErrInvalidInput       ErrorCode = "D0104"
	ErrUnknownInstruction ErrorCode = "D0105"

	// U01xx: Undefined names
	ErrUndefinedVariable ErrorCode = "U0101"
	ErrUndefinedFunction ErrorCode = "U0102"

	// A01xx: Argument binding errors
	ErrCallArity       ErrorCode = "A0101"
	ErrArgumentCount   ErrorCode = "A0102"
	ErrInvalidArgument ErrorCode = "A0103"

	// R01xx: Resource errors
	ErrStackOverflow ErrorCode = "R0101"
	ErrCanceled      ErrorCode = "R0102"
)

// Error represents a structured Luppolo error.
//
// Position is a byte offset into the source for syntax errors and -1
// otherwise. Function names the function that was executing, Builtin the
// built-in that failed, if any.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Function string
	Builtin  string
	Err      error
}

// NewError creates a new Luppolo error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}
	if e.Builtin != "" {
		b.WriteString(" calling ")
		b.WriteString(e.Builtin)
	}
	if e.Position >= 0 {
		fmt.Fprintf(&b, " at position %d", e.Position)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// InFunction records the function that was executing.
func (e *Error) InFunction(name string) *Error {
	e.Function = name
	return e
}

// WithBuiltin records the built-in that failed.
func (e *Error) WithBuiltin(name string) *Error {
	e.Builtin = name
	return e
}
