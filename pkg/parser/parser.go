// Package parser turns Luppolo source text into a syntax tree.
//
// The parser is a hand-written recursive descent parser over a Pike-style
// lexer. It produces a [types.Node] of kind PROGRAM whose children are the
// FUNCTION nodes of the source, ready for the optimizer and the linearizer.
//
// # Names
//
// A name followed by "(" is a call. Otherwise a name beginning with an
// upper-case letter is a variable (ID). A lower-case name is a variable when
// it is a parameter, a foreach variable or the target of an earlier
// assignment in the same function, and a symbol (SYM) otherwise:
//
//	Main(n) {
//	    x := n + 1        # n is a variable
//	    return x * y      # x is a variable, y is the symbol y
//	}
//
// # Example
//
//	root, err := parser.Parse("Main() { return 2 + 3 }")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(root.Tree())
package parser

import (
	"github.com/sandrolain/luppolo/pkg/types"
)

// Parse parses a Luppolo program and returns the root PROGRAM node.
//
// If parsing fails, it returns a *types.Error with position information.
func Parse(source string, opts ...CompileOption) (*types.Node, error) {
	p := NewParser(source, opts...)
	return p.Parse()
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits the nesting of blocks, conditions and expressions.
	MaxDepth int
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
