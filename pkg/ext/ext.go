// Package ext provides optional extension built-ins for Luppolo that go
// beyond the standard set.
//
// The extension functions live in sub-packages grouped by category:
//   - extalgebra – Degree, Coefficient, Numerator, Denominator, TermCount
//
// # Integration – all extensions at once
//
//	import "github.com/sandrolain/luppolo/pkg/ext"
//
//	result, err := luppolo.Exec(ctx, src, nil, ext.WithAll())
//
// # Integration – single function from a sub-package
//
//	import "github.com/sandrolain/luppolo/pkg/ext/extalgebra"
//
//	result, err := luppolo.Exec(ctx, src, nil,
//	    luppolo.WithFunctions(extalgebra.Degree()),
//	)
package ext

import (
	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/ext/extalgebra"
	"github.com/sandrolain/luppolo/pkg/functions"
)

// All returns every extension function definition.
func All() []functions.CustomFunctionDef {
	var all []functions.CustomFunctionDef
	all = append(all, extalgebra.All()...)
	return all
}

// WithAll returns an Option that registers all extension functions.
func WithAll() luppolo.Option {
	return luppolo.WithFunctions(All()...)
}

// WithAlgebra returns an Option for the polynomial inspection functions.
func WithAlgebra() luppolo.Option {
	return luppolo.WithFunctions(extalgebra.All()...)
}
