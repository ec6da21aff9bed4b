package expr

import (
	"cmp"
	"strings"
)

// Compare is the total order over canonical expressions.
//
// Expressions of different kinds compare by kind priority
// (Number < Sum < Symbol < Power < Product). Numbers compare numerically,
// Symbols by name, and composite expressions lexicographically by operand
// sequence, a shorter sequence sorting first when it is a prefix of the
// longer one.
func Compare(a, b Expr) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindNumber:
		return a.rat().Cmp(b.rat())
	case KindSymbol:
		return strings.Compare(a.name, b.name)
	}
	n := min(len(a.ops), len(b.ops))
	for i := 0; i < n; i++ {
		if c := Compare(a.ops[i], b.ops[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a.ops), len(b.ops))
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	return Compare(a, b) == 0
}

// Less reports whether a sorts before b.
func Less(a, b Expr) bool {
	return Compare(a, b) < 0
}
