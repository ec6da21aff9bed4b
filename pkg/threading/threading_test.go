package threading_test

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/sandrolain/luppolo/pkg/parser"
	"github.com/sandrolain/luppolo/pkg/threading"
	"github.com/sandrolain/luppolo/pkg/types"
)

func thread(t *testing.T, src string, opts ...threading.Option) types.Program {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", src, err)
	}
	prog, err := threading.Thread(root, opts...)
	if err != nil {
		t.Fatalf("Failed to thread %q: %v", src, err)
	}
	if err := prog.Validate(); err != nil {
		t.Fatalf("Threaded program is malformed: %v", err)
	}
	return prog
}

// listing renders one instruction per line with its jumps in edge order.
func listing(code []types.Instruction) string {
	var b strings.Builder
	for i, in := range code {
		fmt.Fprintf(&b, "%d %s", i, in)
		for _, e := range slices.Sorted(maps.Keys(in.Jumps)) {
			fmt.Fprintf(&b, " %s=%d", e, in.Jumps[e])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestThreadShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"expression",
			"Main() { return 2 + 3 }",
			`0 BEGIN(Main()) next=1
1 NAT(2) next=2
2 NAT(3) next=3
3 ADD_SUB_EXPRESSION(+) next=4
4 RETURN_INSTRUCTION next=5
5 END
`,
		},
		{
			"repeat",
			"Main(n) { x := 1; repeat(n) { x := x * 2 } return x }",
			`0 BEGIN(Main(n)) next=1
1 NAT(1) next=2
2 DECLARATION_INSTRUCTION(x) next=3
3 ID(n) next=8
4 ID(x) next=5
5 NAT(2) next=6
6 MUL_DIV_EXPRESSION(*) next=7
7 DECLARATION_INSTRUCTION(x) next=8
8 REPEAT_INSTRUCTION loop=4 next=9
9 ID(x) next=10
10 RETURN_INSTRUCTION next=11
11 END
`,
		},
		{
			"if else with empty branch",
			"Main(n) { if (n < 2) { return n } else { } return 0 }",
			`0 BEGIN(Main(n)) next=1
1 ID(n) next=2
2 NAT(2) next=3
3 COMPARISON_CONDITION(<) next=4
4 IF_ELSE_INSTRUCTION false=7 true=5
5 ID(n) next=6
6 RETURN_INSTRUCTION next=7
7 JOIN next=8
8 NAT(0) next=9
9 RETURN_INSTRUCTION next=10
10 END
`,
		},
		{
			"if else",
			"Main() { if (true) { X := 1 } else { X := 2 } return X }",
			`0 BEGIN(Main()) next=1
1 BOOLEAN(true) next=2
2 IF_ELSE_INSTRUCTION false=5 true=3
3 NAT(1) next=4
4 DECLARATION_INSTRUCTION(X) next=7
5 NAT(2) next=6
6 DECLARATION_INSTRUCTION(X) next=7
7 JOIN next=8
8 ID(X) next=9
9 RETURN_INSTRUCTION next=10
10 END
`,
		},
		{
			"while",
			"Main() { X := 0; while (X < 3) { X := X + 1 } return X }",
			`0 BEGIN(Main()) next=1
1 NAT(0) next=2
2 DECLARATION_INSTRUCTION(X) next=3
3 ID(X) next=4
4 NAT(3) next=5
5 COMPARISON_CONDITION(<) next=10
6 ID(X) next=7
7 NAT(1) next=8
8 ADD_SUB_EXPRESSION(+) next=9
9 DECLARATION_INSTRUCTION(X) next=3
10 WHILE_INSTRUCTION loop=6 next=11
11 ID(X) next=12
12 RETURN_INSTRUCTION next=13
13 END
`,
		},
		{
			"empty loops",
			"Main() { repeat (3) { } while (false) { } return 0 }",
			`0 BEGIN(Main()) next=1
1 NAT(3) next=2
2 REPEAT_INSTRUCTION loop=2 next=3
3 BOOLEAN(false) next=4
4 WHILE_INSTRUCTION loop=3 next=5
5 NAT(0) next=6
6 RETURN_INSTRUCTION next=7
7 END
`,
		},
		{
			"foreach",
			"Main() { S := 0; foreach (t in x + y) { S := S + t } return S }",
			`0 BEGIN(Main()) next=1
1 NAT(0) next=2
2 DECLARATION_INSTRUCTION(S) next=3
3 SYM(x) next=4
4 SYM(y) next=5
5 ADD_SUB_EXPRESSION(+) next=10
6 ID(S) next=7
7 ID(t) next=8
8 ADD_SUB_EXPRESSION(+) next=9
9 DECLARATION_INSTRUCTION(S) next=10
10 FOREACH_INSTRUCTION(t) loop=6 next=11
11 ID(S) next=12
12 RETURN_INSTRUCTION next=13
13 END
`,
		},
		{
			"nested loop exits into outer loop",
			"Main() { repeat (2) { repeat (3) { } } return 0 }",
			`0 BEGIN(Main()) next=1
1 NAT(2) next=4
2 NAT(3) next=3
3 REPEAT_INSTRUCTION loop=3 next=4
4 REPEAT_INSTRUCTION loop=2 next=5
5 NAT(0) next=6
6 RETURN_INSTRUCTION next=7
7 END
`,
		},
		{
			"call arguments in source order",
			"Main() { return Substitute(x, x, 2) }",
			`0 BEGIN(Main()) next=1
1 SYM(x) next=2
2 SYM(x) next=3
3 NAT(2) next=4
4 FUNCTION_CALL_EXPRESSION(Substitute/3) next=5
5 RETURN_INSTRUCTION next=6
6 END
`,
		},
		{
			"missing return falls into END",
			"Main() { X := 1 }",
			`0 BEGIN(Main()) next=1
1 NAT(1) next=2
2 DECLARATION_INSTRUCTION(X) next=3
3 END
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := thread(t, tt.input)
			if got := listing(prog["Main"]); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestThreadReachability(t *testing.T) {
	src := `
A() { return 1 }
B() { return A() + A() }
Unused() { return 0 }
Fib(n) { if (n < 2) { return n } return Fib(n - 1) + Fib(n - 2) }
Expand(e) { return e }
Main() { return B() + Fib(3) + Expand(x) + Missing(1) }
`
	prog := thread(t, src)
	got := prog.Functions()
	want := []string{"A", "B", "Fib", "Main"}
	if !slices.Equal(got, want) {
		t.Errorf("got functions %v, want %v", got, want)
	}

	sig, ok := prog.Signature("Fib")
	if !ok || sig.Name != "Fib" || !slices.Equal(sig.Parameters, []string{"n"}) {
		t.Errorf("unexpected Fib signature %v", sig)
	}
}

func TestThreadCustomBuiltins(t *testing.T) {
	src := "Double(e) { return 2 * e } Main() { return Double(x) }"
	prog := thread(t, src)
	if _, ok := prog["Double"]; !ok {
		t.Error("user function should be threaded")
	}
	prog = thread(t, src, threading.WithBuiltins("Double"))
	if _, ok := prog["Double"]; ok {
		t.Error("built-in should shadow the user function")
	}
}

func TestThreadEntry(t *testing.T) {
	prog := thread(t, "Start(n) { return n }", threading.WithEntry("Start"))
	if _, ok := prog["Start"]; !ok {
		t.Fatalf("entry not threaded: %v", prog.Functions())
	}
}

func TestThreadErrors(t *testing.T) {
	tests := []struct {
		name  string
		root  func(t *testing.T) *types.Node
		code  types.ErrorCode
		token string
	}{
		{
			name: "missing entry",
			root: func(t *testing.T) *types.Node {
				root, _ := parser.Parse("Other() { return 1 }")
				return root
			},
			code:  types.ErrEntryNotFound,
			token: "Main",
		},
		{
			name: "duplicate function",
			root: func(t *testing.T) *types.Node {
				root, _ := parser.Parse("F() { return 1 } F() { return 2 } Main() { return F() }")
				return root
			},
			code:  types.ErrDuplicateFunction,
			token: "F",
		},
		{
			name: "not a program",
			root: func(t *testing.T) *types.Node {
				return types.NewNode(types.KindBlock, nil)
			},
			code: types.ErrNotProgram,
		},
		{
			name: "nil root",
			root: func(t *testing.T) *types.Node {
				return nil
			},
			code: types.ErrNotProgram,
		},
		{
			name: "marker inside a function",
			root: func(t *testing.T) *types.Node {
				block := types.NewNode(types.KindBlock, nil, types.NewNode(types.KindJoin, nil))
				fn := types.NewNode(types.KindFunction, types.Signature{Name: "Main"}, block)
				return types.NewNode(types.KindProgram, nil, fn)
			},
			code: types.ErrNotProgram,
		},
		{
			name: "return without operand",
			root: func(t *testing.T) *types.Node {
				block := types.NewNode(types.KindBlock, nil, types.NewNode(types.KindReturn, nil))
				fn := types.NewNode(types.KindFunction, types.Signature{Name: "Main"}, block)
				return types.NewNode(types.KindProgram, nil, fn)
			},
			code: types.ErrNotProgram,
		},
		{
			name: "if without body",
			root: func(t *testing.T) *types.Node {
				cond := types.NewNode(types.KindBoolean, types.Literal("true"))
				block := types.NewNode(types.KindBlock, nil, types.NewNode(types.KindIf, nil, cond))
				fn := types.NewNode(types.KindFunction, types.Signature{Name: "Main"}, block)
				return types.NewNode(types.KindProgram, nil, fn)
			},
			code: types.ErrNotProgram,
		},
		{
			name: "call arity mismatch",
			root: func(t *testing.T) *types.Node {
				call := types.NewNode(types.KindCall, types.Call{Name: "Expand", Arity: 2}, types.NewNode(types.KindSym, types.Name("x")))
				block := types.NewNode(types.KindBlock, nil, types.NewNode(types.KindReturn, nil, call))
				fn := types.NewNode(types.KindFunction, types.Signature{Name: "Main"}, block)
				return types.NewNode(types.KindProgram, nil, fn)
			},
			code: types.ErrNotProgram,
		},
		{
			name: "nil statement",
			root: func(t *testing.T) *types.Node {
				block := types.NewNode(types.KindBlock, nil, nil)
				fn := types.NewNode(types.KindFunction, types.Signature{Name: "Main"}, block)
				return types.NewNode(types.KindProgram, nil, fn)
			},
			code: types.ErrNotProgram,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := threading.Thread(tt.root(t))
			var terr *types.Error
			if !errors.As(err, &terr) {
				t.Fatalf("expected *types.Error, got %v", err)
			}
			if terr.Code != tt.code {
				t.Errorf("got code %s, want %s (%v)", terr.Code, tt.code, err)
			}
			if terr.Token != tt.token {
				t.Errorf("got token %q, want %q", terr.Token, tt.token)
			}
		})
	}
}

func TestThreadLeavesTreeUnchanged(t *testing.T) {
	root, err := parser.Parse("Main(n) { if (n < 1) { return 0 } repeat (n) { } return n }")
	if err != nil {
		t.Fatal(err)
	}
	before := root.Tree()
	if _, err := threading.Thread(root); err != nil {
		t.Fatal(err)
	}
	if root.Tree() != before {
		t.Errorf("tree was modified:\n%s", root.Tree())
	}
}

func BenchmarkThread(b *testing.B) {
	root, err := parser.Parse(`
Fib(n) { if (n < 2) { return n } return Fib(n - 1) + Fib(n - 2) }
Main(n) { s := 0; repeat (n) { s := s + Fib(n) } foreach (t in Expand((x + 1)^5)) { s := s + t } return s }
`)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := threading.Thread(root); err != nil {
			b.Fatal(err)
		}
	}
}
