package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sandrolain/luppolo/pkg/parser"
	"github.com/sandrolain/luppolo/pkg/types"
)

// Helper functions

func parseProgram(t *testing.T, src string) *types.Node {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", src, err)
	}
	if err := root.Validate(); err != nil {
		t.Fatalf("Parsed tree for %q is malformed: %v", src, err)
	}
	return root
}

// sexpr renders a node compactly as KIND(value)[children].
func sexpr(n *types.Node) string {
	var b strings.Builder
	b.WriteString(n.String())
	if len(n.Children) > 0 {
		b.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(sexpr(c))
		}
		b.WriteByte(']')
	}
	return b.String()
}

// returned parses Main() { return <expr> } and renders the returned node.
func returned(t *testing.T, expr string) string {
	t.Helper()
	root := parseProgram(t, "Main() { return "+expr+" }")
	return sexpr(root.Children[0].Children[0].Children[0].Children[0])
}

func TestParseTree(t *testing.T) {
	root := parseProgram(t, "Main() { return 2 + 3 }")
	want := "PROGRAM\n" +
		"└──FUNCTION(Main())\n" +
		"   └──BLOCK\n" +
		"      └──RETURN_INSTRUCTION\n" +
		"         └──ADD_SUB_EXPRESSION(+)\n" +
		"            ├──NAT(2)\n" +
		"            └──NAT(3)\n"
	if got := root.Tree(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"precedence", "1 + 2 * 3", "ADD_SUB_EXPRESSION(+)[NAT(1) MUL_DIV_EXPRESSION(*)[NAT(2) NAT(3)]]"},
		{"left associative", "a - b - c", "ADD_SUB_EXPRESSION(-)[ADD_SUB_EXPRESSION(-)[SYM(a) SYM(b)] SYM(c)]"},
		{"division", "x / 2 * y", "MUL_DIV_EXPRESSION(*)[MUL_DIV_EXPRESSION(/)[SYM(x) NAT(2)] SYM(y)]"},
		{"power right associative", "2^3^2", "POW_EXPRESSION[NAT(2) POW_EXPRESSION[NAT(3) NAT(2)]]"},
		{"unary binds looser than power", "-x^2", "UNARY_EXPRESSION(-)[POW_EXPRESSION[SYM(x) NAT(2)]]"},
		{"negative exponent", "x^-1", "POW_EXPRESSION[SYM(x) UNARY_EXPRESSION(-)[NAT(1)]]"},
		{"unary plus", "+x", "UNARY_EXPRESSION(+)[SYM(x)]"},
		{"double negation", "- -x", "UNARY_EXPRESSION(-)[UNARY_EXPRESSION(-)[SYM(x)]]"},
		{"parentheses", "(x + 1)^2", "POW_EXPRESSION[ADD_SUB_EXPRESSION(+)[SYM(x) NAT(1)] NAT(2)]"},
		{"call", "Expand((x+1)^2)", "FUNCTION_CALL_EXPRESSION(Expand/1)[POW_EXPRESSION[ADD_SUB_EXPRESSION(+)[SYM(x) NAT(1)] NAT(2)]]"},
		{"call without arguments", "Input()", "FUNCTION_CALL_EXPRESSION(Input/0)"},
		{"call with arguments", "Substitute(x, x, 2)", "FUNCTION_CALL_EXPRESSION(Substitute/3)[SYM(x) SYM(x) NAT(2)]"},
		{"upper-case name is a variable", "N", "ID(N)"},
		{"multi-letter symbol", "abc", "SYM(abc)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := returned(t, tt.input); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParseNameResolution(t *testing.T) {
	src := `Main(n) {
		y := x + n      # x is still a symbol here
		x := x + 1      # the right side sees the symbol x
		foreach (t in y) {
			z := t
		}
		return x * y * z * t * w
	}`
	root := parseProgram(t, src)
	block := root.Children[0].Children[0]

	tests := []struct {
		index int
		want  string
	}{
		{0, "DECLARATION_INSTRUCTION(y)[ADD_SUB_EXPRESSION(+)[SYM(x) ID(n)]]"},
		{1, "DECLARATION_INSTRUCTION(x)[ADD_SUB_EXPRESSION(+)[SYM(x) NAT(1)]]"},
		{2, "FOREACH_INSTRUCTION(t)[ID(y) BLOCK[DECLARATION_INSTRUCTION(z)[ID(t)]]]"},
		{3, "RETURN_INSTRUCTION[MUL_DIV_EXPRESSION(*)[MUL_DIV_EXPRESSION(*)[MUL_DIV_EXPRESSION(*)[MUL_DIV_EXPRESSION(*)[ID(x) ID(y)] ID(z)] ID(t)] SYM(w)]]"},
	}
	for _, tt := range tests {
		if got := sexpr(block.Children[tt.index]); got != tt.want {
			t.Errorf("instruction %d:\ngot  %s\nwant %s", tt.index, got, tt.want)
		}
	}
}

func TestParseInstructions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"if",
			"if (true) { return 1 }",
			"IF_INSTRUCTION[BOOLEAN(true) BLOCK[RETURN_INSTRUCTION[NAT(1)]]]",
		},
		{
			"if else",
			"if (1 < 2) { return 1 } else { return 2 }",
			"IF_ELSE_INSTRUCTION[COMPARISON_CONDITION(<)[NAT(1) NAT(2)] BLOCK[RETURN_INSTRUCTION[NAT(1)]] BLOCK[RETURN_INSTRUCTION[NAT(2)]]]",
		},
		{
			"else if",
			"if (false) { } else if (true) { return 3 }",
			"IF_ELSE_INSTRUCTION[BOOLEAN(false) BLOCK BLOCK[IF_INSTRUCTION[BOOLEAN(true) BLOCK[RETURN_INSTRUCTION[NAT(3)]]]]]",
		},
		{
			"repeat",
			"repeat (3) { }",
			"REPEAT_INSTRUCTION[NAT(3) BLOCK]",
		},
		{
			"while",
			"while (not false) { }",
			"WHILE_INSTRUCTION[NOT_CONDITION[BOOLEAN(false)] BLOCK]",
		},
		{
			"logical precedence",
			"while (true or false and not true) { }",
			"WHILE_INSTRUCTION[OR_CONDITION[BOOLEAN(true) AND_CONDITION[BOOLEAN(false) NOT_CONDITION[BOOLEAN(true)]]] BLOCK]",
		},
		{
			"symbol operators",
			"while (!(true || false) && 1 == 1) { }",
			"WHILE_INSTRUCTION[AND_CONDITION[NOT_CONDITION[OR_CONDITION[BOOLEAN(true) BOOLEAN(false)]] COMPARISON_CONDITION(==)[NAT(1) NAT(1)]] BLOCK]",
		},
		{
			"parenthesized comparison operand",
			"while ((1 + 2) * 3 >= 4) { }",
			"WHILE_INSTRUCTION[COMPARISON_CONDITION(>=)[MUL_DIV_EXPRESSION(*)[ADD_SUB_EXPRESSION(+)[NAT(1) NAT(2)] NAT(3)] NAT(4)] BLOCK]",
		},
		{
			"nested parenthesized condition",
			"while (((1 < 2))) { }",
			"WHILE_INSTRUCTION[COMPARISON_CONDITION(<)[NAT(1) NAT(2)] BLOCK]",
		},
		{
			"semicolons",
			"X := 1; ; Y := 2;",
			"DECLARATION_INSTRUCTION(X)[NAT(1)]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parseProgram(t, "Main() { "+tt.input+" }")
			if got := sexpr(root.Children[0].Children[0].Children[0]); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParseFunctions(t *testing.T) {
	src := `
// Fibonacci numbers
Fib(n) {
	if (n < 2) { return n }
	return Fib(n - 1) + Fib(n - 2)
}

Main(n, m) { return Fib(n) }
`
	root := parseProgram(t, src)
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(root.Children))
	}
	sig := root.Children[1].Value.(types.Signature)
	if sig.Name != "Main" || strings.Join(sig.Parameters, ",") != "n,m" {
		t.Errorf("unexpected signature %v", sig)
	}

	empty := parseProgram(t, "")
	if len(empty.Children) != 0 {
		t.Errorf("empty source should have no functions")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  types.ErrorCode
	}{
		{"bad character", "Main() { return 1 $ 2 }", types.ErrUnexpectedChar},
		{"single equals", "Main() { x = 1 }", types.ErrUnexpectedChar},
		{"missing expression", "Main() { return }", types.ErrUnexpectedToken},
		{"unterminated block", "Main() { return 1", types.ErrUnexpectedEnd},
		{"missing parenthesis", "Main( { }", types.ErrUnexpectedToken},
		{"missing comparison", "Main() { if (x) { } }", types.ErrUnexpectedToken},
		{"missing assign", "Main() { x 1 }", types.ErrExpectedToken},
		{"duplicate parameter", "F(a, a) { return a }", types.ErrUnexpectedToken},
		{"keyword as name", "Main() { if := 1 }", types.ErrExpectedToken},
		{"expression statement", "Main() { 1 }", types.ErrUnexpectedToken},
		{"boolean in expression", "Main() { return true }", types.ErrUnexpectedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			var perr *types.Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *types.Error, got %v", err)
			}
			if perr.Code != tt.code {
				t.Errorf("got %s (%v), want %s", perr.Code, perr, tt.code)
			}
			if perr.Position < 0 || perr.Position > len(tt.input) {
				t.Errorf("position %d outside input", perr.Position)
			}
		})
	}
}

func TestParseMaxDepth(t *testing.T) {
	src := "Main() { return " + strings.Repeat("(", 50) + "1" + strings.Repeat(")", 50) + " }"
	if _, err := parser.Parse(src); err != nil {
		t.Fatalf("default depth should accept: %v", err)
	}
	if _, err := parser.Parse(src, parser.WithMaxDepth(20)); err == nil {
		t.Fatal("expected depth error")
	}
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"Main() { return 2 + 3 }",
		"Main(n) { x := 1; repeat(n) { x := x * 2 } return x }",
		"Main() { if (true) { return 1 } return 2 }",
		"Main() { foreach (t in x + y) { z := t } return Expand((x+1)^2) }",
		"Main() { while ((1 + 2) < 3 and not false) { } return -x^-2 }",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		root, err := parser.Parse(src)
		if err != nil {
			var perr *types.Error
			if !errors.As(err, &perr) {
				t.Fatalf("non-structured error: %v", err)
			}
			return
		}
		if err := root.Validate(); err != nil {
			t.Fatalf("parser produced malformed tree for %q: %v", src, err)
		}
	})
}
