package luppolo_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/cache"
	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/functions"
	"github.com/sandrolain/luppolo/pkg/types"
)

var x = expr.Sym("x")

func TestExec(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []expr.Expr
		opts  []luppolo.Option
		want  expr.Expr
	}{
		{
			name:  "expand",
			input: "Main() { return Expand((x + 1)^2) }",
			want:  expr.Add(expr.Int(1), expr.Mul(expr.Int(2), x), expr.Pow(x, expr.Int(2))),
		},
		{
			name:  "argument",
			input: "Main(n) { return n^2 }",
			args:  []expr.Expr{expr.Int(4)},
			want:  expr.Int(16),
		},
		{
			name:  "optimized",
			input: "Main() { if (true) { return 1 } return 2 }",
			opts:  []luppolo.Option{luppolo.WithOptimize(true)},
			want:  expr.Int(1),
		},
		{
			name:  "custom entry",
			input: "Start() { return x } Main() { return 0 }",
			opts:  []luppolo.Option{luppolo.WithEntry("Start")},
			want:  x,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := luppolo.Exec(context.Background(), tt.input, tt.args, tt.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if !expr.Equal(got, tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []luppolo.Option
		code  types.ErrorCode
	}{
		{"syntax", "Main( { }", nil, types.ErrUnexpectedToken},
		{"no entry", "F() { return 1 }", nil, types.ErrEntryNotFound},
		{"missing custom entry", "Main() { return 1 }", []luppolo.Option{luppolo.WithEntry("Start")}, types.ErrEntryNotFound},
		{"duplicate", "Main() { return 1 } Main() { return 2 }", nil, types.ErrDuplicateFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := luppolo.Compile(tt.input, tt.opts...)
			var lerr *types.Error
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *types.Error, got %v", err)
			}
			if lerr.Code != tt.code {
				t.Errorf("got %s (%v), want %s", lerr.Code, err, tt.code)
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	luppolo.MustCompile("Main(")
}

func TestCompileOnceRunMany(t *testing.T) {
	prog := luppolo.MustCompile("Main(n) { x := 1; repeat(n) { x := x * 2 } return x }")
	for n, want := range map[int64]int64{0: 1, 1: 2, 10: 1024} {
		got, err := luppolo.Run(context.Background(), prog, []expr.Expr{expr.Int(n)})
		if err != nil {
			t.Fatal(err)
		}
		if !expr.Equal(got, expr.Int(want)) {
			t.Errorf("n=%d: got %s, want %d", n, got, want)
		}
	}
}

func TestCaching(t *testing.T) {
	engine := luppolo.New(luppolo.WithCaching(true), luppolo.WithCacheSize(4))
	if engine.Cache() == nil {
		t.Fatal("cache should be enabled")
	}
	src := "Main() { return 1 }"
	for i := 0; i < 3; i++ {
		if _, err := engine.Exec(context.Background(), src); err != nil {
			t.Fatal(err)
		}
	}
	if engine.Cache().Len() != 1 {
		t.Errorf("got %d cached programs, want 1", engine.Cache().Len())
	}

	if _, err := engine.Compile("Main( {"); err == nil {
		t.Error("expected a syntax error")
	}
	if engine.Cache().Len() != 1 {
		t.Errorf("errors must not be cached, got %d entries", engine.Cache().Len())
	}

	if luppolo.New().Cache() != nil {
		t.Error("caching should be off by default")
	}

	shared := cache.New(2)
	a := luppolo.New(luppolo.WithCache(shared))
	b := luppolo.New(luppolo.WithCache(shared), luppolo.WithOptimize(true))
	_, _ = a.Compile(src)
	_, _ = b.Compile(src)
	if shared.Len() != 2 {
		t.Errorf("optimized and plain builds should be cached separately, got %d", shared.Len())
	}
}

func TestCustomFunctions(t *testing.T) {
	double := functions.CustomFunctionDef{
		Name:    "Double",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(ctx context.Context, args ...expr.Expr) (expr.Expr, error) {
			return expr.Mul(expr.Int(2), args[0]), nil
		},
	}
	got, err := luppolo.Exec(context.Background(), "Main() { return Double(x) }", nil,
		luppolo.WithFunctions(double))
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Equal(got, expr.Mul(expr.Int(2), x)) {
		t.Errorf("got %s", got)
	}
}

func TestInputOutput(t *testing.T) {
	var out bytes.Buffer
	got, err := luppolo.Exec(context.Background(), "Main() { return Print(Input() + 1) }", nil,
		luppolo.WithStdin(strings.NewReader("41\n")),
		luppolo.WithStdout(&out))
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Equal(got, expr.Int(42)) || out.String() != "42\n" {
		t.Errorf("got %s and output %q", got, out.String())
	}
}

func TestInputAcrossExecs(t *testing.T) {
	stdin := strings.NewReader("1\n2\n")
	for i, want := range []int64{1, 2} {
		got, err := luppolo.Exec(context.Background(), "Main() { return Input() }", nil, luppolo.WithStdin(stdin))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !expr.Equal(got, expr.Int(want)) {
			t.Errorf("run %d: got %s, want %d", i, got, want)
		}
	}
}

func TestTimeout(t *testing.T) {
	_, err := luppolo.Exec(context.Background(), "Main() { while (true) { } return 0 }", nil,
		luppolo.WithTimeout(20*time.Millisecond))
	var lerr *types.Error
	if !errors.As(err, &lerr) || lerr.Code != types.ErrCanceled {
		t.Fatalf("expected R0102, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected a deadline error in the chain, got %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	_, err := luppolo.Exec(context.Background(), "F() { return F() } Main() { return F() }", nil,
		luppolo.WithMaxDepth(20))
	var lerr *types.Error
	if !errors.As(err, &lerr) || lerr.Code != types.ErrStackOverflow {
		t.Fatalf("expected R0101, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(luppolo.Version(), "v") {
		t.Errorf("unexpected version %q", luppolo.Version())
	}
}

func BenchmarkExecCached(b *testing.B) {
	engine := luppolo.New(luppolo.WithCaching(true))
	ctx := context.Background()
	src := "Main(n) { return DerivePolynomial((x + n)^5, x) }"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Exec(ctx, src, expr.Int(3)); err != nil {
			b.Fatal(err)
		}
	}
}

func FuzzExec(f *testing.F) {
	seeds := []string{
		"Main() { return 2 + 3 }",
		"Main() { if (true) { return 1 } return 2 }",
		"Main() { X := 1; while (X < 10) { X := X * 2 } return X }",
		"Main() { return Expand((x + 1)^2) / 0 }",
		"F(n) { return F(n) } Main() { return F(1) }",
		"Main() { foreach (t in x * y) { } }",
		"Main(",
	}
	for _, s := range seeds {
		f.Add(s, false)
		f.Add(s, true)
	}
	f.Fuzz(func(t *testing.T, src string, optimize bool) {
		_, _ = luppolo.Exec(context.Background(), src, nil,
			luppolo.WithOptimize(optimize),
			luppolo.WithMaxDepth(64),
			luppolo.WithTimeout(50*time.Millisecond),
			luppolo.WithStdin(strings.NewReader("")),
			luppolo.WithStdout(io.Discard))
	})
}
