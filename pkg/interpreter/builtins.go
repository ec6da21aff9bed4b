package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/functions"
	"github.com/sandrolain/luppolo/pkg/types"
)

// builtinImpl is the implementation of a built-in. args are in source order.
type builtinImpl func(ctx context.Context, in *Interpreter, args []expr.Expr) (expr.Expr, error)

// builtinDef defines a built-in function.
type builtinDef struct {
	Name  string
	Arity functions.Arity
	Impl  builtinImpl
}

func (b *builtinDef) accepts(n int) bool {
	return n >= b.Arity.Min && (b.Arity.Max == functions.Variadic || n <= b.Arity.Max)
}

func (b *builtinDef) expected() string {
	switch {
	case b.Arity.Max == functions.Variadic:
		return fmt.Sprintf("at least %d", b.Arity.Min)
	case b.Arity.Min == b.Arity.Max:
		return fmt.Sprint(b.Arity.Min)
	default:
		return fmt.Sprintf("%d to %d", b.Arity.Min, b.Arity.Max)
	}
}

func (b *builtinDef) impl(ctx context.Context, in *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return b.Impl(ctx, in, args)
}

var (
	builtinFunctions     map[string]*builtinDef
	builtinFunctionsOnce sync.Once
)

// initBuiltinFunctions initializes the standard built-in registry.
func initBuiltinFunctions() {
	builtinFunctionsOnce.Do(func() {
		impls := map[string]builtinImpl{
			"Expand":           fnExpand,
			"Substitute":       fnSubstitute,
			"Eval":             fnEval,
			"SimpleDerive":     fnSimpleDerive,
			"DerivePolynomial": fnDerivePolynomial,
			"Input":            fnInput,
			"Print":            fnPrint,
		}
		builtinFunctions = make(map[string]*builtinDef, len(impls))
		for _, name := range functions.Standard() {
			arity, _ := functions.StandardArity(name)
			builtinFunctions[name] = &builtinDef{Name: name, Arity: arity, Impl: impls[name]}
		}
	})
}

// builtin looks up a custom built-in first, then a standard one.
func (in *Interpreter) builtin(name string) (*builtinDef, bool) {
	if def, ok := in.custom[name]; ok {
		return &builtinDef{
			Name:  def.Name,
			Arity: functions.Arity{Min: def.MinArgs, Max: def.MaxArgs},
			Impl: func(ctx context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
				return def.Fn(ctx, args...)
			},
		}, true
	}
	initBuiltinFunctions()
	def, ok := builtinFunctions[name]
	return def, ok
}

// builtinError converts a built-in failure into a *types.Error, mapping the
// algebra engine's sentinel errors to error codes.
func builtinError(err error) *types.Error {
	var e *types.Error
	if errors.As(err, &e) {
		return e
	}
	code := types.ErrBuiltinFailed
	switch {
	case errors.Is(err, expr.ErrDivisionByZero):
		code = types.ErrDivisionByZero
	case errors.Is(err, expr.ErrNotSymbol), errors.Is(err, expr.ErrNotNumber):
		code = types.ErrInvalidArgument
	case errors.Is(err, expr.ErrArgumentCount):
		code = types.ErrArgumentCount
	}
	return types.NewError(code, err.Error(), -1).WithCause(err)
}

func fnExpand(_ context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return args[0].Expand(), nil
}

func fnSubstitute(_ context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return args[0].Substitute(args[1], args[2])
}

func fnEval(_ context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return args[0].Eval(args[1:]...)
}

func fnSimpleDerive(_ context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return args[0].SimpleDerive(args[1])
}

func fnDerivePolynomial(_ context.Context, _ *Interpreter, args []expr.Expr) (expr.Expr, error) {
	return args[0].DerivePolynomial(args[1])
}

// fnInput reads one line and coerces it like a command-line argument.
func fnInput(_ context.Context, in *Interpreter, _ []expr.Expr) (expr.Expr, error) {
	in.inputMu.Lock()
	line, err := readLine(in.input)
	in.inputMu.Unlock()
	if err != nil && (err != io.EOF || line == "") {
		return expr.Expr{}, types.NewError(types.ErrInvalidInput, "cannot read input", -1).WithCause(err)
	}

	line = strings.TrimRight(line, "\r\n")
	e, ok := parseLiteral(line)
	if !ok {
		return expr.Expr{}, types.NewError(types.ErrInvalidInput, fmt.Sprintf("invalid input %q", line), -1).WithToken(line)
	}
	return e, nil
}

// readLine reads up to and including the next newline.
func readLine(r io.ByteReader) (string, error) {
	var b strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			return b.String(), err
		}
		b.WriteByte(c)
		if c == '\n' {
			return b.String(), nil
		}
	}
}

// byteReader returns r itself when it reads bytes already, or an unbuffered
// adapter that never reads past the byte asked for.
func byteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &singleByteReader{r: r}
}

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	for {
		n, err := s.r.Read(s.buf[:])
		if n == 1 {
			return s.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// fnPrint writes its argument on its own line and returns it.
func fnPrint(_ context.Context, in *Interpreter, args []expr.Expr) (expr.Expr, error) {
	in.outMu.Lock()
	defer in.outMu.Unlock()
	if _, err := fmt.Fprintln(in.opts.Stdout, args[0].String()); err != nil {
		return expr.Expr{}, types.NewError(types.ErrBuiltinFailed, "cannot write output", -1).WithCause(err)
	}
	return args[0], nil
}
