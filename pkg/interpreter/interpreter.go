// Package interpreter executes threaded Luppolo programs.
//
// The interpreter is a stack machine. Each function call gets a fresh
// activation made of an instruction pointer, an operand stack and a table
// of local variables. Instructions are dispatched by kind; after each one
// the pointer follows the instruction's next edge unless the handler chose
// another edge (true, false or loop). A call to a user function runs a new
// activation recursively; a call to a built-in runs Go code on
// [expr.Expr] values.
//
// Runtime values are exact symbolic expressions. Conditions produce
// booleans that only branch instructions consume.
//
// # Example
//
//	prog, _ := threading.Thread(root)
//	in := interpreter.New()
//	result, err := in.Run(ctx, prog, "Main", expr.Int(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result)
//
// Every failure aborts the run and is reported as a *types.Error naming the
// function that was executing and, for built-in failures, the built-in.
package interpreter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/functions"
	"github.com/sandrolain/luppolo/pkg/types"
)

// DefaultMaxDepth bounds the nesting of user function calls.
const DefaultMaxDepth = 10000

// Interpreter runs threaded programs. It is safe for concurrent use; every
// run gets its own activations.
type Interpreter struct {
	opts   Options
	logger *slog.Logger
	custom map[string]functions.CustomFunctionDef

	inputMu sync.Mutex
	input   io.ByteReader
	outMu   sync.Mutex
}

// Options configures the interpreter.
type Options struct {
	// MaxDepth limits the nesting of user function calls.
	MaxDepth int
	// Trace logs every executed instruction at debug level.
	Trace bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Stdin is read by the Input built-in, one line per call. Nothing past
	// the line is consumed, so several runs may share one reader.
	Stdin io.Reader
	// Stdout is written by the Print built-in.
	Stdout io.Writer
	// CustomFunctions are extra built-ins. They take precedence over the
	// standard ones with the same name.
	CustomFunctions []functions.CustomFunctionDef
}

// Option configures the interpreter.
type Option func(*Options)

// WithMaxDepth sets the maximum call depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithTrace enables or disables instruction tracing.
func WithTrace(enabled bool) Option {
	return func(opts *Options) {
		opts.Trace = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithStdin sets the reader used by Input.
func WithStdin(r io.Reader) Option {
	return func(opts *Options) {
		opts.Stdin = r
	}
}

// WithStdout sets the writer used by Print.
func WithStdout(w io.Writer) Option {
	return func(opts *Options) {
		opts.Stdout = w
	}
}

// WithFunctions registers custom built-ins.
func WithFunctions(defs ...functions.CustomFunctionDef) Option {
	return func(opts *Options) {
		opts.CustomFunctions = append(opts.CustomFunctions, defs...)
	}
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	options := Options{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}

	custom := make(map[string]functions.CustomFunctionDef, len(options.CustomFunctions))
	for _, def := range options.CustomFunctions {
		custom[def.Name] = def
	}

	return &Interpreter{
		opts:   options,
		logger: options.Logger,
		custom: custom,
		input:  byteReader(options.Stdin),
	}
}

// Builtins returns the names of the custom built-ins. The linearizer must
// treat them like the standard ones.
func (in *Interpreter) Builtins() []string {
	names := make([]string, 0, len(in.custom))
	for name := range in.custom {
		names = append(names, name)
	}
	return names
}

// run holds the state of one invocation of Run.
type run struct {
	in    *Interpreter
	prog  types.Program
	depth int
}

// Run calls the entry function of prog with args and returns its result.
func (in *Interpreter) Run(ctx context.Context, prog types.Program, entry string, args ...expr.Expr) (expr.Expr, error) {
	if err := prog.Validate(); err != nil {
		return expr.Expr{}, err
	}
	if _, ok := prog[entry]; !ok {
		return expr.Expr{}, types.NewError(types.ErrEntryNotFound,
			fmt.Sprintf("%s function not found", entry), -1).WithToken(entry)
	}

	values := make([]Value, len(args))
	for i, a := range args {
		values[i] = a
	}

	r := &run{in: in, prog: prog}
	result, err := r.call(ctx, entry, values)
	if err != nil {
		return expr.Expr{}, err
	}
	e, ok := result.(expr.Expr)
	if !ok {
		return expr.Expr{}, types.NewError(types.ErrNotExpression,
			fmt.Sprintf("returned a %s instead of an expression", describe(result)), -1).InFunction(entry)
	}
	return e, nil
}

// ParseArgument coerces a command-line argument into an expression: a
// string of digits becomes a Number and a single lower-case letter becomes
// a Symbol.
func ParseArgument(s string) (expr.Expr, error) {
	if e, ok := parseLiteral(s); ok {
		return e, nil
	}
	return expr.Expr{}, types.NewError(types.ErrInvalidArgument,
		fmt.Sprintf("invalid argument %q", s), -1).WithToken(s)
}

// ParseArguments coerces every argument with ParseArgument.
func ParseArguments(args []string) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(args))
	for i, a := range args {
		e, err := ParseArgument(a)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func parseLiteral(s string) (expr.Expr, bool) {
	if s == "" {
		return expr.Expr{}, false
	}
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		return expr.Sym(s), true
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return expr.Expr{}, false
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return expr.Expr{}, false
	}
	return expr.Rat(new(big.Rat).SetInt(n)), true
}
