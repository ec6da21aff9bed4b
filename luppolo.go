// Package luppolo compiles and runs programs written in Luppolo, a small
// imperative language whose values are exact symbolic expressions.
//
// A program is a set of functions. Source text is parsed into a tree,
// optionally simplified by the optimizer, threaded into a flat instruction
// list per function and executed by a stack-machine interpreter:
//
//	source ─▶ parser ─▶ optimizer (optional) ─▶ threading ─▶ interpreter
//
// # Quick Start
//
//	// Compile and run in a single call
//	result, err := luppolo.Exec(ctx, "Main() { return Expand((x + 1)^2) }", nil)
//	// result == 1 + 2 * x + x^2
//
//	// Compile once, run many times
//	prog, err := luppolo.Compile(src, luppolo.WithOptimize(true))
//	r1, _ := luppolo.Run(ctx, prog, []expr.Expr{expr.Int(10)})
//	r2, _ := luppolo.Run(ctx, prog, []expr.Expr{expr.Sym("y")})
//
//	// Reuse an engine with cached compilations
//	engine := luppolo.New(luppolo.WithCaching(true), luppolo.WithMaxDepth(500))
//	result, err := engine.Exec(ctx, src, expr.Int(3))
//
// Compiled programs are plain data ([types.Program]) and can be stored as
// JSON or YAML and run later.
//
// # More Information
//
//   - Algebra: github.com/sandrolain/luppolo/pkg/expr
//   - Parser: github.com/sandrolain/luppolo/pkg/parser
//   - Optimizer: github.com/sandrolain/luppolo/pkg/optimizer
//   - Threading: github.com/sandrolain/luppolo/pkg/threading
//   - Interpreter: github.com/sandrolain/luppolo/pkg/interpreter
//   - Types: github.com/sandrolain/luppolo/pkg/types
package luppolo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sandrolain/luppolo/pkg/cache"
	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/functions"
	"github.com/sandrolain/luppolo/pkg/interpreter"
	"github.com/sandrolain/luppolo/pkg/optimizer"
	"github.com/sandrolain/luppolo/pkg/parser"
	"github.com/sandrolain/luppolo/pkg/threading"
	"github.com/sandrolain/luppolo/pkg/types"
)

// Version returns the current version of Luppolo.
func Version() string {
	return "v0.1.0-dev"
}

// Engine compiles and runs programs with a fixed configuration.
// It is safe for concurrent use.
type Engine struct {
	opts   Options
	logger *slog.Logger
	cache  *cache.Cache // non-nil when caching is enabled
	interp *interpreter.Interpreter
}

// Options configures an Engine.
type Options struct {
	// Optimize simplifies the tree before threading.
	Optimize bool
	// Entry is the function called by Run. Defaults to Main.
	Entry string
	// Trace logs every executed instruction at debug level.
	Trace bool
	// MaxDepth limits the nesting of user function calls.
	MaxDepth int
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	// Caching keeps compiled programs in an LRU cache keyed by source.
	Caching bool
	// CacheSize sets the cache capacity. Defaults to 256.
	CacheSize int
	// Cache is an external program cache. If non-nil, Caching is implied.
	Cache *cache.Cache
	// Logger for structured logging.
	Logger *slog.Logger
	// Stdin and Stdout are used by the Input and Print built-ins.
	Stdin  io.Reader
	Stdout io.Writer
	// CustomFunctions are extra built-ins available to every program.
	CustomFunctions []functions.CustomFunctionDef
}

// Option configures an Engine.
type Option func(*Options)

// WithOptimize enables or disables the optimizer.
func WithOptimize(enabled bool) Option {
	return func(opts *Options) {
		opts.Optimize = enabled
	}
}

// WithEntry sets the entry function.
func WithEntry(name string) Option {
	return func(opts *Options) {
		opts.Entry = name
	}
}

// WithTrace enables or disables instruction tracing.
func WithTrace(enabled bool) Option {
	return func(opts *Options) {
		opts.Trace = enabled
	}
}

// WithMaxDepth sets the maximum call depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithTimeout sets the run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithCaching enables or disables compilation caching.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) Option {
	return func(opts *Options) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached programs.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) Option {
	return func(opts *Options) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external program cache.
func WithCache(c *cache.Cache) Option {
	return func(opts *Options) {
		opts.Cache = c
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

// New creates an Engine.
func New(opts ...Option) *Engine {
	options := Options{
		Entry:    threading.DefaultEntry,
		MaxDepth: interpreter.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	return &Engine{
		opts:   options,
		logger: options.Logger,
		cache:  c,
		interp: interpreter.New(
			interpreter.WithMaxDepth(options.MaxDepth),
			interpreter.WithTrace(options.Trace),
			interpreter.WithLogger(options.Logger),
			interpreter.WithStdin(options.Stdin),
			interpreter.WithStdout(options.Stdout),
			interpreter.WithFunctions(options.CustomFunctions...),
		),
	}
}

// Cache returns the program cache, or nil if caching is disabled.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Parse parses source and, when the optimizer is enabled, simplifies the
// resulting tree.
func (e *Engine) Parse(source string) (*types.Node, error) {
	root, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	if e.opts.Optimize {
		root = optimizer.New(optimizer.WithLogger(e.logger)).Optimize(root)
	}
	return root, nil
}

// Thread linearizes a parsed program starting from the entry function.
func (e *Engine) Thread(root *types.Node) (types.Program, error) {
	return threading.Thread(root,
		threading.WithEntry(e.opts.Entry),
		threading.WithBuiltins(e.interp.Builtins()...),
		threading.WithLogger(e.logger),
	)
}

// Compile parses, optionally optimizes and threads source.
func (e *Engine) Compile(source string) (types.Program, error) {
	compile := func() (types.Program, error) {
		root, err := e.Parse(source)
		if err != nil {
			return nil, err
		}
		prog, err := e.Thread(root)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("compiled program", "functions", len(prog), "optimize", e.opts.Optimize)
		return prog, nil
	}
	if e.cache == nil {
		return compile()
	}
	return e.cache.GetOrCompile(cache.Key(e.opts.Entry+"\x00"+source, e.opts.Optimize), compile)
}

// Run calls the entry function of prog with args.
func (e *Engine) Run(ctx context.Context, prog types.Program, args ...expr.Expr) (expr.Expr, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	return e.interp.Run(ctx, prog, e.opts.Entry, args...)
}

// Exec compiles source and runs it.
func (e *Engine) Exec(ctx context.Context, source string, args ...expr.Expr) (expr.Expr, error) {
	prog, err := e.Compile(source)
	if err != nil {
		return expr.Expr{}, err
	}
	return e.Run(ctx, prog, args...)
}

// Compile compiles source for repeated runs.
//
// Example:
//
//	prog, err := luppolo.Compile(src, luppolo.WithOptimize(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(source string, opts ...Option) (types.Program, error) {
	return New(opts...).Compile(source)
}

// MustCompile is like Compile but panics if the program cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(source string, opts ...Option) types.Program {
	prog, err := Compile(source, opts...)
	if err != nil {
		panic(fmt.Sprintf("luppolo: Compile(%q): %v", source, err))
	}
	return prog
}

// Run runs a compiled program.
func Run(ctx context.Context, prog types.Program, args []expr.Expr, opts ...Option) (expr.Expr, error) {
	return New(opts...).Run(ctx, prog, args...)
}

// Exec is a convenience function that compiles and runs source in a single
// call. For repeated runs of the same program, use Compile instead.
//
// Example:
//
//	result, err := luppolo.Exec(ctx, "Main(n) { return n^2 }", []expr.Expr{expr.Int(4)})
func Exec(ctx context.Context, source string, args []expr.Expr, opts ...Option) (expr.Expr, error) {
	return New(opts...).Exec(ctx, source, args...)
}
