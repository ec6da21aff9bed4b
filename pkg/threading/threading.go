// Package threading linearizes a Luppolo syntax tree into threaded code.
//
// Starting from the entry function, every user function reachable through
// calls is flattened into an instruction array. Instructions are wired by
// named jump edges (next, true, false, loop) holding indices into the same
// array. Each array starts with a BEGIN marker that carries the function
// signature and ends with an END marker, which the interpreter reaches only
// when the function falls off its last instruction without returning.
//
// Control structures thread as follows:
//
//	if      cond IF then... else... JOIN    true/false edges into the branches
//	repeat  count body... REPEAT            loop edge to the body start
//	foreach seq body... FOREACH             loop edge to the body start
//	while   cond body... WHILE              body end jumps back to cond
//
// The loop instruction comes last so that its next edge, set by whatever
// follows it, is the loop exit.
package threading

import (
	"fmt"
	"log/slog"

	"github.com/sandrolain/luppolo/pkg/functions"
	"github.com/sandrolain/luppolo/pkg/types"
)

// DefaultEntry is the name of the function a program starts from.
const DefaultEntry = "Main"

// Option configures the linearizer.
type Option func(*Options)

// Options holds linearizer configuration.
type Options struct {
	// Entry is the function discovery starts from.
	Entry string
	// Builtins are names that are not user functions and are never enqueued.
	Builtins map[string]bool
	// Logger receives one debug record per linearized function.
	Logger *slog.Logger
}

// WithEntry sets the entry function name.
func WithEntry(name string) Option {
	return func(opts *Options) {
		opts.Entry = name
	}
}

// WithBuiltins adds names to the set of built-in functions.
func WithBuiltins(names ...string) Option {
	return func(opts *Options) {
		for _, name := range names {
			opts.Builtins[name] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// step is an instruction under construction. Jumps point at other steps
// and become indices once the function is complete.
type step struct {
	kind  types.NodeKind
	value types.Value
	jumps map[types.Edge]*step
}

func newStep(kind types.NodeKind, value types.Value) *step {
	return &step{kind: kind, value: value, jumps: map[types.Edge]*step{}}
}

func (s *step) jump(e types.Edge, target *step) {
	s.jumps[e] = target
}

// wire points the next edge of the last step of thread at target.
func wire(thread []*step, target *step) {
	if len(thread) > 0 {
		thread[len(thread)-1].jump(types.EdgeNext, target)
	}
}

// concat wires the last step of prev to the first step of succ and returns
// both threads joined.
func concat(prev, succ []*step) []*step {
	if len(succ) > 0 {
		wire(prev, succ[0])
	}
	return append(prev, succ...)
}

type linearizer struct {
	opts      Options
	functions map[string]*types.Node
	seen      map[string]bool
	queue     []string
}

// Thread linearizes every function reachable from the entry function of a
// PROGRAM tree. The tree is not modified.
//
// It fails with ErrNotProgram when root is not a well-formed program (see
// types.Node.Validate),
// ErrDuplicateFunction when a name is defined twice and ErrEntryNotFound
// when the entry function is missing. Calls to names that are neither
// defined nor built in are left for the interpreter to report.
func Thread(root *types.Node, opts ...Option) (types.Program, error) {
	o := Options{
		Entry:    DefaultEntry,
		Builtins: map[string]bool{},
	}
	for _, name := range functions.Standard() {
		o.Builtins[name] = true
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if root == nil || root.Kind != types.KindProgram {
		return nil, types.NewError(types.ErrNotProgram, "a PROGRAM node is required", -1)
	}
	if err := root.Validate(); err != nil {
		return nil, types.NewError(types.ErrNotProgram, "malformed tree: "+err.Error(), -1).WithCause(err)
	}

	l := &linearizer{
		opts:      o,
		functions: make(map[string]*types.Node, len(root.Children)),
		seen:      map[string]bool{},
	}
	for _, fn := range root.Children {
		sig, ok := fn.Value.(types.Signature)
		if fn.Kind != types.KindFunction || !ok || len(fn.Children) != 1 {
			return nil, types.NewError(types.ErrNotProgram,
				fmt.Sprintf("unexpected %s node in program", fn.Kind), fn.Position)
		}
		if _, dup := l.functions[sig.Name]; dup {
			return nil, types.NewError(types.ErrDuplicateFunction,
				fmt.Sprintf("%s function already defined", sig.Name), fn.Position).WithToken(sig.Name)
		}
		l.functions[sig.Name] = fn
	}
	if _, ok := l.functions[o.Entry]; !ok {
		return nil, types.NewError(types.ErrEntryNotFound,
			fmt.Sprintf("%s function not found", o.Entry), -1).WithToken(o.Entry)
	}

	program := types.Program{}
	l.enqueue(o.Entry)
	for len(l.queue) > 0 {
		name := l.queue[0]
		l.queue = l.queue[1:]

		code, err := l.function(l.functions[name])
		if err != nil {
			return nil, err
		}
		program[name] = code
		o.Logger.Debug("threaded function", "function", name, "instructions", len(code))
	}
	return program, nil
}

func (l *linearizer) enqueue(name string) {
	if l.seen[name] {
		return
	}
	l.seen[name] = true
	l.queue = append(l.queue, name)
}

// function threads one function and resolves its jumps to indices.
func (l *linearizer) function(fn *types.Node) ([]types.Instruction, error) {
	sig := fn.Value.(types.Signature)
	body, err := l.thread(fn.Children[0])
	if err != nil {
		return nil, err
	}

	begin := newStep(types.KindBegin, types.Signature{
		Name:       sig.Name,
		Parameters: append([]string{}, sig.Parameters...),
	})
	steps := concat([]*step{begin}, body)
	steps = concat(steps, []*step{newStep(types.KindEnd, nil)})

	index := make(map[*step]int, len(steps))
	for i, s := range steps {
		index[s] = i
	}
	code := make([]types.Instruction, len(steps))
	for i, s := range steps {
		jumps := make(types.Jumps, len(s.jumps))
		for e, target := range s.jumps {
			jumps[e] = index[target]
		}
		code[i] = types.Instruction{Kind: s.kind, Value: s.value, Jumps: jumps}
	}
	return code, nil
}

// thread returns the steps of a node in execution order.
func (l *linearizer) thread(n *types.Node) ([]*step, error) {
	switch n.Kind {
	case types.KindProgram, types.KindFunction, types.KindBegin, types.KindEnd, types.KindJoin:
		return nil, types.NewError(types.ErrNotProgram,
			fmt.Sprintf("%s node cannot appear inside a function", n.Kind), n.Position)

	case types.KindBlock:
		return l.sequence(n.Children)

	case types.KindIf, types.KindIfElse:
		return l.branch(n)

	case types.KindRepeat, types.KindForeach:
		head, err := l.thread(n.Children[0])
		if err != nil {
			return nil, err
		}
		body, err := l.thread(n.Children[1])
		if err != nil {
			return nil, err
		}
		loop := newStep(n.Kind, n.Value)
		wire(head, loop)
		if len(body) > 0 {
			loop.jump(types.EdgeLoop, body[0])
			wire(body, loop)
		} else {
			loop.jump(types.EdgeLoop, loop)
		}
		steps := append(head, body...)
		return append(steps, loop), nil

	case types.KindWhile:
		cond, err := l.thread(n.Children[0])
		if err != nil {
			return nil, err
		}
		body, err := l.thread(n.Children[1])
		if err != nil {
			return nil, err
		}
		loop := newStep(n.Kind, n.Value)
		wire(cond, loop)
		if len(body) > 0 {
			loop.jump(types.EdgeLoop, body[0])
			wire(body, cond[0])
		} else {
			loop.jump(types.EdgeLoop, cond[0])
		}
		steps := append(cond, body...)
		return append(steps, loop), nil

	case types.KindCall:
		call, _ := n.Value.(types.Call)
		if _, defined := l.functions[call.Name]; defined && !l.opts.Builtins[call.Name] {
			l.enqueue(call.Name)
		}
		fallthrough

	default:
		steps, err := l.sequence(n.Children)
		if err != nil {
			return nil, err
		}
		return concat(steps, []*step{newStep(n.Kind, n.Value)}), nil
	}
}

func (l *linearizer) sequence(nodes []*types.Node) ([]*step, error) {
	var steps []*step
	for _, c := range nodes {
		t, err := l.thread(c)
		if err != nil {
			return nil, err
		}
		steps = concat(steps, t)
	}
	return steps, nil
}

func (l *linearizer) branch(n *types.Node) ([]*step, error) {
	cond, err := l.thread(n.Children[0])
	if err != nil {
		return nil, err
	}
	then, err := l.thread(n.Children[1])
	if err != nil {
		return nil, err
	}
	var otherwise []*step
	if n.Kind == types.KindIfElse {
		if otherwise, err = l.thread(n.Children[2]); err != nil {
			return nil, err
		}
	}

	test := newStep(n.Kind, n.Value)
	join := newStep(types.KindJoin, nil)
	steps := concat(cond, []*step{test})

	for _, b := range []struct {
		edge  types.Edge
		steps []*step
	}{{types.EdgeTrue, then}, {types.EdgeFalse, otherwise}} {
		if len(b.steps) == 0 {
			test.jump(b.edge, join)
			continue
		}
		test.jump(b.edge, b.steps[0])
		wire(b.steps, join)
		steps = append(steps, b.steps...)
	}
	return append(steps, join), nil
}
