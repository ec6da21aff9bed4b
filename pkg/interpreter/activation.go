package interpreter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/types"
)

// activation is the state of one function call.
type activation struct {
	run    *run
	fn     string
	code   []types.Instruction
	args   []Value
	stack  []Value
	locals map[string]Value
}

// fail builds an error tagged with the executing function.
func (a *activation) fail(code types.ErrorCode, format string, args ...any) *types.Error {
	return types.NewError(code, fmt.Sprintf(format, args...), -1).InFunction(a.fn)
}

func (a *activation) push(v Value) {
	a.stack = append(a.stack, v)
}

func (a *activation) pop() (Value, error) {
	if len(a.stack) == 0 {
		return nil, a.fail(types.ErrInvalidIR, "operand stack underflow")
	}
	v := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	return v, nil
}

func (a *activation) popExpr() (expr.Expr, error) {
	v, err := a.pop()
	if err != nil {
		return expr.Expr{}, err
	}
	e, ok := v.(expr.Expr)
	if !ok {
		return expr.Expr{}, a.fail(types.ErrNotExpression, "expected an expression, got a %s", describe(v))
	}
	return e, nil
}

func (a *activation) popBool() (Bool, error) {
	v, err := a.pop()
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, a.fail(types.ErrNotBoolean, "expected a boolean, got a %s", describe(v))
	}
	return b, nil
}

// popPair pops the right operand, then the left one.
func (a *activation) popPair() (left, right expr.Expr, err error) {
	if right, err = a.popExpr(); err != nil {
		return
	}
	left, err = a.popExpr()
	return
}

// popArgs pops n values and returns them in source order.
func (a *activation) popArgs(n int) ([]Value, error) {
	if n > len(a.stack) {
		return nil, a.fail(types.ErrInvalidIR, "operand stack underflow")
	}
	args := make([]Value, n)
	copy(args, a.stack[len(a.stack)-n:])
	a.stack = a.stack[:len(a.stack)-n]
	return args, nil
}

// call runs a user function in a fresh activation.
func (r *run) call(ctx context.Context, name string, args []Value) (Value, error) {
	r.depth++
	defer func() { r.depth-- }()
	if r.in.opts.MaxDepth > 0 && r.depth > r.in.opts.MaxDepth {
		return nil, types.NewError(types.ErrStackOverflow,
			fmt.Sprintf("maximum call depth %d exceeded", r.in.opts.MaxDepth), -1).InFunction(name)
	}

	a := &activation{
		run:    r,
		fn:     name,
		code:   r.prog[name],
		args:   args,
		locals: map[string]Value{},
	}
	if r.in.opts.Trace {
		r.in.logger.Debug("enter function", "fn", name, "args", len(args), "depth", r.depth)
	}
	result, err := a.execute(ctx)
	if err == nil && r.in.opts.Trace {
		r.in.logger.Debug("leave function", "fn", name, "result", result.String())
	}
	return result, err
}

// execute is the fetch, dispatch and advance loop of one activation.
func (a *activation) execute(ctx context.Context) (Value, error) {
	ip := 0
	for {
		select {
		case <-ctx.Done():
			return nil, a.fail(types.ErrCanceled, "run canceled: %v", ctx.Err()).WithCause(ctx.Err())
		default:
		}

		if ip < 0 || ip >= len(a.code) {
			return nil, a.fail(types.ErrInvalidIR, "instruction pointer %d out of range", ip)
		}
		instr := a.code[ip]
		if a.run.in.opts.Trace {
			a.run.in.logger.Debug("step",
				"fn", a.fn,
				"ip", ip,
				"kind", instr.Kind,
				"value", instr.Value,
				"stack", len(a.stack))
		}

		edge, result, returned, err := a.step(ctx, instr)
		if err != nil {
			return nil, err
		}
		if returned {
			return result, nil
		}

		target, ok := instr.Target(edge)
		if !ok {
			return nil, a.fail(types.ErrInvalidIR, "%s at %d has no %s jump", instr.Kind, ip, edge)
		}
		ip = target
	}
}

// step executes one instruction. It returns the edge to follow, or the
// function result when the instruction returns.
func (a *activation) step(ctx context.Context, instr types.Instruction) (types.Edge, Value, bool, error) {
	next := types.EdgeNext

	switch instr.Kind {
	case types.KindBegin, types.KindFunction:
		if sig, ok := instr.Value.(types.Signature); ok {
			if err := a.bind(sig); err != nil {
				return "", nil, false, err
			}
		}

	case types.KindJoin:

	case types.KindEnd:
		return "", nil, false, a.fail(types.ErrMissingReturn, "return not found")

	case types.KindPow:
		base, exponent, err := a.popPair()
		if err != nil {
			return "", nil, false, err
		}
		if base.IsZero() && exponent.Sign() < 0 {
			return "", nil, false, a.fail(types.ErrDivisionByZero, "division by zero")
		}
		a.push(expr.Pow(base, exponent))

	case types.KindMulDiv:
		left, right, err := a.popPair()
		if err != nil {
			return "", nil, false, err
		}
		switch instr.Value {
		case types.Operator("*"):
			a.push(expr.Mul(left, right))
		case types.Operator("/"):
			if right.IsZero() {
				return "", nil, false, a.fail(types.ErrDivisionByZero, "division by zero")
			}
			a.push(expr.Mul(left, expr.Pow(right, expr.Int(-1))))
		default:
			return "", nil, false, a.unknownOperator(instr)
		}

	case types.KindUnary:
		operand, err := a.popExpr()
		if err != nil {
			return "", nil, false, err
		}
		switch instr.Value {
		case types.Operator("-"):
			a.push(expr.Neg(operand))
		case types.Operator("+"):
			a.push(operand)
		default:
			return "", nil, false, a.unknownOperator(instr)
		}

	case types.KindAddSub:
		left, right, err := a.popPair()
		if err != nil {
			return "", nil, false, err
		}
		switch instr.Value {
		case types.Operator("+"):
			a.push(expr.Add(left, right))
		case types.Operator("-"):
			a.push(expr.Sub(left, right))
		default:
			return "", nil, false, a.unknownOperator(instr)
		}

	case types.KindDeclaration:
		v, err := a.pop()
		if err != nil {
			return "", nil, false, err
		}
		a.locals[string(instr.Value.(types.Name))] = v

	case types.KindIf, types.KindIfElse:
		cond, err := a.popBool()
		if err != nil {
			return "", nil, false, err
		}
		next = types.EdgeFalse
		if cond {
			next = types.EdgeTrue
		}

	case types.KindReturn:
		v, err := a.pop()
		if err != nil {
			return "", nil, false, err
		}
		return "", v, true, nil

	case types.KindForeach:
		v, err := a.pop()
		if err != nil {
			return "", nil, false, err
		}
		seq, ok := elements(v)
		if !ok {
			return "", nil, false, a.fail(types.ErrNotExpression, "cannot iterate over a %s", describe(v))
		}
		if len(seq) > 0 {
			a.locals[string(instr.Value.(types.Name))] = seq[0]
			a.push(seq[1:])
			next = types.EdgeLoop
		}

	case types.KindRepeat:
		count, err := a.popExpr()
		if err != nil {
			return "", nil, false, err
		}
		if !count.IsNumber() {
			return "", nil, false, a.fail(types.ErrNotNumber, "repeat count %s is not a number", count)
		}
		if count.Sign() > 0 {
			a.push(expr.Add(count, expr.Int(-1)))
			next = types.EdgeLoop
		}

	case types.KindWhile:
		cond, err := a.popBool()
		if err != nil {
			return "", nil, false, err
		}
		if cond {
			next = types.EdgeLoop
		}

	case types.KindCall:
		result, err := a.callFunction(ctx, instr.Value.(types.Call))
		if err != nil {
			return "", nil, false, err
		}
		a.push(result)

	case types.KindNat:
		n, ok := new(big.Int).SetString(string(instr.Value.(types.Literal)), 10)
		if !ok {
			return "", nil, false, a.fail(types.ErrInvalidIR, "invalid number literal %q", instr.Value)
		}
		a.push(expr.Rat(new(big.Rat).SetInt(n)))

	case types.KindSym:
		a.push(expr.Sym(string(instr.Value.(types.Name))))

	case types.KindID:
		name := string(instr.Value.(types.Name))
		v, ok := a.locals[name]
		if !ok {
			return "", nil, false, a.fail(types.ErrUndefinedVariable, "undefined variable %s", name).WithToken(name)
		}
		a.push(v)

	case types.KindBoolean:
		a.push(Bool(instr.Value == types.Literal("true")))

	case types.KindNot:
		b, err := a.popBool()
		if err != nil {
			return "", nil, false, err
		}
		a.push(!b)

	case types.KindAnd, types.KindOr:
		right, err := a.popBool()
		if err != nil {
			return "", nil, false, err
		}
		left, err := a.popBool()
		if err != nil {
			return "", nil, false, err
		}
		if instr.Kind == types.KindAnd {
			a.push(left && right)
		} else {
			a.push(left || right)
		}

	case types.KindComparison:
		left, right, err := a.popPair()
		if err != nil {
			return "", nil, false, err
		}
		c := expr.Compare(left, right)
		var result bool
		switch instr.Value {
		case types.Operator("<"):
			result = c < 0
		case types.Operator("<="):
			result = c <= 0
		case types.Operator("=="):
			result = c == 0
		case types.Operator(">"):
			result = c > 0
		case types.Operator(">="):
			result = c >= 0
		default:
			return "", nil, false, a.unknownOperator(instr)
		}
		a.push(Bool(result))

	default:
		return "", nil, false, a.fail(types.ErrUnknownInstruction, "unknown instruction %s", instr.Kind)
	}

	return next, nil, false, nil
}

func (a *activation) unknownOperator(instr types.Instruction) error {
	return a.fail(types.ErrUnknownInstruction, "unknown operator %v in %s", instr.Value, instr.Kind)
}

// bind assigns the call arguments to the declared parameters.
func (a *activation) bind(sig types.Signature) error {
	want, got := len(sig.Parameters), len(a.args)
	switch {
	case got < want:
		return a.fail(types.ErrArgumentCount, "missing %d arguments: expected %d, got %d", want-got, want, got)
	case got > want:
		return a.fail(types.ErrArgumentCount, "too many arguments: expected %d, got %d", want, got)
	}
	for i, p := range sig.Parameters {
		a.locals[p] = a.args[i]
	}
	return nil
}

// callFunction resolves a call among the threaded functions of the program,
// custom built-ins and standard built-ins, in that order. The linearizer
// never threads a user function named like a built-in, so a built-in name
// always reaches the built-in.
func (a *activation) callFunction(ctx context.Context, call types.Call) (Value, error) {
	if _, ok := a.run.prog[call.Name]; ok {
		sig, _ := a.run.prog.Signature(call.Name)
		if len(sig.Parameters) != call.Arity {
			return nil, a.arityError(call, fmt.Sprint(len(sig.Parameters)))
		}
		args, err := a.popArgs(call.Arity)
		if err != nil {
			return nil, err
		}
		return a.run.call(ctx, call.Name, args)
	}

	b, ok := a.run.in.builtin(call.Name)
	if !ok {
		return nil, a.fail(types.ErrUndefinedFunction, "called undefined function %s", call.Name).WithToken(call.Name)
	}
	if !b.accepts(call.Arity) {
		return nil, a.arityError(call, b.expected())
	}

	values, err := a.popArgs(call.Arity)
	if err != nil {
		return nil, err
	}
	args := make([]expr.Expr, len(values))
	for i, v := range values {
		e, ok := v.(expr.Expr)
		if !ok {
			return nil, a.fail(types.ErrNotExpression, "argument %d is a %s", i+1, describe(v)).WithBuiltin(call.Name)
		}
		args[i] = e
	}

	result, err := b.impl(ctx, a.run.in, args)
	if err != nil {
		return nil, builtinError(err).InFunction(a.fn).WithBuiltin(call.Name)
	}
	if result.Undefined() {
		return nil, a.fail(types.ErrDivisionByZero, "division by zero").WithBuiltin(call.Name)
	}
	return result, nil
}

func (a *activation) arityError(call types.Call, expected string) error {
	return a.fail(types.ErrCallArity,
		"called function %s with incorrect number of parameters: expected %s, but got %d",
		call.Name, expected, call.Arity).WithToken(call.Name)
}
