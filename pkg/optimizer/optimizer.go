// Package optimizer folds constants and prunes dead code in a Luppolo
// syntax tree.
//
// The optimizer makes a single bottom-up pass. Every node is rewritten into a
// [Result]: the node is kept (possibly replaced by a simpler one), its
// instructions are spliced into the enclosing block, or it is removed. The
// input tree is never modified.
//
// Only literals are folded. Variables are never propagated, so in
// X := 1; repeat (X) { ... } the loop is kept.
//
// # Example
//
//	root, _ := parser.Parse("Main() { if (true) { return 1 } return 2 }")
//	opt := optimizer.Optimize(root)
//	fmt.Print(opt.Tree()) // Main's block holds a single return
package optimizer

import (
	"log/slog"
	"math/big"

	"github.com/sandrolain/luppolo/pkg/types"
)

// Action tells the enclosing block what to do with an optimized instruction.
type Action uint8

const (
	// Keep places Result.Node where the original node was.
	Keep Action = iota
	// Splice replaces the instruction with the list Result.Nodes.
	Splice
	// Remove deletes the instruction.
	Remove
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Splice:
		return "splice"
	case Remove:
		return "remove"
	default:
		return "(unknown)"
	}
}

// Result is the outcome of optimizing one node.
type Result struct {
	Action Action
	Node   *types.Node
	Nodes  []*types.Node
}

func keep(n *types.Node) Result { return Result{Action: Keep, Node: n} }

func splice(nodes []*types.Node) Result {
	return Result{Action: Splice, Nodes: append([]*types.Node(nil), nodes...)}
}

// maxFoldBits bounds the size of a folded power literal.
const maxFoldBits = 1 << 16

// Optimizer rewrites syntax trees.
type Optimizer struct {
	logger *slog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger that receives one debug record per fold.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Optimize returns an optimized copy of the tree rooted at root using a
// default Optimizer.
func Optimize(root *types.Node) *types.Node {
	return New().Optimize(root)
}

// Optimize returns an optimized copy of the tree rooted at root. A root that
// would be spliced or removed yields an empty block.
func (o *Optimizer) Optimize(root *types.Node) *types.Node {
	r := o.Node(root)
	switch r.Action {
	case Keep:
		return r.Node
	default:
		return node(types.KindBlock, nil, root.Position, r.Nodes...)
	}
}

// Node optimizes a single node and its descendants.
func (o *Optimizer) Node(n *types.Node) Result {
	switch n.Kind {
	case types.KindProgram, types.KindFunction, types.KindDeclaration,
		types.KindForeach, types.KindReturn, types.KindCall:
		return keep(o.rebuild(n, o.children(n)...))
	case types.KindBlock:
		return keep(o.block(n))
	case types.KindPow:
		return keep(o.pow(n))
	case types.KindMulDiv:
		return keep(o.mulDiv(n))
	case types.KindUnary:
		return keep(o.unary(n))
	case types.KindAddSub:
		return keep(o.addSub(n))
	case types.KindIf, types.KindIfElse:
		return o.ifElse(n)
	case types.KindRepeat:
		return o.repeat(n)
	case types.KindWhile:
		return o.while(n)
	case types.KindNot:
		return keep(o.not(n))
	case types.KindAnd, types.KindOr:
		return keep(o.logical(n))
	case types.KindComparison:
		return keep(o.comparison(n))
	default:
		return keep(n.Clone())
	}
}

// expr optimizes a child that is always kept: an expression, a condition
// or a block.
func (o *Optimizer) expr(n *types.Node) *types.Node {
	r := o.Node(n)
	if r.Action == Keep {
		return r.Node
	}
	return node(types.KindBlock, nil, n.Position, r.Nodes...)
}

func (o *Optimizer) children(n *types.Node) []*types.Node {
	out := make([]*types.Node, len(n.Children))
	for i, c := range n.Children {
		out[i] = o.expr(c)
	}
	return out
}

// rebuild copies n with new children.
func (o *Optimizer) rebuild(n *types.Node, children ...*types.Node) *types.Node {
	c := n.Clone()
	c.Children = children
	return c
}

func (o *Optimizer) folded(n *types.Node, into string) {
	o.logger.Debug("folded node", "kind", n.Kind, "position", n.Position, "into", into)
}

// block optimizes each instruction, splicing lists in place. Instructions
// after a return are unreachable and dropped.
func (o *Optimizer) block(n *types.Node) *types.Node {
	out := make([]*types.Node, 0, len(n.Children))
	for i, instr := range n.Children {
		r := o.Node(instr)
		var add []*types.Node
		switch r.Action {
		case Keep:
			add = []*types.Node{r.Node}
		case Splice:
			add = r.Nodes
		}
		for _, a := range add {
			out = append(out, a)
			if a.Kind == types.KindReturn {
				if dropped := len(n.Children) - i - 1; dropped > 0 {
					o.folded(n, "truncated after return")
				}
				return o.rebuild(n, out...)
			}
		}
	}
	return o.rebuild(n, out...)
}

func (o *Optimizer) pow(n *types.Node) *types.Node {
	base, exp := o.expr(n.Children[0]), o.expr(n.Children[1])
	if isNat(exp, 1) {
		o.folded(n, "base")
		return base
	}
	if b, ok := natValue(base); ok {
		if e, ok := natValue(exp); ok && e.Sign() >= 0 && e.IsInt64() &&
			int64(b.BitLen())*e.Int64() <= maxFoldBits {
			o.folded(n, "literal")
			return nat(new(big.Int).Exp(b, e, nil), n.Position)
		}
	}
	return o.rebuild(n, base, exp)
}

func (o *Optimizer) mulDiv(n *types.Node) *types.Node {
	left, right := o.expr(n.Children[0]), o.expr(n.Children[1])
	op := n.Value.(types.Operator)
	switch {
	case op == "*" && isNat(left, 1):
		o.folded(n, "right operand")
		return right
	case isNat(right, 1):
		o.folded(n, "left operand")
		return left
	}

	l, lok := natValue(left)
	r, rok := natValue(right)
	if lok && rok {
		switch op {
		case "*":
			o.folded(n, "literal")
			return nat(new(big.Int).Mul(l, r), n.Position)
		case "/":
			if r.Sign() != 0 {
				q, m := new(big.Int).QuoRem(l, r, new(big.Int))
				if m.Sign() == 0 {
					o.folded(n, "literal")
					return nat(q, n.Position)
				}
			}
		}
	}
	return o.rebuild(n, left, right)
}

func (o *Optimizer) unary(n *types.Node) *types.Node {
	operand := o.expr(n.Children[0])
	switch n.Value.(types.Operator) {
	case "+":
		o.folded(n, "operand")
		return operand
	case "-":
		if v, ok := natValue(operand); ok {
			o.folded(n, "literal")
			return nat(new(big.Int).Neg(v), n.Position)
		}
		if operand.Kind == types.KindUnary && operand.Value == types.Operator("-") {
			o.folded(n, "double negation")
			return operand.Children[0]
		}
	}
	return o.rebuild(n, operand)
}

func (o *Optimizer) addSub(n *types.Node) *types.Node {
	left, right := o.expr(n.Children[0]), o.expr(n.Children[1])
	op := n.Value.(types.Operator)
	switch {
	case op == "+" && isNat(left, 0):
		o.folded(n, "right operand")
		return right
	case isNat(right, 0):
		o.folded(n, "left operand")
		return left
	}

	if l, ok := natValue(left); ok {
		if r, ok := natValue(right); ok {
			o.folded(n, "literal")
			if op == "+" {
				return nat(new(big.Int).Add(l, r), n.Position)
			}
			return nat(new(big.Int).Sub(l, r), n.Position)
		}
	}
	return o.rebuild(n, left, right)
}

func (o *Optimizer) ifElse(n *types.Node) Result {
	cond := o.expr(n.Children[0])
	branches := o.children(&types.Node{Children: n.Children[1:]})

	if v, ok := boolValue(cond); ok {
		switch {
		case v:
			o.folded(n, "true branch")
			return splice(branches[0].Children)
		case len(branches) == 2:
			o.folded(n, "false branch")
			return splice(branches[1].Children)
		default:
			o.folded(n, "nothing")
			return Result{Action: Remove}
		}
	}
	return keep(o.rebuild(n, append([]*types.Node{cond}, branches...)...))
}

func (o *Optimizer) repeat(n *types.Node) Result {
	count, body := o.expr(n.Children[0]), o.expr(n.Children[1])
	if v, ok := natValue(count); ok {
		switch v.Cmp(big.NewInt(1)) {
		case 0:
			o.folded(n, "single body")
			return splice(body.Children)
		case -1:
			o.folded(n, "nothing")
			return Result{Action: Remove}
		}
	}
	return keep(o.rebuild(n, count, body))
}

func (o *Optimizer) while(n *types.Node) Result {
	cond, body := o.expr(n.Children[0]), o.expr(n.Children[1])
	if v, ok := boolValue(cond); ok && !v {
		o.folded(n, "nothing")
		return Result{Action: Remove}
	}
	return keep(o.rebuild(n, cond, body))
}

func (o *Optimizer) not(n *types.Node) *types.Node {
	operand := o.expr(n.Children[0])
	if v, ok := boolValue(operand); ok {
		o.folded(n, "literal")
		return boolean(!v, n.Position)
	}
	if operand.Kind == types.KindNot {
		o.folded(n, "double negation")
		return operand.Children[0]
	}
	return o.rebuild(n, operand)
}

func (o *Optimizer) logical(n *types.Node) *types.Node {
	left, right := o.expr(n.Children[0]), o.expr(n.Children[1])
	l, lok := boolValue(left)
	r, rok := boolValue(right)
	if lok && rok {
		o.folded(n, "literal")
		if n.Kind == types.KindAnd {
			return boolean(l && r, n.Position)
		}
		return boolean(l || r, n.Position)
	}
	return o.rebuild(n, left, right)
}

func (o *Optimizer) comparison(n *types.Node) *types.Node {
	left, right := o.expr(n.Children[0]), o.expr(n.Children[1])
	l, lok := natValue(left)
	r, rok := natValue(right)
	if lok && rok {
		c := l.Cmp(r)
		var v bool
		switch n.Value.(types.Operator) {
		case "<":
			v = c < 0
		case "<=":
			v = c <= 0
		case "==":
			v = c == 0
		case ">":
			v = c > 0
		case ">=":
			v = c >= 0
		default:
			return o.rebuild(n, left, right)
		}
		o.folded(n, "literal")
		return boolean(v, n.Position)
	}
	return o.rebuild(n, left, right)
}

func node(kind types.NodeKind, value types.Value, position int, children ...*types.Node) *types.Node {
	n := types.NewNode(kind, value, children...)
	n.Position = position
	return n
}

func nat(v *big.Int, position int) *types.Node {
	return node(types.KindNat, types.Literal(v.String()), position)
}

func boolean(v bool, position int) *types.Node {
	text := "false"
	if v {
		text = "true"
	}
	return node(types.KindBoolean, types.Literal(text), position)
}

// natValue returns the integer value of a NAT literal. Folding may leave
// negative literals behind.
func natValue(n *types.Node) (*big.Int, bool) {
	if n.Kind != types.KindNat {
		return nil, false
	}
	lit, ok := n.Value.(types.Literal)
	if !ok {
		return nil, false
	}
	return new(big.Int).SetString(string(lit), 10)
}

func isNat(n *types.Node, want int64) bool {
	v, ok := natValue(n)
	return ok && v.IsInt64() && v.Int64() == want
}

func boolValue(n *types.Node) (bool, bool) {
	if n.Kind != types.KindBoolean {
		return false, false
	}
	switch n.Value {
	case types.Literal("true"):
		return true, true
	case types.Literal("false"):
		return false, true
	}
	return false, false
}
