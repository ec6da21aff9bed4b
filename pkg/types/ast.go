package types

import (
	"fmt"
	"strings"
)

// NodeKind identifies the kind of a syntax node or of a linearized
// instruction. The string form is the one used by the persisted IR.
type NodeKind string

// Node kinds.
const (
	// Linearization markers
	KindBegin NodeKind = "BEGIN"
	KindEnd   NodeKind = "END"
	KindJoin  NodeKind = "JOIN"

	// Structure
	KindProgram  NodeKind = "PROGRAM"
	KindFunction NodeKind = "FUNCTION"
	KindBlock    NodeKind = "BLOCK"

	// Instructions
	KindDeclaration NodeKind = "DECLARATION_INSTRUCTION"
	KindForeach     NodeKind = "FOREACH_INSTRUCTION"
	KindIfElse      NodeKind = "IF_ELSE_INSTRUCTION"
	KindIf          NodeKind = "IF_INSTRUCTION"
	KindRepeat      NodeKind = "REPEAT_INSTRUCTION"
	KindReturn      NodeKind = "RETURN_INSTRUCTION"
	KindWhile       NodeKind = "WHILE_INSTRUCTION"

	// Expressions
	KindPow    NodeKind = "POW_EXPRESSION"
	KindMulDiv NodeKind = "MUL_DIV_EXPRESSION"
	KindUnary  NodeKind = "UNARY_EXPRESSION"
	KindAddSub NodeKind = "ADD_SUB_EXPRESSION"
	KindCall   NodeKind = "FUNCTION_CALL_EXPRESSION"

	// Literals
	KindNat     NodeKind = "NAT"
	KindSym     NodeKind = "SYM"
	KindID      NodeKind = "ID"
	KindBoolean NodeKind = "BOOLEAN"

	// Conditions
	KindNot        NodeKind = "NOT_CONDITION"
	KindAnd        NodeKind = "AND_CONDITION"
	KindOr         NodeKind = "OR_CONDITION"
	KindComparison NodeKind = "COMPARISON_CONDITION"
)

// payload describes the value shape and child count of a kind.
type payload struct {
	value    valueShape
	children int // -1 for any number
}

type valueShape uint8

const (
	shapeNone valueShape = iota
	shapeOperator
	shapeName
	shapeLiteral
	shapeSignature
	shapeCall
)

var kinds = map[NodeKind]payload{
	KindBegin: {shapeSignature, 0},
	KindEnd:   {shapeNone, 0},
	KindJoin:  {shapeNone, 0},

	KindProgram:  {shapeNone, -1},
	KindFunction: {shapeSignature, 1},
	KindBlock:    {shapeNone, -1},

	KindDeclaration: {shapeName, 1},
	KindForeach:     {shapeName, 2},
	KindIfElse:      {shapeNone, 3},
	KindIf:          {shapeNone, 2},
	KindRepeat:      {shapeNone, 2},
	KindReturn:      {shapeNone, 1},
	KindWhile:       {shapeNone, 2},

	KindPow:    {shapeNone, 2},
	KindMulDiv: {shapeOperator, 2},
	KindUnary:  {shapeOperator, 1},
	KindAddSub: {shapeOperator, 2},
	KindCall:   {shapeCall, -1},

	KindNat:     {shapeLiteral, 0},
	KindSym:     {shapeName, 0},
	KindID:      {shapeName, 0},
	KindBoolean: {shapeLiteral, 0},

	KindNot:        {shapeNone, 1},
	KindAnd:        {shapeNone, 2},
	KindOr:         {shapeNone, 2},
	KindComparison: {shapeOperator, 2},
}

// Valid reports whether k is a known kind.
func (k NodeKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Arity returns the fixed number of children of k, or -1 when the kind
// takes any number of children (program, block, call).
func (k NodeKind) Arity() int {
	p, ok := kinds[k]
	if !ok {
		return 0
	}
	return p.children
}

// Value is the payload carried by a node or an instruction. The concrete
// type is fixed by the kind:
//
//	Operator   MUL_DIV, ADD_SUB, UNARY, COMPARISON
//	Name       DECLARATION, FOREACH, ID, SYM
//	Literal    NAT, BOOLEAN
//	Signature  FUNCTION, BEGIN
//	Call       FUNCTION_CALL
//
// All other kinds carry no value (nil).
type Value interface {
	shape() valueShape
	String() string
}

// Operator is the operator text of an arithmetic or comparison node,
// e.g. "+", "/" or "<=".
type Operator string

// Name is a variable, symbol or loop variable name.
type Name string

// Literal is the source text of a natural number or boolean literal.
type Literal string

// Signature is the name and parameter list of a function.
type Signature struct {
	Name       string   `json:"name" yaml:"name"`
	Parameters []string `json:"parameters" yaml:"parameters"`
}

// Call is the callee name and argument count of a call site.
type Call struct {
	Name  string `json:"name" yaml:"name"`
	Arity int    `json:"parameters" yaml:"parameters"`
}

func (Operator) shape() valueShape  { return shapeOperator }
func (Name) shape() valueShape      { return shapeName }
func (Literal) shape() valueShape   { return shapeLiteral }
func (Signature) shape() valueShape { return shapeSignature }
func (Call) shape() valueShape      { return shapeCall }

func (o Operator) String() string { return string(o) }
func (n Name) String() string     { return string(n) }
func (l Literal) String() string  { return string(l) }

func (s Signature) String() string {
	return s.Name + "(" + strings.Join(s.Parameters, ", ") + ")"
}

func (c Call) String() string {
	return fmt.Sprintf("%s/%d", c.Name, c.Arity)
}

// checkValue reports whether v has the shape kind k requires.
func checkValue(k NodeKind, v Value) error {
	want := kinds[k].value
	switch {
	case v == nil && want == shapeNone:
		return nil
	case v == nil:
		return fmt.Errorf("%s requires a value", k)
	case v.shape() != want:
		return fmt.Errorf("%s cannot carry %T", k, v)
	}
	return nil
}

// Node is a node of the abstract syntax tree. A node owns its children.
type Node struct {
	Kind     NodeKind
	Value    Value
	Children []*Node
	Position int
}

// NewNode creates a node of the given kind.
func NewNode(kind NodeKind, value Value, children ...*Node) *Node {
	return &Node{
		Kind:     kind,
		Value:    value,
		Children: children,
		Position: -1,
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	if sig, ok := n.Value.(Signature); ok {
		sig.Parameters = append([]string(nil), sig.Parameters...)
		c.Value = sig
	}
	return &c
}

// Validate checks kinds, payload shapes and child counts of the whole tree.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	p, ok := kinds[n.Kind]
	if !ok {
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	if err := checkValue(n.Kind, n.Value); err != nil {
		return err
	}
	if p.children >= 0 && len(n.Children) != p.children {
		return fmt.Errorf("%s has %d children, want %d", n.Kind, len(n.Children), p.children)
	}
	if c, ok := n.Value.(Call); ok && c.Arity != len(n.Children) {
		return fmt.Errorf("call to %s declares %d arguments but has %d", c.Name, c.Arity, len(n.Children))
	}
	for _, child := range n.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String returns KIND or KIND(value).
func (n *Node) String() string {
	if n.Value == nil {
		return string(n.Kind)
	}
	return string(n.Kind) + "(" + n.Value.String() + ")"
}

// Tree renders n and its descendants with box-drawing guides:
//
//	PROGRAM
//	└──FUNCTION(Main())
//	   └──BLOCK
//	      └──RETURN_INSTRUCTION
//	         └──NAT(5)
func (n *Node) Tree() string {
	var b strings.Builder
	n.writeTree(&b, nil)
	return b.String()
}

func (n *Node) writeTree(b *strings.Builder, last []bool) {
	if len(last) > 0 {
		for _, l := range last[:len(last)-1] {
			if l {
				b.WriteString("   ")
			} else {
				b.WriteString("│  ")
			}
		}
		if last[len(last)-1] {
			b.WriteString("└──")
		} else {
			b.WriteString("├──")
		}
	}
	b.WriteString(n.String())
	b.WriteByte('\n')
	for i, child := range n.Children {
		child.writeTree(b, append(last[:len(last):len(last)], i == len(n.Children)-1))
	}
}
