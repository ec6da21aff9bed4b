package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Edge names a control-flow jump out of an instruction.
type Edge string

// Jump edges.
const (
	EdgeNext  Edge = "next"
	EdgeTrue  Edge = "true"
	EdgeFalse Edge = "false"
	EdgeLoop  Edge = "loop"
)

// NoTarget marks an edge that is present but points nowhere. It is
// persisted as null.
const NoTarget = -1

// Jumps maps edge names to instruction indices within the same function.
type Jumps map[Edge]int

// MarshalJSON writes NoTarget as null.
func (j Jumps) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.wire())
}

// UnmarshalJSON reads null targets as NoTarget.
func (j *Jumps) UnmarshalJSON(data []byte) error {
	var w map[Edge]*int
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*j = fromWire(w)
	return nil
}

// MarshalYAML writes NoTarget as null.
func (j Jumps) MarshalYAML() (interface{}, error) {
	return j.wire(), nil
}

// UnmarshalYAML reads null targets as NoTarget.
func (j *Jumps) UnmarshalYAML(node *yaml.Node) error {
	var w map[Edge]*int
	if err := node.Decode(&w); err != nil {
		return err
	}
	*j = fromWire(w)
	return nil
}

func (j Jumps) wire() map[Edge]*int {
	w := make(map[Edge]*int, len(j))
	for e, t := range j {
		if t == NoTarget {
			w[e] = nil
			continue
		}
		w[e] = &t
	}
	return w
}

func fromWire(w map[Edge]*int) Jumps {
	j := make(Jumps, len(w))
	for e, t := range w {
		if t == nil {
			j[e] = NoTarget
			continue
		}
		j[e] = *t
	}
	return j
}

// Instruction is one entry of a linearized function.
type Instruction struct {
	Kind  NodeKind
	Value Value
	Jumps Jumps
}

// Target returns the index an edge points to. ok is false when the edge is
// absent or has no target.
func (in Instruction) Target(e Edge) (int, bool) {
	t, ok := in.Jumps[e]
	if !ok || t == NoTarget {
		return 0, false
	}
	return t, true
}

// String returns KIND or KIND(value).
func (in Instruction) String() string {
	if in.Value == nil {
		return string(in.Kind)
	}
	return string(in.Kind) + "(" + in.Value.String() + ")"
}

type instructionJSON struct {
	Kind  NodeKind        `json:"kind"`
	Value json.RawMessage `json:"value"`
	Jumps Jumps           `json:"jumps"`
}

type instructionYAML struct {
	Kind  NodeKind  `yaml:"kind"`
	Value yaml.Node `yaml:"value"`
	Jumps Jumps     `yaml:"jumps"`
}

// MarshalJSON encodes the instruction as {"kind", "value", "jumps"}.
func (in Instruction) MarshalJSON() ([]byte, error) {
	value, err := json.Marshal(persisted(in.Value))
	if err != nil {
		return nil, err
	}
	jumps := in.Jumps
	if jumps == nil {
		jumps = Jumps{}
	}
	return json.Marshal(instructionJSON{Kind: in.Kind, Value: value, Jumps: jumps})
}

// UnmarshalJSON decodes the value according to the kind.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	var w instructionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := decodeValue(w.Kind, func(target any) error {
		return json.Unmarshal(w.Value, target)
	}, len(w.Value) == 0 || string(w.Value) == "null")
	if err != nil {
		return err
	}
	*in = Instruction{Kind: w.Kind, Value: v, Jumps: w.Jumps}
	return nil
}

// MarshalYAML encodes the instruction as a kind/value/jumps mapping.
func (in Instruction) MarshalYAML() (interface{}, error) {
	jumps := in.Jumps
	if jumps == nil {
		jumps = Jumps{}
	}
	return struct {
		Kind  NodeKind `yaml:"kind"`
		Value Value    `yaml:"value"`
		Jumps Jumps    `yaml:"jumps"`
	}{in.Kind, persisted(in.Value), jumps}, nil
}

// persisted writes an empty parameter list as [] rather than null.
func persisted(v Value) Value {
	if sig, ok := v.(Signature); ok && sig.Parameters == nil {
		sig.Parameters = []string{}
		return sig
	}
	return v
}

// UnmarshalYAML decodes the value according to the kind.
func (in *Instruction) UnmarshalYAML(node *yaml.Node) error {
	var w instructionYAML
	if err := node.Decode(&w); err != nil {
		return err
	}
	empty := w.Value.Kind == 0 || (w.Value.Kind == yaml.ScalarNode && w.Value.Tag == "!!null")
	v, err := decodeValue(w.Kind, w.Value.Decode, empty)
	if err != nil {
		return err
	}
	*in = Instruction{Kind: w.Kind, Value: v, Jumps: w.Jumps}
	return nil
}

// decodeValue decodes a persisted value into the variant required by kind.
func decodeValue(kind NodeKind, decode func(any) error, empty bool) (Value, error) {
	p, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown instruction kind %q", kind)
	}
	if empty {
		if p.value == shapeNone || kind == KindBegin {
			return nil, nil
		}
		return nil, fmt.Errorf("%s requires a value", kind)
	}

	var s string
	switch p.value {
	case shapeNone:
		return nil, nil
	case shapeOperator:
		err := decode(&s)
		return Operator(s), err
	case shapeName:
		err := decode(&s)
		return Name(s), err
	case shapeLiteral:
		err := decode(&s)
		return Literal(s), err
	case shapeSignature:
		var sig Signature
		err := decode(&sig)
		return sig, err
	case shapeCall:
		var c Call
		err := decode(&c)
		return c, err
	}
	return nil, fmt.Errorf("unsupported value for %s", kind)
}

// Program is the linearized form of a program: every function reachable
// from the entry point, by name, as an index-addressed instruction array.
type Program map[string][]Instruction

// Functions returns the function names in sorted order.
func (p Program) Functions() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Signature returns the declared signature of a function. It is carried by
// the BEGIN marker, or by a FUNCTION instruction following it.
func (p Program) Signature(name string) (Signature, bool) {
	code, ok := p[name]
	if !ok {
		return Signature{}, false
	}
	for _, in := range code[:min(2, len(code))] {
		if sig, ok := in.Value.(Signature); ok {
			return sig, true
		}
	}
	return Signature{Name: name}, true
}

// Validate checks instruction kinds, payloads and jump targets.
func (p Program) Validate() error {
	for _, name := range p.Functions() {
		code := p[name]
		if len(code) == 0 {
			return NewError(ErrInvalidIR, fmt.Sprintf("function %s has no instructions", name), -1)
		}
		if code[0].Kind != KindBegin {
			return NewError(ErrInvalidIR, fmt.Sprintf("function %s does not start with BEGIN", name), -1)
		}
		for i, in := range code {
			if !in.Kind.Valid() {
				return NewError(ErrInvalidIR, fmt.Sprintf("%s[%d]: unknown kind %q", name, i, in.Kind), -1)
			}
			if in.Value != nil || in.Kind != KindBegin {
				if err := checkValue(in.Kind, in.Value); err != nil {
					return NewError(ErrInvalidIR, fmt.Sprintf("%s[%d]: %v", name, i, err), -1)
				}
			}
			for e, t := range in.Jumps {
				if t != NoTarget && (t < 0 || t >= len(code)) {
					return NewError(ErrInvalidIR,
						fmt.Sprintf("%s[%d]: %s jump to %d out of range", name, i, e, t), -1)
				}
			}
		}
	}
	return nil
}

// UnmarshalJSON decodes and validates a persisted program.
func (p *Program) UnmarshalJSON(data []byte) error {
	var m map[string][]Instruction
	if err := json.Unmarshal(data, &m); err != nil {
		return NewError(ErrInvalidIR, err.Error(), -1).WithCause(err)
	}
	if err := Program(m).Validate(); err != nil {
		return err
	}
	*p = m
	return nil
}

// UnmarshalYAML decodes and validates a persisted program.
func (p *Program) UnmarshalYAML(node *yaml.Node) error {
	var m map[string][]Instruction
	if err := node.Decode(&m); err != nil {
		return NewError(ErrInvalidIR, err.Error(), -1).WithCause(err)
	}
	if err := Program(m).Validate(); err != nil {
		return err
	}
	*p = m
	return nil
}

// ParseProgramJSON decodes a program persisted as JSON.
func ParseProgramJSON(data []byte) (Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, asIRError(err)
	}
	return p, nil
}

// ParseProgramYAML decodes a program persisted as YAML.
func ParseProgramYAML(data []byte) (Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, asIRError(err)
	}
	return p, nil
}

func asIRError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrInvalidIR, err.Error(), -1).WithCause(err)
}
