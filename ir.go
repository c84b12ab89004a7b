package main

import (
	"fmt"
	"strings"
)

// EntrySymbol is the name of the generated function: double calc_compute(void)
const EntrySymbol = "calc_compute"

// Op is an IR instruction opcode
type Op uint8

const (
	OpConst       Op = iota // value = Const
	OpLoadBinding           // value = Bindings[Slot]
	OpAdd                   // value = Args[0] + Args[1]
	OpSub
	OpMul
	OpDiv
	OpCall   // value = Callee(Args...)
	OpReturn // return Args[0]
)

var opNames = [...]string{
	OpConst:       "const",
	OpLoadBinding: "load-binding",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpCall:        "call",
	OpReturn:      "ret",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

var operatorOps = map[Operator]Op{
	OperatorAdd: OpAdd,
	OperatorSub: OpSub,
	OperatorMul: OpMul,
	OperatorDiv: OpDiv,
}

// Instr is one IR instruction. The value an instruction defines is
// numbered by its index in IRProgram.Instrs.
type Instr struct {
	Op     Op
	Args   []int
	Const  float64
	Slot   int
	Callee *Builtin
}

// IRProgram is a straight-line computation ending in a single OpReturn
type IRProgram struct {
	Name     string
	Symbol   string
	Bindings []Binding
	Instrs   []Instr
	Warnings []string
}

type lowering struct {
	prog   *IRProgram
	values map[BoundExpr]int
}

// Lower turns a bound program into IR with one bottom-up walk.
// A subtree shared by several parents, such as an inlined argument, is lowered once.
func Lower(bound *BoundProgram) (*IRProgram, error) {
	l := &lowering{
		prog: &IRProgram{
			Name:     bound.Name,
			Symbol:   EntrySymbol,
			Bindings: append([]Binding(nil), bound.Bindings...),
		},
		values: make(map[BoundExpr]int),
	}
	result, err := l.lower(bound.Root)
	if err != nil {
		return nil, err
	}
	l.prog.Instrs = append(l.prog.Instrs, Instr{Op: OpReturn, Args: []int{result}})
	if err := l.prog.Validate(); err != nil {
		return nil, err
	}
	return l.prog, nil
}

func (l *lowering) emit(in Instr) int {
	l.prog.Instrs = append(l.prog.Instrs, in)
	return len(l.prog.Instrs) - 1
}

func (l *lowering) lower(expr BoundExpr) (int, error) {
	if v, ok := l.values[expr]; ok {
		return v, nil
	}

	var v int
	switch n := expr.(type) {
	case *BoundConst:
		v = l.emit(Instr{Op: OpConst, Const: n.Value})

	case *BoundBinding:
		if n.Slot < 0 || n.Slot >= len(l.prog.Bindings) {
			return 0, fmt.Errorf("binding slot %d out of range", n.Slot)
		}
		v = l.emit(Instr{Op: OpLoadBinding, Slot: n.Slot})

	case *BoundBinary:
		left, err := l.lower(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := l.lower(n.Right)
		if err != nil {
			return 0, err
		}
		if c, ok := n.Right.(*BoundConst); ok && n.Op == OperatorDiv && c.Value == 0 {
			l.prog.Warnings = append(l.prog.Warnings, fmt.Sprintf("division by literal zero in %s", n))
		}
		v = l.emit(Instr{Op: operatorOps[n.Op], Args: []int{left, right}})

	case *BoundBuiltin:
		args := make([]int, len(n.Args))
		for i, arg := range n.Args {
			a, err := l.lower(arg)
			if err != nil {
				return 0, err
			}
			args[i] = a
		}
		v = l.emit(Instr{Op: OpCall, Args: args, Callee: n.Builtin})

	default:
		return 0, fmt.Errorf("cannot lower %T", expr)
	}

	l.values[expr] = v
	return v, nil
}

// Validate checks that operands refer to earlier values and that
// the program ends with its only OpReturn
func (p *IRProgram) Validate() error {
	if len(p.Instrs) == 0 || p.Instrs[len(p.Instrs)-1].Op != OpReturn {
		return fmt.Errorf("ir: program %q does not end with ret", p.Name)
	}
	for i, in := range p.Instrs {
		if in.Op == OpReturn && i != len(p.Instrs)-1 {
			return fmt.Errorf("ir: ret at %d is not the last instruction", i)
		}
		want := 0
		switch in.Op {
		case OpAdd, OpSub, OpMul, OpDiv:
			want = 2
		case OpReturn:
			want = 1
		case OpCall:
			if in.Callee == nil {
				return fmt.Errorf("ir: call at %d has no callee", i)
			}
			want = in.Callee.Arity
		case OpLoadBinding:
			if in.Slot < 0 || in.Slot >= len(p.Bindings) {
				return fmt.Errorf("ir: load-binding at %d uses slot %d of %d", i, in.Slot, len(p.Bindings))
			}
		}
		if len(in.Args) != want {
			return fmt.Errorf("ir: %s at %d has %d operand(s), want %d", in.Op, i, len(in.Args), want)
		}
		for _, a := range in.Args {
			if a < 0 || a >= i || p.Instrs[a].Op == OpReturn {
				return fmt.Errorf("ir: %s at %d uses invalid value %%%d", in.Op, i, a)
			}
		}
	}
	return nil
}

// Result is the value number returned by the program
func (p *IRProgram) Result() int {
	return p.Instrs[len(p.Instrs)-1].Args[0]
}

// Exec interprets the IR
func (p *IRProgram) Exec() float64 {
	values := make([]float64, len(p.Instrs))
	for i, in := range p.Instrs {
		switch in.Op {
		case OpConst:
			values[i] = in.Const
		case OpLoadBinding:
			values[i] = p.Bindings[in.Slot].Value
		case OpAdd:
			values[i] = values[in.Args[0]] + values[in.Args[1]]
		case OpSub:
			values[i] = values[in.Args[0]] - values[in.Args[1]]
		case OpMul:
			values[i] = values[in.Args[0]] * values[in.Args[1]]
		case OpDiv:
			values[i] = values[in.Args[0]] / values[in.Args[1]]
		case OpCall:
			args := make([]float64, len(in.Args))
			for j, a := range in.Args {
				args[j] = values[a]
			}
			values[i] = in.Callee.Eval(args)
		case OpReturn:
			return values[in.Args[0]]
		}
	}
	return 0
}

func (p *IRProgram) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; %s\n", p.Name)
	for i, b := range p.Bindings {
		fmt.Fprintf(&sb, "; binding %d %s = %s\n", i, b.Name, formatNumber(b.Value))
	}
	fmt.Fprintf(&sb, "func %s() double {\n", p.Symbol)
	for i, in := range p.Instrs {
		switch in.Op {
		case OpConst:
			fmt.Fprintf(&sb, "  %%%d = const %s\n", i, formatNumber(in.Const))
		case OpLoadBinding:
			fmt.Fprintf(&sb, "  %%%d = load-binding %d\n", i, in.Slot)
		case OpReturn:
			fmt.Fprintf(&sb, "  ret %%%d\n", in.Args[0])
		case OpCall:
			fmt.Fprintf(&sb, "  %%%d = call %s(%s)\n", i, in.Callee.Name, formatValues(in.Args))
		default:
			fmt.Fprintf(&sb, "  %%%d = %s %s\n", i, in.Op, formatValues(in.Args))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func formatValues(args []int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%%%d", a)
	}
	return strings.Join(parts, ", ")
}
