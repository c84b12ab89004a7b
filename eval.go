package main

// Evaluate interprets a bound program directly, without compiling it.
// Shared subtrees are computed once.
func Evaluate(prog *BoundProgram) float64 {
	e := &evaluator{bindings: prog.Bindings, values: make(map[BoundExpr]float64)}
	return e.eval(prog.Root)
}

type evaluator struct {
	bindings []Binding
	values   map[BoundExpr]float64
}

func (e *evaluator) eval(expr BoundExpr) float64 {
	if v, ok := e.values[expr]; ok {
		return v
	}
	var v float64
	switch n := expr.(type) {
	case *BoundConst:
		return n.Value
	case *BoundBinding:
		return e.bindings[n.Slot].Value
	case *BoundBinary:
		v = applyOperator(n.Op, e.eval(n.Left), e.eval(n.Right))
	case *BoundBuiltin:
		args := make([]float64, len(n.Args))
		for i, arg := range n.Args {
			args[i] = e.eval(arg)
		}
		v = n.Builtin.Eval(args)
	default:
		panic("evaluator: unknown node " + expr.String())
	}
	e.values[expr] = v
	return v
}

func applyOperator(op Operator, a, b float64) float64 {
	switch op {
	case OperatorAdd:
		return a + b
	case OperatorSub:
		return a - b
	case OperatorMul:
		return a * b
	case OperatorDiv:
		return a / b
	}
	panic("applyOperator: unknown operator " + op.String())
}
