package main

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxInlineDepth bounds nested call inlining
	DefaultMaxInlineDepth = 256
	// DefaultMaxNodes bounds the number of distinct nodes in one bound program
	DefaultMaxNodes = 1 << 20
)

// BoundExpr is an expression with every identifier resolved:
// parameters and free variables became binding slots and user calls are inlined.
type BoundExpr interface {
	String() string
	boundNode()
}

type BoundConst struct {
	Value float64
}

func (c *BoundConst) String() string { return formatNumber(c.Value) }
func (c *BoundConst) boundNode()     {}

// BoundBinding reads binding Slot of the program
type BoundBinding struct {
	Slot int
	Name string
}

func (b *BoundBinding) String() string { return "$" + b.Name }
func (b *BoundBinding) boundNode()     {}

type BoundBinary struct {
	Op          Operator
	Left, Right BoundExpr
}

func (b *BoundBinary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}
func (b *BoundBinary) boundNode() {}

type BoundBuiltin struct {
	Builtin *Builtin
	Args    []BoundExpr
}

func (b *BoundBuiltin) String() string {
	args := make([]string, len(b.Args))
	for i, arg := range b.Args {
		args[i] = arg.String()
	}
	return b.Builtin.Name + "(" + strings.Join(args, ", ") + ")"
}
func (b *BoundBuiltin) boundNode() {}

// Binding is one named compile-time value
type Binding struct {
	Name  string
	Value float64
}

// BoundProgram is the Binder's output: a closed expression plus its binding table
type BoundProgram struct {
	Name     string
	Root     BoundExpr
	Bindings []Binding
}

// Binder resolves identifiers against bindings and inlines calls through env.
// A call with the same definition and the same argument subtrees is inlined
// once and shared, so the bound program is a DAG.
type Binder struct {
	env      *Environment
	maxDepth int
	maxNodes int
	stack    []string
	inlined  map[string]inlined
	nodes    int
	peak     int
	root     string
}

// inlined is a cached call expansion. height is how many nested calls deep it went.
type inlined struct {
	expr   BoundExpr
	height int
}

func NewBinder(env *Environment) *Binder {
	return &Binder{env: env, maxDepth: DefaultMaxInlineDepth, maxNodes: DefaultMaxNodes}
}

func (b *Binder) reset(root string) {
	b.stack = b.stack[:0]
	b.inlined = make(map[string]inlined)
	b.nodes = 0
	b.peak = 0
	b.root = root
}

// node counts a newly created node against the budget
func (b *Binder) node(expr BoundExpr) (BoundExpr, error) {
	b.nodes++
	if b.maxNodes > 0 && b.nodes > b.maxNodes {
		return nil, tooLarge(b.root, b.maxNodes)
	}
	return expr, nil
}

func inlineKey(def *FunctionDef, args []BoundExpr) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%p", def)
	for _, arg := range args {
		fmt.Fprintf(&sb, ",%p", arg)
	}
	return sb.String()
}

// scope maps visible names to the bound trees they stand for
type scope struct {
	fn   string
	vars map[string]BoundExpr
}

// BindFunction binds def's parameters positionally to bindings
func (b *Binder) BindFunction(def *FunctionDef, bindings []float64) (*BoundProgram, error) {
	if len(bindings) != len(def.Params) {
		return nil, arityMismatch(def.Name, len(def.Params), len(bindings))
	}
	prog := &BoundProgram{Name: def.Name}
	sc := &scope{fn: def.Name, vars: make(map[string]BoundExpr, len(def.Params))}
	for i, param := range def.Params {
		prog.Bindings = append(prog.Bindings, Binding{Name: param, Value: bindings[i]})
		sc.vars[param] = &BoundBinding{Slot: i, Name: param}
	}

	b.reset(def.Name)
	b.stack = append(b.stack, def.Name)
	root, err := b.bind(def.Body, sc)
	if err != nil {
		return nil, err
	}
	prog.Root = root
	return prog, nil
}

// BindExpression folds assigned session variables of expr in as constants,
// then binds the remaining free variables, in first-appearance order, to
// bindings. The counts must match exactly.
func (b *Binder) BindExpression(expr Expression, bindings []float64) (*BoundProgram, error) {
	b.reset("expression")
	prog := &BoundProgram{Name: "expr"}
	sc := &scope{fn: "expression", vars: make(map[string]BoundExpr)}
	var free []string
	for _, name := range FreeVariables(expr) {
		if v, ok := b.env.Var(name); ok {
			sc.vars[name] = &BoundConst{Value: v}
			continue
		}
		free = append(free, name)
	}
	if len(bindings) != len(free) {
		return nil, arityMismatch("", len(free), len(bindings))
	}
	for i, name := range free {
		prog.Bindings = append(prog.Bindings, Binding{Name: name, Value: bindings[i]})
		sc.vars[name] = &BoundBinding{Slot: i, Name: name}
	}

	root, err := b.bind(expr, sc)
	if err != nil {
		return nil, err
	}
	prog.Root = root
	return prog, nil
}

func (b *Binder) bind(expr Expression, sc *scope) (BoundExpr, error) {
	switch n := expr.(type) {
	case *NumberLiteral:
		return b.node(&BoundConst{Value: n.Value})

	case *VariableRef:
		if bound, ok := sc.vars[n.Name]; ok {
			return bound, nil
		}
		return nil, unboundVariable(n.Pos, sc.fn, n.Name)

	case *BinaryOp:
		left, err := b.bind(n.Left, sc)
		if err != nil {
			return nil, err
		}
		right, err := b.bind(n.Right, sc)
		if err != nil {
			return nil, err
		}
		return b.node(&BoundBinary{Op: n.Op, Left: left, Right: right})

	case *Call:
		args := make([]BoundExpr, len(n.Args))
		for i, arg := range n.Args {
			bound, err := b.bind(arg, sc)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		return b.bindCall(n, args)
	}
	return nil, syntaxErrorf(expr.Position(), "unsupported expression %s", expr)
}

// bindCall inlines a user function, or falls back to a builtin of that name
func (b *Binder) bindCall(call *Call, args []BoundExpr) (BoundExpr, error) {
	def, err := b.env.Lookup(call.Name)
	if err != nil {
		if builtin := LookupBuiltin(call.Name); builtin != nil {
			if len(args) != builtin.Arity {
				return nil, arityMismatch(call.Name, builtin.Arity, len(args))
			}
			return b.node(&BoundBuiltin{Builtin: builtin, Args: args})
		}
		return nil, err
	}

	if len(args) != len(def.Params) {
		return nil, arityMismatch(def.Name, len(def.Params), len(args))
	}
	for _, active := range b.stack {
		if active == def.Name {
			return nil, unsupportedRecursion(def.Name, strings.Join(append(b.stack, def.Name), " -> "))
		}
	}
	if len(b.stack) >= b.maxDepth {
		return nil, unsupportedRecursion(def.Name, "inlining depth limit exceeded")
	}

	// A cached expansion finished without a cycle, so it cannot reach
	// anything on the current stack either.
	key := inlineKey(def, args)
	if hit, ok := b.inlined[key]; ok {
		if len(b.stack)+hit.height > b.maxDepth {
			return nil, unsupportedRecursion(def.Name, "inlining depth limit exceeded")
		}
		if depth := len(b.stack) + hit.height; depth > b.peak {
			b.peak = depth
		}
		return hit.expr, nil
	}

	sc := &scope{fn: def.Name, vars: make(map[string]BoundExpr, len(def.Params))}
	for i, param := range def.Params {
		sc.vars[param] = args[i]
	}

	base := len(b.stack)
	outer := b.peak
	b.stack = append(b.stack, def.Name)
	b.peak = len(b.stack)
	expr, err := b.bind(def.Body, sc)
	b.stack = b.stack[:base]
	if err != nil {
		return nil, err
	}
	b.inlined[key] = inlined{expr: expr, height: b.peak - base}
	if outer > b.peak {
		b.peak = outer
	}
	return expr, nil
}

// Bind binds either a function definition or a bare expression
func Bind(env *Environment, target Node, bindings []float64) (*BoundProgram, error) {
	switch t := target.(type) {
	case *FunctionDef:
		return NewBinder(env).BindFunction(t, bindings)
	case *ExpressionStmt:
		return NewBinder(env).BindExpression(t.Expr, bindings)
	case Expression:
		return NewBinder(env).BindExpression(t, bindings)
	}
	return nil, syntaxErrorf(target.Position(), "cannot compile %s", target)
}

// BindFunction looks up name in env and binds it; see Binder.BindFunction
func BindFunction(env *Environment, name string, bindings []float64) (*BoundProgram, error) {
	def, err := env.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewBinder(env).BindFunction(def, bindings)
}

// BindExpression binds a bare expression; see Binder.BindExpression
func BindExpression(env *Environment, expr Expression, bindings []float64) (*BoundProgram, error) {
	return NewBinder(env).BindExpression(expr, bindings)
}
