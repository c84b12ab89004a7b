package main

import (
	"strconv"
	"strings"
)

// AST Nodes
type Node interface {
	String() string
	Position() Pos
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// Operator is one of the four arithmetic operators
type Operator byte

const (
	OperatorAdd Operator = '+'
	OperatorSub Operator = '-'
	OperatorMul Operator = '*'
	OperatorDiv Operator = '/'
)

func (o Operator) String() string { return string(o) }

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type NumberLiteral struct {
	Value float64
	Pos   Pos
}

func (n *NumberLiteral) String() string { return formatNumber(n.Value) }
func (n *NumberLiteral) Position() Pos  { return n.Pos }
func (n *NumberLiteral) expressionNode() {}

type VariableRef struct {
	Name string
	Pos  Pos
}

func (v *VariableRef) String() string  { return v.Name }
func (v *VariableRef) Position() Pos   { return v.Pos }
func (v *VariableRef) expressionNode() {}

type BinaryOp struct {
	Op    Operator
	Left  Expression
	Right Expression
	Pos   Pos
}

// String parenthesizes every binary node, so the output parses back to the same tree
func (b *BinaryOp) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}
func (b *BinaryOp) Position() Pos   { return b.Pos }
func (b *BinaryOp) expressionNode() {}

type Call struct {
	Name string
	Args []Expression
	Pos  Pos
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = arg.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}
func (c *Call) Position() Pos   { return c.Pos }
func (c *Call) expressionNode() {}

// FunctionDef is a named single-expression function
type FunctionDef struct {
	Name   string
	Params []string
	Body   Expression
	Pos    Pos
}

func (f *FunctionDef) String() string {
	return "fn " + f.Name + "(" + strings.Join(f.Params, ", ") + ") { " + f.Body.String() + " }"
}
func (f *FunctionDef) Position() Pos  { return f.Pos }
func (f *FunctionDef) statementNode() {}

// Assignment stores the value of Value in every name of Names, as in x = y = 5
type Assignment struct {
	Names []string
	Value Expression
	Pos   Pos
}

func (a *Assignment) String() string {
	return strings.Join(a.Names, " = ") + " = " + a.Value.String()
}
func (a *Assignment) Position() Pos  { return a.Pos }
func (a *Assignment) statementNode() {}

type ExpressionStmt struct {
	Expr Expression
}

func (e *ExpressionStmt) String() string { return e.Expr.String() }
func (e *ExpressionStmt) Position() Pos  { return e.Expr.Position() }
func (e *ExpressionStmt) statementNode() {}

// FreeVariables returns the distinct variable names of expr in first-appearance order
func FreeVariables(expr Expression) []string {
	refs := freeVariableRefs(expr)
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}

// freeVariableRefs returns the first reference to each distinct variable of expr
func freeVariableRefs(expr Expression) []*VariableRef {
	var refs []*VariableRef
	seen := make(map[string]bool)
	var walk func(Expression)
	walk = func(e Expression) {
		switch n := e.(type) {
		case *VariableRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				refs = append(refs, n)
			}
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *Call:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(expr)
	return refs
}
