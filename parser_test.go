package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignorePos = cmp.Comparer(func(Pos, Pos) bool { return true })

func num(v float64) *NumberLiteral  { return &NumberLiteral{Value: v} }
func ref(name string) *VariableRef  { return &VariableRef{Name: name} }
func bin(op Operator, l, r Expression) *BinaryOp {
	return &BinaryOp{Op: op, Left: l, Right: r}
}
func call(name string, args ...Expression) *Call { return &Call{Name: name, Args: args} }

func TestParseExpression(t *testing.T) {
	tests := []struct {
		input string
		want  Expression
	}{
		{"42", num(42)},
		{"10 + 5 * 3", bin('+', num(10), bin('*', num(5), num(3)))},
		{"(10 + 5) * 3", bin('*', bin('+', num(10), num(5)), num(3))},
		{"8 - 3 - 2", bin('-', bin('-', num(8), num(3)), num(2))},
		{"8 / 4 / 2", bin('/', bin('/', num(8), num(4)), num(2))},
		{"-3", num(-3)},
		{"-x", bin('*', num(-1), ref("x"))},
		{"2 - -3", bin('-', num(2), num(-3))},
		{"square(7)", call("square", num(7))},
		{"f()", call("f")},
		{"max(a, b * 2)", call("max", ref("a"), bin('*', ref("b"), num(2)))},
		{"f(\n1,\n2\n)", call("f", num(1), num(2))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpression(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, ignorePos); diff != "" {
				t.Errorf("ParseExpression(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseFunctionDef(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *FunctionDef
	}{
		{"fn", "fn square(x) { x * x }", &FunctionDef{Name: "square", Params: []string{"x"}, Body: bin('*', ref("x"), ref("x"))}},
		{"no params", "fn two() { 2 }", &FunctionDef{Name: "two", Body: num(2)}},
		{"arrow", "area = (w, h) => { w * h }", &FunctionDef{Name: "area", Params: []string{"w", "h"}, Body: bin('*', ref("w"), ref("h"))}},
		{"multi-line body", "fn f(a, b) {\n  a +\n  b\n}", &FunctionDef{Name: "f", Params: []string{"a", "b"}, Body: bin('+', ref("a"), ref("b"))}},
		{"free variable is accepted", "fn g(x) { x + y }", &FunctionDef{Name: "g", Params: []string{"x"}, Body: bin('+', ref("x"), ref("y"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, stmt, ignorePos); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseProgram(t *testing.T) {
	src := `
// definitions
fn square(x) { x * x }
cube = (x) => { x * square(x) }; square(2)

/* trailing */
`
	stmts, err := ParseProgram(src)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.IsType(t, &FunctionDef{}, stmts[0])
	assert.IsType(t, &FunctionDef{}, stmts[1])
	assert.IsType(t, &ExpressionStmt{}, stmts[2])
	assert.Equal(t, "square(2)", stmts[2].String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
		column  int
	}{
		{"unbalanced open", "(1 + 2", "unbalanced parentheses", 1, 7},
		{"unbalanced close", "1 + 2)", "unbalanced parentheses", 1, 6},
		{"duplicate parameter", "fn f(x, x) { x }", "duplicate parameter", 1, 9},
		{"empty body", "fn f(x) { }", "empty function body", 1, 11},
		{"unknown character", "2 $ 3", "unexpected character", 1, 3},
		{"trailing input", "1 2", "unexpected number", 1, 3},
		{"missing operand", "1 +", "unexpected end of input", 1, 4},
		{"missing fn name", "fn (x) { x }", "expected function name", 1, 4},
		{"empty input", "", "empty input", 1, 1},
		{"two statements", "1; 2", "expected a single statement", 1, 4},
		{"invalid number", "1e999", "invalid number", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Equal(t, KindSyntax, KindOf(err))
			assert.Contains(t, err.Error(), tt.message)

			var e *Error
			require.ErrorAs(t, err, &e)
			require.NotNil(t, e.Pos)
			assert.Equal(t, tt.line, e.Pos.Line, "line")
			assert.Equal(t, tt.column, e.Pos.Column, "column")
		})
	}
}

func TestParseExpressionRejectsDefinition(t *testing.T) {
	_, err := ParseExpression("fn f(x) { x }")
	require.Error(t, err)
	assert.Equal(t, KindSyntax, KindOf(err))

	_, err = ParseExpression("x = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignment to x")
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Statement
	}{
		{"simple", "x = 5", &Assignment{Names: []string{"x"}, Value: num(5)}},
		{"chained", "x = y = 5", &Assignment{Names: []string{"x", "y"}, Value: num(5)}},
		{"expression", "z = x + y", &Assignment{Names: []string{"z"}, Value: bin('+', ref("x"), ref("y"))}},
		{"parenthesized value", "r = (x + 1) * 2", &Assignment{Names: []string{"r"}, Value: bin('*', bin('+', ref("x"), num(1)), num(2))}},
		{"call value", "m = max(1, 2)", &Assignment{Names: []string{"m"}, Value: &Call{Name: "max", Args: []Expression{num(1), num(2)}}}},
		{"arrow is still a definition", "f = (x) => { x }", &FunctionDef{Name: "f", Params: []string{"x"}, Body: ref("x")}},
		{"underscore name", " _under = 10 ", &Assignment{Names: []string{"_under"}, Value: num(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, stmt, ignorePos); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseAssignmentErrors(t *testing.T) {
	for _, input := range []string{"x =", "x = = 1", "x = f = (a) => { a }", "x = 1 = 2"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.Equal(t, KindSyntax, KindOf(err))
		})
	}
}

func TestParseStatementsWithAssignments(t *testing.T) {
	for _, src := range []string{"x = 5; y = 10; z = x + y", "x = 3\ny = 4\nresult = x * y"} {
		stmts, err := ParseProgram(src)
		require.NoError(t, err)
		require.Len(t, stmts, 3)
		for _, stmt := range stmts {
			assert.IsType(t, &Assignment{}, stmt)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"10 + 5 * 3",
		"(a - b) / (c + 1.5)",
		"-x * max(y, -2)",
		"fn f(x, y) { sqrt(x * x + y * y) }",
		"a = b = (c + 1) / 2",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)
			second, err := Parse(first.String())
			require.NoError(t, err)
			if diff := cmp.Diff(first, second, ignorePos); diff != "" {
				t.Errorf("round trip of %q changed the tree (-first +second):\n%s", input, diff)
			}
		})
	}
}

func TestFreeVariables(t *testing.T) {
	expr, err := ParseExpression("b * a + f(c, b) - a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, FreeVariables(expr))
}
