package main

import "math"

// Builtin is a math function every backend can generate code for.
// CName is the math.h function the C backend calls.
type Builtin struct {
	Name  string
	Arity int
	CName string
	Eval  func(args []float64) float64
}

var builtins = map[string]*Builtin{
	"sqrt": {Name: "sqrt", Arity: 1, CName: "sqrt", Eval: func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"abs":  {Name: "abs", Arity: 1, CName: "fabs", Eval: func(a []float64) float64 { return math.Abs(a[0]) }},
	"min":  {Name: "min", Arity: 2, CName: "fmin", Eval: func(a []float64) float64 { return minsd(a[0], a[1]) }},
	"max":  {Name: "max", Arity: 2, CName: "fmax", Eval: func(a []float64) float64 { return maxsd(a[0], a[1]) }},
}

// LookupBuiltin returns the builtin called name, or nil
func LookupBuiltin(name string) *Builtin {
	return builtins[name]
}

// minsd and maxsd follow fmin/fmax: a NaN operand yields the other operand
func minsd(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Min(a, b)
}

func maxsd(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Max(a, b)
}
