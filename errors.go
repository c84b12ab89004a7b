package main

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a compilation failure
type Kind int

const (
	KindUnknown Kind = iota
	KindSyntax
	KindUndefinedFunction
	KindArityMismatch
	KindUnsupportedRecursion
	KindUnboundVariable
	KindTooLarge
	KindBackend
	KindLink
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindUndefinedFunction:
		return "UndefinedFunction"
	case KindArityMismatch:
		return "ArityMismatch"
	case KindUnsupportedRecursion:
		return "UnsupportedRecursion"
	case KindUnboundVariable:
		return "UnboundVariable"
	case KindTooLarge:
		return "ExpressionTooLarge"
	case KindBackend:
		return "BackendError"
	case KindLink:
		return "LinkError"
	case KindIO:
		return "IOError"
	default:
		return "Error"
	}
}

// Error is the error type returned by every pipeline stage.
// Name, Expected and Actual are only meaningful for some kinds.
type Error struct {
	Kind     Kind
	Msg      string
	Pos      *Pos
	Name     string
	Expected int
	Actual   int
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Pos != nil {
		msg += " at " + e.Pos.String()
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func syntaxErrorf(pos Pos, format string, args ...interface{}) error {
	return &Error{Kind: KindSyntax, Pos: &pos, Msg: fmt.Sprintf(format, args...)}
}

func undefinedFunction(name string) error {
	return &Error{Kind: KindUndefinedFunction, Name: name, Msg: fmt.Sprintf("undefined function %q", name)}
}

func arityMismatch(name string, expected, actual int) error {
	msg := fmt.Sprintf("expected %d binding(s), got %d", expected, actual)
	if name != "" {
		msg = fmt.Sprintf("%s: expected %d argument(s), got %d", name, expected, actual)
	}
	return &Error{Kind: KindArityMismatch, Name: name, Expected: expected, Actual: actual, Msg: msg}
}

func unsupportedRecursion(name, cycle string) error {
	return &Error{Kind: KindUnsupportedRecursion, Name: name, Msg: "recursive call is not supported: " + cycle}
}

func unboundVariable(pos Pos, fn, name string) error {
	return &Error{Kind: KindUnboundVariable, Pos: &pos, Name: name, Msg: fmt.Sprintf("%q is not a parameter of %s", name, fn)}
}

func unassignedVariable(pos Pos, name string) error {
	return &Error{Kind: KindUnboundVariable, Pos: &pos, Name: name, Msg: fmt.Sprintf("%q has no value", name)}
}

func tooLarge(name string, limit int) error {
	return &Error{Kind: KindTooLarge, Name: name, Expected: limit, Msg: fmt.Sprintf("%s expands to more than %d nodes", name, limit)}
}

func backendError(backend string, err error) error {
	return &Error{Kind: KindBackend, Msg: backend, Err: err}
}

func linkError(msg string, err error) error {
	return &Error{Kind: KindLink, Msg: msg, Err: err}
}

func ioError(op string, err error) error {
	return &Error{Kind: KindIO, Msg: op, Err: err}
}
