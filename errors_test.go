package main

import (
	"io/fs"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "SyntaxError", KindSyntax.String())
	assert.Equal(t, "UndefinedFunction", KindUndefinedFunction.String())
	assert.Equal(t, "ArityMismatch", KindArityMismatch.String())
	assert.Equal(t, "UnsupportedRecursion", KindUnsupportedRecursion.String())
	assert.Equal(t, "UnboundVariable", KindUnboundVariable.String())
	assert.Equal(t, "ExpressionTooLarge", KindTooLarge.String())
	assert.Equal(t, "BackendError", KindBackend.String())
	assert.Equal(t, "LinkError", KindLink.String())
	assert.Equal(t, "IOError", KindIO.String())
	assert.Equal(t, "Error", KindUnknown.String())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{syntaxErrorf(Pos{Offset: 4, Line: 2, Column: 3}, "unexpected %s", "')'"), "SyntaxError at 2:3: unexpected ')'"},
		{undefinedFunction("g"), `UndefinedFunction: undefined function "g"`},
		{arityMismatch("square", 1, 0), "ArityMismatch: square: expected 1 argument(s), got 0"},
		{arityMismatch("", 2, 3), "ArityMismatch: expected 2 binding(s), got 3"},
		{unsupportedRecursion("f", "f -> f"), "UnsupportedRecursion: recursive call is not supported: f -> f"},
		{backendError("cc", errors.New("boom")), "BackendError: cc: boom"},
		{linkError("cc failed", errors.New("exit status 1")), "LinkError: cc failed: exit status 1"},
	}
	for _, tt := range tests {
		assert.EqualError(t, tt.err, tt.want)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := errors.Wrap(ioError("load defs.calc", fs.ErrNotExist), "setup")
	assert.Equal(t, KindIO, KindOf(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}
