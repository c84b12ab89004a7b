package main

import (
	"bytes"
	"debug/elf"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	for _, name := range AvailableBackends() {
		t.Run(name, func(t *testing.T) {
			b, err := NewBackend(name, BackendOptions{})
			require.NoError(t, err)
			assert.Equal(t, name, b.Name())
		})
	}

	b, err := NewBackend("auto", BackendOptions{})
	require.NoError(t, err)
	if _, ok := backendFactories["llvm"]; ok {
		assert.Equal(t, "llvm", b.Name())
	} else {
		assert.Equal(t, "cc", b.Name())
	}

	_, err = NewBackend("gcc-jit", BackendOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: auto, ")
	assert.Contains(t, err.Error(), "native")
}

func TestCFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "0x1p+00"},
		{0.5, "0x1p-01"},
		{0, "0x0p+00"},
		{-2, "(-0x1p+01)"},
		{math.Inf(1), "INFINITY"},
		{math.Inf(-1), "(-INFINITY)"},
		{math.NaN(), "NAN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cFloat(tt.in), "cFloat(%v)", tt.in)
	}
}

func TestClampOptLevel(t *testing.T) {
	assert.Equal(t, 0, clampOptLevel(-1))
	assert.Equal(t, 2, clampOptLevel(2))
	assert.Equal(t, 3, clampOptLevel(9))
}

func TestRenderC(t *testing.T) {
	env := envWith(t, "fn square(x) { x * x }")
	bound, err := BindFunction(env, "square", []float64{7})
	require.NoError(t, err)
	prog, err := Lower(bound)
	require.NoError(t, err)

	want := `/* square */
#include <math.h>

double calc_compute(void)
{
	const double v0 = 0x1.cp+02; /* x */
	const double v1 = v0 * v0;
	return v1;
}
`
	assert.Equal(t, want, RenderC(prog))

	prog = mustLower(t, NewEnvironment(), "min(abs(a), sqrt(b))", -1, 4)
	src := RenderC(prog)
	assert.Contains(t, src, "fabs(v0)")
	assert.Contains(t, src, "sqrt(v2)")
	assert.Contains(t, src, "fmin(v1, v3)")
}

func TestCCBackendGenerateObject(t *testing.T) {
	requireCC(t)
	prog := mustLower(t, NewEnvironment(), "10 + 5 * 3")
	b := NewCCBackend(BackendOptions{OptLevel: 2, Logger: nopLogger(t)})

	obj, err := b.GenerateObject(testContext(t), prog, HostPlatform())
	require.NoError(t, err)
	require.NotEmpty(t, obj)

	if HostPlatform().IsELF() {
		f, err := elf.NewFile(bytes.NewReader(obj))
		require.NoError(t, err)
		defer f.Close()
		syms, err := f.Symbols()
		require.NoError(t, err)
		var found bool
		for _, s := range syms {
			found = found || s.Name == EntrySymbol
		}
		assert.True(t, found, "object does not define %s", EntrySymbol)
	}
}

func TestCCBackendErrors(t *testing.T) {
	prog := mustLower(t, NewEnvironment(), "1")

	other := Platform{Arch: ArchRiscv64, OS: OSFreeBSD}
	if other.IsHost() {
		other = Platform{Arch: ArchX86_64, OS: OSWindows}
	}
	_, err := NewCCBackend(BackendOptions{Logger: nopLogger(t)}).GenerateObject(testContext(t), prog, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only compiles for the host")

	_, err = NewCCBackend(BackendOptions{CC: "calcc-no-such-cc", Logger: nopLogger(t)}).GenerateObject(testContext(t), prog, HostPlatform())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calcc-no-such-cc")
}

func TestNativeBackendRejectsTargets(t *testing.T) {
	prog := mustLower(t, NewEnvironment(), "1")
	b := NewNativeBackend(BackendOptions{Logger: nopLogger(t)})
	for _, target := range []Platform{
		{Arch: ArchARM64, OS: OSLinux},
		{Arch: ArchX86_64, OS: OSDarwin},
		{Arch: ArchX86_64, OS: OSWindows},
	} {
		_, err := b.GenerateObject(testContext(t), prog, target)
		require.Error(t, err, target.String())
		assert.True(t, strings.Contains(err.Error(), target.String()))
	}
}
