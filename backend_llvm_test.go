//go:build llvm

package main

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLVMBackendIsAuto(t *testing.T) {
	b, err := NewBackend("auto", BackendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "llvm", b.Name())
}

func TestLLVMBackendCrossTarget(t *testing.T) {
	env := envWith(t, "fn hyp(a, b) { sqrt(a * a + b * b) }")
	prog := mustLower(t, env, "min(hyp(x, 4), abs(y))", 3, -2)
	b := NewLLVMBackend(BackendOptions{OptLevel: 2, Logger: nopLogger(t)})

	for _, target := range []Platform{{ArchX86_64, OSLinux}, {ArchARM64, OSLinux}} {
		t.Run(target.String(), func(t *testing.T) {
			obj, err := b.GenerateObject(testContext(t), prog, target)
			require.NoError(t, err)

			f, err := elf.NewFile(bytes.NewReader(obj))
			require.NoError(t, err)
			defer f.Close()
			assert.Equal(t, elf.Machine(target.ELFMachine()), f.Machine)

			syms, err := f.Symbols()
			require.NoError(t, err)
			var found bool
			for _, s := range syms {
				if s.Name == EntrySymbol {
					found = true
					assert.Equal(t, elf.STT_FUNC, elf.ST_TYPE(s.Info))
				}
			}
			assert.True(t, found, "no %s symbol", EntrySymbol)
		})
	}
}
