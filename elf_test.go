package main

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteELFObject(t *testing.T) {
	text := []byte{0x55, 0x48, 0x89, 0xE5, 0xC9, 0xC3}
	obj := WriteELFObject(uint16(elf.EM_X86_64), text, EntrySymbol)

	f, err := elf.NewFile(bytes.NewReader(obj))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, elf.ELFCLASS64, f.Class)
	assert.Equal(t, elf.ELFDATA2LSB, f.Data)
	assert.Equal(t, elf.ET_REL, f.Type)
	assert.Equal(t, elf.EM_X86_64, f.Machine)

	textSec := f.Section(".text")
	require.NotNil(t, textSec)
	assert.Equal(t, elf.SHT_PROGBITS, textSec.Type)
	assert.Equal(t, elf.SHF_ALLOC|elf.SHF_EXECINSTR, textSec.Flags)
	data, err := textSec.Data()
	require.NoError(t, err)
	assert.Equal(t, text, data)

	stack := f.Section(".note.GNU-stack")
	require.NotNil(t, stack)
	assert.Zero(t, stack.Size)
	assert.Zero(t, stack.Flags&elf.SHF_EXECINSTR)

	syms, err := f.Symbols()
	require.NoError(t, err)
	require.Len(t, syms, 1)
	sym := syms[0]
	assert.Equal(t, EntrySymbol, sym.Name)
	assert.Equal(t, elf.STB_GLOBAL, elf.ST_BIND(sym.Info))
	assert.Equal(t, elf.STT_FUNC, elf.ST_TYPE(sym.Info))
	assert.Equal(t, elf.SectionIndex(1), sym.Section)
	assert.Equal(t, uint64(0), sym.Value)
	assert.Equal(t, uint64(len(text)), sym.Size)
}

func TestWriteELFObjectMachine(t *testing.T) {
	obj := WriteELFObject(Platform{Arch: ArchARM64, OS: OSLinux}.ELFMachine(), []byte{0xC0, 0x03, 0x5F, 0xD6}, "f")
	f, err := elf.NewFile(bytes.NewReader(obj))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, elf.EM_AARCH64, f.Machine)
}

func TestNativeObjectParses(t *testing.T) {
	env := envWith(t, "fn hyp(a, b) { sqrt(a * a + b * b) }")
	prog := mustLower(t, env, "max(hyp(x, 4), abs(-2))", 3)

	target := Platform{Arch: ArchX86_64, OS: OSLinux}
	obj, err := NewNativeBackend(BackendOptions{Logger: nopLogger(t)}).GenerateObject(testContext(t), prog, target)
	require.NoError(t, err)

	f, err := elf.NewFile(bytes.NewReader(obj))
	require.NoError(t, err)
	defer f.Close()
	syms, err := f.Symbols()
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, EntrySymbol, syms[0].Name)
	assert.Equal(t, f.Section(".text").Size, syms[0].Size)
}
