package main

// ELF64 relocatable object layout
const (
	elfHeaderSize    = 64
	elfSectionSize   = 64
	elfSymbolSize    = 24
	elfTypeRel       = 1
	shtProgbits      = 1
	shtSymtab        = 2
	shtStrtab        = 3
	shfAlloc         = 0x2
	shfExecInstr     = 0x4
	stbGlobal        = 1
	sttFunc          = 2
	elfTextSection   = 1
	elfSectionCount  = 6
	elfShstrtabIndex = 5
)

type elfSection struct {
	name      string
	typ       uint32
	flags     uint64
	offset    uint64
	size      uint64
	link      uint32
	info      uint32
	addralign uint64
	entsize   uint64
}

// stringTable builds a NUL-separated ELF string table
type stringTable struct {
	data []byte
}

func newStringTable() *stringTable {
	return &stringTable{data: []byte{0}}
}

func (s *stringTable) add(name string) uint32 {
	off := uint32(len(s.data))
	s.data = append(append(s.data, name...), 0)
	return off
}

// WriteELFObject returns a relocatable ELF64 object holding text as
// .text with one global function symbol covering all of it
func WriteELFObject(machine uint16, text []byte, symbol string) []byte {
	strtab := newStringTable()
	symName := strtab.add(symbol)

	shstrtab := newStringTable()
	names := map[string]uint32{}
	for _, n := range []string{".text", ".note.GNU-stack", ".symtab", ".strtab", ".shstrtab"} {
		names[n] = shstrtab.add(n)
	}

	o := &Out{}
	o.WriteN(0, elfHeaderSize)

	textOff := o.Len()
	o.WriteBytes(text)

	o.Align(8)
	symOff := o.Len()
	o.WriteN(0, elfSymbolSize) // null symbol
	o.Write4(symName)
	o.Write(stbGlobal<<4 | sttFunc)
	o.Write(0) // default visibility
	o.Write2(elfTextSection)
	o.Write8(0)
	o.Write8(uint64(len(text)))

	strOff := o.Len()
	o.WriteBytes(strtab.data)
	shstrOff := o.Len()
	o.WriteBytes(shstrtab.data)

	sections := []elfSection{
		{},
		{name: ".text", typ: shtProgbits, flags: shfAlloc | shfExecInstr, offset: uint64(textOff), size: uint64(len(text)), addralign: 16},
		{name: ".note.GNU-stack", typ: shtProgbits, offset: uint64(strOff), addralign: 1},
		{name: ".symtab", typ: shtSymtab, offset: uint64(symOff), size: 2 * elfSymbolSize, link: 4, info: 1, addralign: 8, entsize: elfSymbolSize},
		{name: ".strtab", typ: shtStrtab, offset: uint64(strOff), size: uint64(len(strtab.data)), addralign: 1},
		{name: ".shstrtab", typ: shtStrtab, offset: uint64(shstrOff), size: uint64(len(shstrtab.data)), addralign: 1},
	}

	o.Align(8)
	shOff := o.Len()
	for _, s := range sections {
		if s.name == "" {
			o.WriteN(0, elfSectionSize)
			continue
		}
		o.Write4(names[s.name])
		o.Write4(s.typ)
		o.Write8(s.flags)
		o.Write8(0) // addr
		o.Write8(s.offset)
		o.Write8(s.size)
		o.Write4(s.link)
		o.Write4(s.info)
		o.Write8(s.addralign)
		o.Write8(s.entsize)
	}

	obj := o.Bytes()
	h := &Out{}
	h.WriteBytes([]byte{0x7f, 'E', 'L', 'F'})
	h.Write(2)              // 64-bit
	h.Write(1)              // little endian
	h.Write(1)              // ELF version
	h.Write(0)              // System V ABI
	h.WriteN(0, 8)          // ABI version and padding
	h.Write2(elfTypeRel)    // relocatable object
	h.Write2(machine)       // AMD x86-64 is 0x3e
	h.Write4(1)             // ELF version
	h.Write8(0)             // no entry point
	h.Write8(0)             // no program headers
	h.Write8(uint64(shOff)) // section header table
	h.Write4(0)             // flags
	h.Write2(elfHeaderSize)
	h.Write2(0) // program header entry size
	h.Write2(0) // program header count
	h.Write2(elfSectionSize)
	h.Write2(elfSectionCount)
	h.Write2(elfShstrtabIndex)
	copy(obj, h.Bytes())
	return obj
}
