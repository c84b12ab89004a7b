package main

import (
	"fmt"
)

// X86_64CodeGen encodes the SSE2 subset the native backend needs
type X86_64CodeGen struct {
	out *Out
	err error
}

func NewX86_64CodeGen(out *Out) *X86_64CodeGen {
	return &X86_64CodeGen{out: out}
}

// Err returns the first encoding error, such as an unknown register name
func (x *X86_64CodeGen) Err() error {
	return x.err
}

func (x *X86_64CodeGen) write(b uint8) {
	x.out.Write(b)
}

func (x *X86_64CodeGen) writeUnsigned(i uint32) {
	x.out.Write4(i)
}

func (x *X86_64CodeGen) gpr(name string) uint8 {
	r, ok := x86_64Registers[name]
	if !ok {
		x.fail("unknown register: %s", name)
	}
	return r.Encoding
}

func (x *X86_64CodeGen) xmm(name string) uint8 {
	r, ok := x86_64XMMRegisters[name]
	if !ok {
		x.fail("unknown xmm register: %s", name)
	}
	return r.Encoding
}

func (x *X86_64CodeGen) fail(format string, args ...any) {
	if x.err == nil {
		x.err = fmt.Errorf(format, args...)
	}
}

// rex writes a REX prefix when w is set or either register is r8 and up
func (x *X86_64CodeGen) rex(w bool, reg, rm uint8) {
	rex := uint8(0x40)
	if w {
		rex |= 0x08
	}
	if reg >= 8 {
		rex |= 0x04
	}
	if rm >= 8 {
		rex |= 0x01
	}
	if rex != 0x40 {
		x.write(rex)
	}
}

// memOperand writes ModRM (+SIB, +displacement) for [base+offset]
func (x *X86_64CodeGen) memOperand(reg, base uint8, offset int32) {
	switch {
	case offset == 0 && (base&7) != 5:
		x.write((reg&7)<<3 | (base & 7))
		if (base & 7) == 4 {
			x.write(0x24)
		}
	case offset >= -128 && offset < 128:
		x.write(0x40 | (reg&7)<<3 | (base & 7))
		if (base & 7) == 4 {
			x.write(0x24)
		}
		x.write(uint8(int8(offset)))
	default:
		x.write(0x80 | (reg&7)<<3 | (base & 7))
		if (base & 7) == 4 {
			x.write(0x24)
		}
		x.writeUnsigned(uint32(offset))
	}
}

func (x *X86_64CodeGen) Ret() {
	x.write(0xC3)
}

func (x *X86_64CodeGen) Leave() {
	x.write(0xC9)
}

func (x *X86_64CodeGen) PushReg(reg string) {
	r := x.gpr(reg)
	if r >= 8 {
		x.write(0x41)
	}
	x.write(0x50 + (r & 7))
}

// ===== Data Movement =====

func (x *X86_64CodeGen) MovRegToReg(dst, src string) {
	d, s := x.gpr(dst), x.gpr(src)
	x.rex(true, s, d)
	x.write(0x89)
	x.write(0xC0 | (s&7)<<3 | (d & 7))
}

// MovImmToReg loads a full 64-bit immediate (movabs)
func (x *X86_64CodeGen) MovImmToReg(dst string, imm uint64) {
	d := x.gpr(dst)
	x.rex(true, 0, d)
	x.write(0xB8 + (d & 7))
	x.out.Write8(imm)
}

func (x *X86_64CodeGen) MovRegToMem(src, base string, offset int32) {
	s, b := x.gpr(src), x.gpr(base)
	x.rex(true, s, b)
	x.write(0x89)
	x.memOperand(s, b, offset)
}

func (x *X86_64CodeGen) MovMemToReg(dst, base string, offset int32) {
	d, b := x.gpr(dst), x.gpr(base)
	x.rex(true, d, b)
	x.write(0x8B)
	x.memOperand(d, b, offset)
}

// MovXmmToMem is movsd [base+offset], src
func (x *X86_64CodeGen) MovXmmToMem(src, base string, offset int32) {
	s, b := x.xmm(src), x.gpr(base)
	x.write(0xF2)
	x.rex(false, s, b)
	x.write(0x0F)
	x.write(0x11)
	x.memOperand(s, b, offset)
}

// MovMemToXmm is movsd dst, [base+offset]
func (x *X86_64CodeGen) MovMemToXmm(dst, base string, offset int32) {
	d, b := x.xmm(dst), x.gpr(base)
	x.write(0xF2)
	x.rex(false, d, b)
	x.write(0x0F)
	x.write(0x10)
	x.memOperand(d, b, offset)
}

func (x *X86_64CodeGen) MovapdXmm(dst, src string) {
	d, s := x.xmm(dst), x.xmm(src)
	x.write(0x66)
	x.rex(false, d, s)
	x.write(0x0F)
	x.write(0x28)
	x.write(0xC0 | (d&7)<<3 | (s & 7))
}

// ===== Arithmetic =====

func (x *X86_64CodeGen) SubImmFromReg(dst string, imm int32) {
	d := x.gpr(dst)
	x.rex(true, 0, d)
	if imm >= -128 && imm < 128 {
		x.write(0x83)
		x.write(0xC0 | 5<<3 | (d & 7))
		x.write(uint8(int8(imm)))
		return
	}
	x.write(0x81)
	x.write(0xC0 | 5<<3 | (d & 7))
	x.writeUnsigned(uint32(imm))
}

// BtrImm clears bit n of dst
func (x *X86_64CodeGen) BtrImm(dst string, bit uint8) {
	d := x.gpr(dst)
	x.rex(true, 0, d)
	x.write(0x0F)
	x.write(0xBA)
	x.write(0xC0 | 6<<3 | (d & 7))
	x.write(bit)
}

// scalarXmm writes a F2 0F <op> scalar double instruction
func (x *X86_64CodeGen) scalarXmm(op uint8, dst, src string) {
	d, s := x.xmm(dst), x.xmm(src)
	x.write(0xF2)
	x.rex(false, d, s)
	x.write(0x0F)
	x.write(op)
	x.write(0xC0 | (d&7)<<3 | (s & 7))
}

func (x *X86_64CodeGen) AddsdXmm(dst, src string)  { x.scalarXmm(0x58, dst, src) }
func (x *X86_64CodeGen) SubsdXmm(dst, src string)  { x.scalarXmm(0x5C, dst, src) }
func (x *X86_64CodeGen) MulsdXmm(dst, src string)  { x.scalarXmm(0x59, dst, src) }
func (x *X86_64CodeGen) DivsdXmm(dst, src string)  { x.scalarXmm(0x5E, dst, src) }
func (x *X86_64CodeGen) SqrtsdXmm(dst, src string) { x.scalarXmm(0x51, dst, src) }
func (x *X86_64CodeGen) MinsdXmm(dst, src string)  { x.scalarXmm(0x5D, dst, src) }
func (x *X86_64CodeGen) MaxsdXmm(dst, src string)  { x.scalarXmm(0x5F, dst, src) }

// ===== Comparison and Jumps =====

func (x *X86_64CodeGen) Ucomisd(reg1, reg2 string) {
	a, b := x.xmm(reg1), x.xmm(reg2)
	x.write(0x66)
	x.rex(false, a, b)
	x.write(0x0F)
	x.write(0x2E)
	x.write(0xC0 | (a&7)<<3 | (b & 7))
}

// JumpParityShort jumps rel bytes forward when PF is set, which
// ucomisd uses to report an unordered (NaN) comparison
func (x *X86_64CodeGen) JumpParityShort(rel int8) {
	x.write(0x7A)
	x.write(uint8(rel))
}
