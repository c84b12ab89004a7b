package main

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// NativeBackend encodes x86_64 SSE2 code directly and wraps it in an ELF
// object, so no compiler is needed before linking. Every IR value gets an
// 8-byte stack slot below rbp.
type NativeBackend struct {
	log *zap.Logger
}

func NewNativeBackend(opts BackendOptions) *NativeBackend {
	return &NativeBackend{log: opts.Logger}
}

func (b *NativeBackend) Name() string { return "native" }

func (b *NativeBackend) GenerateObject(ctx context.Context, prog *IRProgram, target Platform) ([]byte, error) {
	if target.Arch != ArchX86_64 || !target.IsELF() {
		return nil, fmt.Errorf("native backend only targets x86_64 ELF platforms, not %s", target)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := b.generateText(prog)
	if err != nil {
		return nil, err
	}
	b.log.Debug("encoded function",
		zap.String("symbol", prog.Symbol),
		zap.Int("instructions", len(prog.Instrs)),
		zap.Int("text_bytes", len(text)))
	return WriteELFObject(target.ELFMachine(), text, prog.Symbol), nil
}

func slotOffset(value int) int32 {
	return int32(-8 * (value + 1))
}

// frameSize keeps rsp 16-byte aligned after the rbp push
func frameSize(values int) int32 {
	return int32((values*8 + 15) &^ 15)
}

func (b *NativeBackend) generateText(prog *IRProgram) ([]byte, error) {
	out := &Out{}
	x := NewX86_64CodeGen(out)

	x.PushReg("rbp")
	x.MovRegToReg("rbp", "rsp")
	if size := frameSize(len(prog.Instrs)); size > 0 {
		x.SubImmFromReg("rsp", size)
	}

	for i, in := range prog.Instrs {
		dst := slotOffset(i)
		switch in.Op {
		case OpConst:
			x.MovImmToReg("rax", math.Float64bits(in.Const))
			x.MovRegToMem("rax", "rbp", dst)
		case OpLoadBinding:
			x.MovImmToReg("rax", math.Float64bits(prog.Bindings[in.Slot].Value))
			x.MovRegToMem("rax", "rbp", dst)
		case OpAdd, OpSub, OpMul, OpDiv:
			x.MovMemToXmm("xmm0", "rbp", slotOffset(in.Args[0]))
			x.MovMemToXmm("xmm1", "rbp", slotOffset(in.Args[1]))
			switch in.Op {
			case OpAdd:
				x.AddsdXmm("xmm0", "xmm1")
			case OpSub:
				x.SubsdXmm("xmm0", "xmm1")
			case OpMul:
				x.MulsdXmm("xmm0", "xmm1")
			case OpDiv:
				x.DivsdXmm("xmm0", "xmm1")
			}
			x.MovXmmToMem("xmm0", "rbp", dst)
		case OpCall:
			if err := b.generateCall(x, in, dst); err != nil {
				return nil, err
			}
		case OpReturn:
			x.MovMemToXmm("xmm0", "rbp", slotOffset(in.Args[0]))
			x.Leave()
			x.Ret()
		default:
			return nil, fmt.Errorf("native backend: unsupported op %s", in.Op)
		}
	}
	if err := x.Err(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (b *NativeBackend) generateCall(x *X86_64CodeGen, in Instr, dst int32) error {
	switch in.Callee.Name {
	case "sqrt":
		x.MovMemToXmm("xmm0", "rbp", slotOffset(in.Args[0]))
		x.SqrtsdXmm("xmm0", "xmm0")
		x.MovXmmToMem("xmm0", "rbp", dst)
	case "abs":
		x.MovMemToReg("rax", "rbp", slotOffset(in.Args[0]))
		x.BtrImm("rax", 63)
		x.MovRegToMem("rax", "rbp", dst)
	case "min", "max":
		// xmm2 = op(b, a) yields a when either is NaN; a NaN a must yield b
		x.MovMemToXmm("xmm0", "rbp", slotOffset(in.Args[0]))
		x.MovMemToXmm("xmm1", "rbp", slotOffset(in.Args[1]))
		x.MovapdXmm("xmm2", "xmm1")
		if in.Callee.Name == "min" {
			x.MinsdXmm("xmm2", "xmm0")
		} else {
			x.MaxsdXmm("xmm2", "xmm0")
		}
		x.Ucomisd("xmm0", "xmm0")
		x.JumpParityShort(4) // skip the movapd below
		x.MovapdXmm("xmm1", "xmm2")
		x.MovXmmToMem("xmm1", "rbp", dst)
	default:
		return fmt.Errorf("native backend: no encoding for builtin %s", in.Callee.Name)
	}
	return nil
}
