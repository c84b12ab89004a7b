//go:build llvm

package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/go-llvm"
)

func init() {
	registerBackend("llvm", func(opts BackendOptions) Backend { return NewLLVMBackend(opts) })
}

var initLLVMOnce sync.Once

// LLVMBackend builds the function with the LLVM C API and emits an object
// for any triple LLVM was built with
type LLVMBackend struct {
	optLevel int
	log      *zap.Logger
}

func NewLLVMBackend(opts BackendOptions) *LLVMBackend {
	initLLVMOnce.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmPrinters()
	})
	return &LLVMBackend{optLevel: clampOptLevel(opts.OptLevel), log: opts.Logger}
}

func (b *LLVMBackend) Name() string { return "llvm" }

func (b *LLVMBackend) codeGenLevel() llvm.CodeGenOptLevel {
	switch b.optLevel {
	case 0:
		return llvm.CodeGenLevelNone
	case 1:
		return llvm.CodeGenLevelLess
	case 3:
		return llvm.CodeGenLevelAggressive
	}
	return llvm.CodeGenLevelDefault
}

func (b *LLVMBackend) GenerateObject(ctx context.Context, prog *IRProgram, target Platform) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	triple := target.Triple()
	t, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return nil, fmt.Errorf("no LLVM target for %s: %w", triple, err)
	}
	tm := t.CreateTargetMachine(triple, "generic", "", b.codeGenLevel(), llvm.RelocPIC, llvm.CodeModelDefault)
	defer tm.Dispose()

	lctx := llvm.NewContext()
	defer lctx.Dispose()
	mod := lctx.NewModule(prog.Name)
	defer mod.Dispose()
	td := tm.CreateTargetData()
	defer td.Dispose()
	mod.SetDataLayout(td.String())
	mod.SetTarget(triple)

	builder := lctx.NewBuilder()
	defer builder.Dispose()

	double := lctx.DoubleType()
	fnType := llvm.FunctionType(double, nil, false)
	fn := llvm.AddFunction(mod, prog.Symbol, fnType)
	builder.SetInsertPointAtEnd(lctx.AddBasicBlock(fn, "entry"))

	intrinsics := map[string]llvm.Type{}
	intrinsic := func(builtin *Builtin) (llvm.Value, llvm.Type) {
		name := "llvm." + map[string]string{"sqrt": "sqrt", "abs": "fabs", "min": "minnum", "max": "maxnum"}[builtin.Name] + ".f64"
		params := make([]llvm.Type, builtin.Arity)
		for i := range params {
			params[i] = double
		}
		typ, ok := intrinsics[name]
		if !ok {
			typ = llvm.FunctionType(double, params, false)
			intrinsics[name] = typ
		}
		f := mod.NamedFunction(name)
		if f.IsNil() {
			f = llvm.AddFunction(mod, name, typ)
		}
		return f, typ
	}

	values := make([]llvm.Value, len(prog.Instrs))
	for i, in := range prog.Instrs {
		name := fmt.Sprintf("v%d", i)
		switch in.Op {
		case OpConst:
			values[i] = llvm.ConstFloat(double, in.Const)
		case OpLoadBinding:
			values[i] = llvm.ConstFloat(double, prog.Bindings[in.Slot].Value)
		case OpAdd:
			values[i] = builder.CreateFAdd(values[in.Args[0]], values[in.Args[1]], name)
		case OpSub:
			values[i] = builder.CreateFSub(values[in.Args[0]], values[in.Args[1]], name)
		case OpMul:
			values[i] = builder.CreateFMul(values[in.Args[0]], values[in.Args[1]], name)
		case OpDiv:
			values[i] = builder.CreateFDiv(values[in.Args[0]], values[in.Args[1]], name)
		case OpCall:
			f, typ := intrinsic(in.Callee)
			args := make([]llvm.Value, len(in.Args))
			for j, a := range in.Args {
				args[j] = values[a]
			}
			values[i] = builder.CreateCall(typ, f, args, name)
		case OpReturn:
			builder.CreateRet(values[in.Args[0]])
		}
	}

	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return nil, fmt.Errorf("module verification failed: %w", err)
	}

	pbo := llvm.NewPassBuilderOptions()
	defer pbo.Dispose()
	passes := fmt.Sprintf("default<O%d>", b.optLevel)
	if err := mod.RunPasses(passes, tm, pbo); err != nil {
		return nil, fmt.Errorf("running %s: %w", passes, err)
	}
	b.log.Debug("optimized module", zap.String("triple", triple), zap.String("passes", passes))

	buf, err := tm.EmitToMemoryBuffer(mod, llvm.ObjectFile)
	if err != nil {
		return nil, fmt.Errorf("emitting object: %w", err)
	}
	defer buf.Dispose()
	return append([]byte(nil), buf.Bytes()...), nil
}
