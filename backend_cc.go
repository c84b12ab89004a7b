package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CCBackend renders IR as C99 and lets the system C compiler produce the object
type CCBackend struct {
	cc       string
	optLevel int
	log      *zap.Logger
}

func NewCCBackend(opts BackendOptions) *CCBackend {
	cc := opts.CC
	if cc == "" {
		cc = defaultCC()
	}
	return &CCBackend{cc: cc, optLevel: opts.OptLevel, log: opts.Logger}
}

func (b *CCBackend) Name() string { return "cc" }

func (b *CCBackend) GenerateObject(ctx context.Context, prog *IRProgram, target Platform) ([]byte, error) {
	if !target.IsHost() {
		return nil, fmt.Errorf("cc backend only compiles for the host (%s), not %s", HostPlatform(), target)
	}
	ccPath, err := exec.LookPath(b.cc)
	if err != nil {
		return nil, fmt.Errorf("C compiler %q not found: %w", b.cc, err)
	}

	dir, err := os.MkdirTemp("", "calcc-cc-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	objPath := filepath.Join(dir, "calc.o")

	src := RenderC(prog)
	args := []string{fmt.Sprintf("-O%d", clampOptLevel(b.optLevel)), "-c", "-x", "c", "-", "-o", objPath}
	cmd := exec.CommandContext(ctx, ccPath, args...)
	cmd.Stdin = strings.NewReader(src)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	b.log.Debug("running C compiler", zap.String("cc", ccPath), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\n%s", b.cc, err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(objPath)
}

func clampOptLevel(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 3:
		return 3
	}
	return n
}

// cFloat renders v as an exact C99 double literal
func cFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NAN"
	case math.IsInf(v, 1):
		return "INFINITY"
	case math.IsInf(v, -1):
		return "(-INFINITY)"
	}
	s := strconv.FormatFloat(v, 'x', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

var cOperators = map[Op]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
}

// RenderC returns a C99 translation unit defining prog.Symbol
func RenderC(prog *IRProgram) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/* %s */\n", prog.Name)
	sb.WriteString("#include <math.h>\n\n")
	fmt.Fprintf(&sb, "double %s(void)\n{\n", prog.Symbol)
	for i, in := range prog.Instrs {
		switch in.Op {
		case OpConst:
			fmt.Fprintf(&sb, "\tconst double v%d = %s;\n", i, cFloat(in.Const))
		case OpLoadBinding:
			b := prog.Bindings[in.Slot]
			fmt.Fprintf(&sb, "\tconst double v%d = %s; /* %s */\n", i, cFloat(b.Value), b.Name)
		case OpAdd, OpSub, OpMul, OpDiv:
			fmt.Fprintf(&sb, "\tconst double v%d = v%d %s v%d;\n", i, in.Args[0], cOperators[in.Op], in.Args[1])
		case OpCall:
			args := make([]string, len(in.Args))
			for j, a := range in.Args {
				args[j] = "v" + strconv.Itoa(a)
			}
			fmt.Fprintf(&sb, "\tconst double v%d = %s(%s);\n", i, in.Callee.CName, strings.Join(args, ", "))
		case OpReturn:
			fmt.Fprintf(&sb, "\treturn v%d;\n", in.Args[0])
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
