package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
)

const (
	promptMain = ">> "
	promptCont = ".. "

	defaultHistoryFile = ".calcc_history"
)

const replHelp = `Enter a definition, an assignment or an expression.
Separate several with ';' or newlines.

    fn square(x) { x * x }       define a function
    area = (w, h) => { w * h }   same, arrow form
    r = 2; h = w = 3             assign session variables
    square(7) + r                evaluate

Commands:
    :compile <fn> <out> [values...]          build an executable from a function
    :compile_expr "<expr>" <out> [values...] build an executable from an expression
    :funcs                                   list defined functions
    :vars                                    list assigned variables
    :unset <var>                             remove a variable
    :undef <fn>                              remove a definition
    :load <file>                             read definitions from a file
    :help                                    show this text
    :quit                                    leave
`

// REPL is an interactive session over a Pipeline
type REPL struct {
	p     *Pipeline
	out   io.Writer
	color bool
}

func NewREPL(p *Pipeline, out io.Writer, color bool) *REPL {
	return &REPL{p: p, out: out, color: color && env.Str("NO_COLOR") == ""}
}

func (r *REPL) printError(err error) {
	if r.color {
		fmt.Fprintf(r.out, "\x1b[31m%v\x1b[0m\n", err)
		return
	}
	fmt.Fprintln(r.out, err)
}

// Handle runs one complete input and reports whether the session should end.
// Errors are printed, never returned, so the session always continues.
func (r *REPL) Handle(ctx context.Context, input string) (quit bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, ":") {
		quit, err := r.command(ctx, input)
		if err != nil {
			r.printError(err)
		}
		return quit
	}

	stmts, err := ParseProgram(input)
	if err != nil {
		r.printError(err)
		return false
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *FunctionDef:
			r.p.DefineFunction(s)
			fmt.Fprintf(r.out, "defined %s(%s)\n", s.Name, strings.Join(s.Params, ", "))
		case *Assignment:
			v, err := r.p.Assign(s)
			if err != nil {
				r.printError(err)
				return false
			}
			fmt.Fprintf(r.out, "%s = %f\n", strings.Join(s.Names, " = "), v)
		case *ExpressionStmt:
			v, err := r.p.EvaluateClosed(s.Expr)
			if err != nil {
				r.printError(err)
				return false
			}
			fmt.Fprintf(r.out, "%f\n", v)
		}
	}
	return false
}

func (r *REPL) command(ctx context.Context, line string) (quit bool, err error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return false, errors.Wrap(err, "cannot split command")
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case ":quit", ":exit", ":q":
		return true, nil

	case ":help", ":h":
		fmt.Fprint(r.out, replHelp)

	case ":funcs":
		names := r.p.Env().Names()
		if len(names) == 0 {
			fmt.Fprintln(r.out, "no functions defined")
		}
		for _, name := range names {
			def, err := r.p.Env().Lookup(name)
			if err != nil {
				continue
			}
			fmt.Fprintln(r.out, def)
		}

	case ":vars":
		names := r.p.Env().VarNames()
		if len(names) == 0 {
			fmt.Fprintln(r.out, "no variables assigned")
		}
		for _, name := range names {
			v, _ := r.p.Env().Var(name)
			fmt.Fprintf(r.out, "%s = %f\n", name, v)
		}

	case ":unset":
		if len(args) != 1 {
			return false, errors.New("usage: :unset <var>")
		}
		if !r.p.Env().UnsetVar(args[0]) {
			return false, errors.Errorf("variable %q is not assigned", args[0])
		}
		fmt.Fprintf(r.out, "unset %s\n", args[0])

	case ":undef":
		if len(args) != 1 {
			return false, errors.New("usage: :undef <fn>")
		}
		if err := r.p.Undefine(args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "removed %s\n", args[0])

	case ":load":
		if len(args) != 1 {
			return false, errors.New("usage: :load <file>")
		}
		defs, err := r.p.Load(args[0])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "loaded %d definition(s) from %s\n", len(defs), args[0])

	case ":compile":
		if len(args) < 2 {
			return false, errors.New("usage: :compile <fn> <out> [values...]")
		}
		values, err := parseValues(args[2:])
		if err != nil {
			return false, err
		}
		art, err := r.p.CompileFunction(ctx, args[0], args[1], values)
		if err != nil {
			return false, err
		}
		r.printArtifact(art)

	case ":compile_expr":
		if len(args) < 2 {
			return false, errors.New(`usage: :compile_expr "<expr>" <out> [values...]`)
		}
		values, err := parseValues(args[2:])
		if err != nil {
			return false, err
		}
		art, err := r.p.CompileExpression(ctx, args[0], args[1], values...)
		if err != nil {
			return false, err
		}
		r.printArtifact(art)

	default:
		return false, errors.Errorf("unknown command %s; type :help for help", cmd)
	}
	return false, nil
}

func (r *REPL) printArtifact(art *Artifact) {
	for _, w := range art.Warnings {
		fmt.Fprintf(r.out, "warning: %s\n", w)
	}
	fmt.Fprintf(r.out, "wrote %s\n", art.Path)
}

// parseValues converts binding arguments to float64
func parseValues(args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, errors.Errorf("binding %q is not a number", a)
		}
		values[i] = v
	}
	return values, nil
}

// incomplete reports whether a parse of src failed only because it ended
// early, as with an unclosed brace
func incomplete(src string, err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindSyntax || e.Pos == nil {
		return false
	}
	return e.Pos.Offset >= len(strings.TrimRight(src, " \t\r\n"))
}

// readInput reads lines until they form a complete input
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := ParseProgram(src); perr != nil && incomplete(src, perr) {
			continue
		}
		return src, true
	}
}

func historyPath(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultHistoryFile)
}

// Run reads and handles input until :quit or EOF
func (r *REPL) Run(ctx context.Context, historyFile string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath(historyFile)
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	for {
		input, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(r.out)
			break
		}
		if strings.TrimSpace(input) != "" {
			ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		}
		if r.Handle(ctx, input) {
			break
		}
	}

	if histPath != "" {
		f, err := os.Create(histPath)
		if err != nil {
			return ioError("write history", err)
		}
		defer f.Close()
		if _, err := ln.WriteHistory(f); err != nil {
			return ioError("write history", err)
		}
	}
	return nil
}
