package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CompilationRequest names what to compile: either Function or Expression
type CompilationRequest struct {
	Function   *FunctionDef
	Expression Expression
	Bindings   []float64
	OutputPath string
}

func (r CompilationRequest) target() Node {
	if r.Function != nil {
		return r.Function
	}
	return r.Expression
}

// Artifact describes a produced executable
type Artifact struct {
	Path       string
	ObjectPath string
	Size       int64
	Backend    string
	Target     string
	BuildID    uuid.UUID
	Warnings   []string
}

// Pipeline compiles functions and expressions of one session's
// Environment into executables. Compilations are serialized.
type Pipeline struct {
	mu          sync.Mutex
	env         *Environment
	backend     Backend
	linker      *Linker
	target      Platform
	log         *zap.Logger
	metrics     *pipelineMetrics
	metricsPath string
}

// NewPipeline wires the backend and linker chosen by cfg around env
func NewPipeline(cfg Config, env *Environment, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if env == nil {
		env = NewEnvironment()
	}
	target, err := ParsePlatform(cfg.Target)
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg.Backend, BackendOptions{
		CC:       cfg.CC,
		OptLevel: cfg.OptLevel,
		Logger:   log.With(zap.String("component", "backend")),
	})
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		env:         env,
		backend:     backend,
		linker:      NewLinker(cfg.CC, cfg.LinkTimeout, cfg.KeepObject, log.With(zap.String("component", "linker"))),
		target:      target,
		log:         log.With(zap.String("component", "pipeline")),
		metrics:     newPipelineMetrics(),
		metricsPath: cfg.MetricsPath,
	}
	p.metrics.definitions.Set(float64(env.Len()))
	return p, nil
}

func (p *Pipeline) Env() *Environment { return p.env }

func (p *Pipeline) Backend() Backend { return p.backend }

func (p *Pipeline) Target() Platform { return p.target }

// CompileFunction compiles the defined function name with its parameters
// bound positionally to bindings
func (p *Pipeline) CompileFunction(ctx context.Context, name, outputPath string, bindings []float64) (*Artifact, error) {
	def, err := p.env.Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Compile(ctx, CompilationRequest{Function: def, Bindings: bindings, OutputPath: outputPath})
}

// CompileExpression compiles source, binding its free variables in order of
// first appearance. Without bindings the expression must be closed.
func (p *Pipeline) CompileExpression(ctx context.Context, source, outputPath string, bindings ...float64) (*Artifact, error) {
	expr, err := ParseExpression(source)
	if err != nil {
		return nil, err
	}
	return p.Compile(ctx, CompilationRequest{Expression: expr, Bindings: bindings, OutputPath: outputPath})
}

// Lower runs the front half of a compilation and returns the IR
func (p *Pipeline) Lower(req CompilationRequest) (*IRProgram, error) {
	if req.Function == nil && req.Expression == nil {
		return nil, errors.New("compilation request has neither a function nor an expression")
	}
	start := time.Now()
	bound, err := Bind(p.env, req.target(), req.Bindings)
	p.observe("bind", start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	prog, err := Lower(bound)
	p.observe("lower", start)
	if err != nil {
		return nil, errors.Wrapf(err, "lowering %s", bound.Name)
	}
	for _, w := range prog.Warnings {
		p.log.Warn(w, zap.String("program", prog.Name))
	}
	return prog, nil
}

// Compile binds, lowers, generates and links one request
func (p *Pipeline) Compile(ctx context.Context, req CompilationRequest) (art *Artifact, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		result := "ok"
		if err != nil {
			result = KindOf(err).String()
		}
		p.metrics.compilations.WithLabelValues(p.backend.Name(), result).Inc()
	}()

	if req.OutputPath == "" {
		return nil, ioError("compile", fmt.Errorf("no output path given"))
	}
	if !p.target.IsHost() {
		return nil, linkError(fmt.Sprintf("cannot link for %s on %s: the system linker only targets the host, use --emit-ir to inspect the program", p.target, HostPlatform()), nil)
	}

	prog, err := p.Lower(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	object, err := p.backend.GenerateObject(ctx, prog, p.target)
	p.observe("codegen", start)
	if err != nil {
		return nil, backendError(p.backend.Name(), err)
	}
	p.metrics.objectBytes.WithLabelValues(p.backend.Name()).Observe(float64(len(object)))

	start = time.Now()
	art, err = p.linker.Link(ctx, object, req.OutputPath, p.target)
	p.observe("link", start)
	if err != nil {
		return nil, err
	}
	art.Backend = p.backend.Name()
	art.BuildID = uuid.New()
	art.Warnings = prog.Warnings

	p.log.Info("Compiled executable",
		zap.String("program", prog.Name),
		zap.String("path", art.Path),
		zap.String("size", humanize.Bytes(uint64(art.Size))),
		zap.String("object_size", humanize.Bytes(uint64(len(object)))),
		zap.String("backend", art.Backend),
		zap.String("target", art.Target),
		zap.Stringer("build_id", art.BuildID))
	return art, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.stageDur.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Define parses source and stores every function definition in it.
// Nothing is stored unless the whole source parses and holds only definitions.
func (p *Pipeline) Define(source string) ([]*FunctionDef, error) {
	stmts, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}
	defs := make([]*FunctionDef, 0, len(stmts))
	for _, stmt := range stmts {
		def, ok := stmt.(*FunctionDef)
		if !ok {
			return nil, syntaxErrorf(stmt.Position(), "expected a function definition, found %s", stmt)
		}
		defs = append(defs, def)
	}
	for _, def := range defs {
		p.DefineFunction(def)
	}
	return defs, nil
}

// DefineFunction stores def, replacing any previous definition of its name
func (p *Pipeline) DefineFunction(def *FunctionDef) {
	if p.env.Has(def.Name) {
		p.log.Debug("Redefining function", zap.String("name", def.Name))
	}
	p.env.Define(def)
	p.metrics.definitions.Set(float64(p.env.Len()))
}

// Undefine removes name from the environment
func (p *Pipeline) Undefine(name string) error {
	if !p.env.Remove(name) {
		return undefinedFunction(name)
	}
	p.metrics.definitions.Set(float64(p.env.Len()))
	return nil
}

// Load reads a definitions file
func (p *Pipeline) Load(path string) ([]*FunctionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("load "+path, err)
	}
	return p.Define(string(data))
}

// Evaluate computes a closed expression in the current environment
func (p *Pipeline) Evaluate(source string) (float64, error) {
	expr, err := ParseExpression(source)
	if err != nil {
		return 0, err
	}
	return p.EvaluateExpression(expr)
}

func (p *Pipeline) EvaluateExpression(expr Expression) (float64, error) {
	return p.EvaluateRequest(CompilationRequest{Expression: expr})
}

// EvaluateRequest computes what Compile would build for req, in process
func (p *Pipeline) EvaluateRequest(req CompilationRequest) (float64, error) {
	if req.Function == nil && req.Expression == nil {
		return 0, errors.New("request has neither a function nor an expression")
	}
	bound, err := Bind(p.env, req.target(), req.Bindings)
	if err != nil {
		return 0, err
	}
	return Evaluate(bound), nil
}

// Assign evaluates a.Value in the session and stores it in every name of a
func (p *Pipeline) Assign(a *Assignment) (float64, error) {
	v, err := p.EvaluateClosed(a.Value)
	if err != nil {
		return 0, err
	}
	for _, name := range a.Names {
		p.env.SetVar(name, v)
	}
	p.log.Debug("Assigned", zap.Strings("names", a.Names), zap.Float64("value", v))
	return v, nil
}

// EvaluateClosed evaluates expr, which may only use assigned variables
func (p *Pipeline) EvaluateClosed(expr Expression) (float64, error) {
	for _, ref := range freeVariableRefs(expr) {
		if _, ok := p.env.Var(ref.Name); !ok {
			return 0, unassignedVariable(ref.Pos, ref.Name)
		}
	}
	return p.EvaluateExpression(expr)
}

// Run executes the statements of source in order: definitions are stored,
// assignments update the session and expressions are evaluated. It returns
// the value of the last assignment or expression; ok is false when there was none.
func (p *Pipeline) Run(source string) (value float64, ok bool, err error) {
	stmts, err := ParseProgram(source)
	if err != nil {
		return 0, false, err
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *FunctionDef:
			p.DefineFunction(s)
		case *Assignment:
			if value, err = p.Assign(s); err != nil {
				return 0, false, err
			}
			ok = true
		case *ExpressionStmt:
			if value, err = p.EvaluateClosed(s.Expr); err != nil {
				return 0, false, err
			}
			ok = true
		}
	}
	return value, ok, nil
}

// Close writes the metrics file, if one is configured
func (p *Pipeline) Close() error {
	if p.metricsPath == "" {
		return nil
	}
	if err := p.metrics.WriteTextfile(p.metricsPath); err != nil {
		return ioError("write metrics", err)
	}
	return nil
}
