package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CommandContext holds what every subcommand shares once flags are parsed
type CommandContext struct {
	Config   Config
	Log      *zap.Logger
	Pipeline *Pipeline
	Stdout   io.Writer
	Stderr   io.Writer
	Color    bool

	configPath string
	defs       []string
}

// NewRootCommand builds the calcc command tree. Without a subcommand it starts the REPL.
func NewRootCommand(stdout, stderr io.Writer, color bool) *cobra.Command {
	cc := &CommandContext{Config: NewConfig(), Stdout: stdout, Stderr: stderr, Color: color}
	v := NewViper()
	opts := cc.Config.Opts()

	root := &cobra.Command{
		Use:   "calcc",
		Short: "Calculator that compiles functions and expressions to native executables",
		Long: `calcc is an interactive calculator. Functions and expressions typed at
its prompt can be compiled ahead of time into standalone executables that
print their result.

Settings are read from --config (TOML), CALCC_* environment variables and
flags, in increasing priority.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cc.setup(v, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cc.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdRepl(cmd.Context(), cc)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(flagError)

	fs := root.PersistentFlags()
	fs.StringVar(&cc.configPath, "config", "", "TOML configuration file")
	fs.StringSliceVarP(&cc.defs, "defs", "d", nil, "definitions file to load first (repeatable)")
	BindOptions(v, fs, opts)

	root.AddCommand(
		newReplCommand(cc),
		newBuildCommand(cc),
		newRunCommand(cc),
		newEvalCommand(cc),
		newVersionCommand(),
	)
	return root
}

func (cc *CommandContext) setup(v *viper.Viper, opts []Opt) error {
	base := NewConfig()
	if cc.configPath != "" {
		var err error
		if base, err = LoadConfigFile(cc.configPath); err != nil {
			return err
		}
	}
	if err := ResolveOptions(v, opts, base.Opts()); err != nil {
		return err
	}
	if err := cc.Config.Validate(); err != nil {
		return err
	}

	log, err := NewLogger(cc.Stderr, cc.Config.LogFormat, cc.Config.LogLevel)
	if err != nil {
		return err
	}
	cc.Log = log

	p, err := NewPipeline(cc.Config, NewEnvironment(), log)
	if err != nil {
		return err
	}
	cc.Pipeline = p
	log.Debug("Configured session",
		zap.String("backend", p.Backend().Name()),
		zap.String("target", p.Target().String()),
		zap.Int("opt_level", cc.Config.OptLevel))

	for _, path := range cc.defs {
		defs, err := p.Load(path)
		if err != nil {
			return err
		}
		log.Info("Loaded definitions", zap.String("path", path), zap.Int("count", len(defs)))
	}
	return nil
}

func (cc *CommandContext) teardown() error {
	var err error
	if cc.Pipeline != nil {
		err = multierr.Append(err, cc.Pipeline.Close())
	}
	if cc.Log != nil {
		// Syncing stderr fails on some platforms; nothing is lost by ignoring it
		_ = cc.Log.Sync()
	}
	return err
}

// request turns "<function|expression> [values...]" into a compilation
// request. A defined function name wins over an expression.
func (cc *CommandContext) request(args []string) (CompilationRequest, string, error) {
	values, err := parseValues(args[1:])
	if err != nil {
		return CompilationRequest{}, "", err
	}
	if def, err := cc.Pipeline.Env().Lookup(args[0]); err == nil {
		return CompilationRequest{Function: def, Bindings: values}, def.Name, nil
	}
	expr, err := ParseExpression(args[0])
	if err != nil {
		return CompilationRequest{}, "", err
	}
	return CompilationRequest{Expression: expr, Bindings: values}, "a.out", nil
}

func newReplCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive calculator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdRepl(cmd.Context(), cc)
		},
	}
}

func cmdRepl(ctx context.Context, cc *CommandContext) error {
	fmt.Fprintf(cc.Stdout, "%s (backend %s, target %s). Type :help for help.\n",
		versionString, cc.Pipeline.Backend().Name(), cc.Pipeline.Target())
	return NewREPL(cc.Pipeline, cc.Stdout, cc.Color).Run(ctx, cc.Config.HistoryFile)
}

// flagError points out that a negative value read as a flag needs "--" before it
func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	if i := strings.LastIndex(msg, " in -"); i >= 0 && strings.Contains(msg, "unknown shorthand flag") {
		if _, perr := strconv.ParseFloat(msg[i+len(" in "):], 64); perr == nil {
			return fmt.Errorf("%w (put negative values after \"--\", as in: calcc eval f -- %s)", err, msg[i+len(" in "):])
		}
	}
	return err
}

func newBuildCommand(cc *CommandContext) *cobra.Command {
	var output string
	var emitIR bool
	cmd := &cobra.Command{
		Use:   "build <function|expression> [values...]",
		Short: "Compile a function or expression to an executable",
		Example: `  calcc build -d defs.calc square 7 -o square
  calcc build "10 + 5 * 3" -o sum
  calcc build "x * y" 3 4 --emit-ir
  calcc build -d defs.calc -o square square -- -7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdBuild(cmd.Context(), cc, args, output, emitIR)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output executable (default: the function name, or a.out)")
	cmd.Flags().BoolVar(&emitIR, "emit-ir", false, "print the IR instead of building")
	return cmd
}

// cmdBuild compiles one function or expression to an executable
func cmdBuild(ctx context.Context, cc *CommandContext, args []string, output string, emitIR bool) error {
	req, defaultOutput, err := cc.request(args)
	if err != nil {
		return err
	}
	if emitIR {
		prog, err := cc.Pipeline.Lower(req)
		if err != nil {
			return err
		}
		fmt.Fprint(cc.Stdout, prog)
		return nil
	}

	req.OutputPath = output
	if req.OutputPath == "" {
		req.OutputPath = defaultOutput
	}
	art, err := cc.Pipeline.Compile(ctx, req)
	if err != nil {
		return err
	}
	for _, w := range art.Warnings {
		fmt.Fprintf(cc.Stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(cc.Stdout, "Built: %s\n", art.Path)
	return nil
}

func newRunCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <function|expression> [values...]",
		Short: "Compile to a temporary executable and run it",
		Example: `  calcc run "sqrt(x) * 2" 16
  calcc run "abs(x)" -- -3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdRun(cmd.Context(), cc, args)
		},
	}
}

// cmdRun compiles to /dev/shm (or the temp directory) and executes the result
func cmdRun(ctx context.Context, cc *CommandContext, args []string) (err error) {
	req, _, err := cc.request(args)
	if err != nil {
		return err
	}

	tmpDir := "/dev/shm"
	if _, err := os.Stat(tmpDir); err != nil {
		tmpDir = os.TempDir()
	}
	req.OutputPath = filepath.Join(tmpDir, "calcc_run_"+uuid.NewString())

	art, err := cc.Pipeline.Compile(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, os.Remove(art.Path))
	}()

	cmd := exec.CommandContext(ctx, art.Path)
	cmd.Stdout = cc.Stdout
	cmd.Stderr = cc.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func newEvalCommand(cc *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <function|expression> [values...]",
		Short: "Evaluate without compiling",
		Example: `  calcc eval -d defs.calc square 7
  calcc eval "x + y" -- -1 2.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, _, err := cc.request(args)
			if err != nil {
				return err
			}
			v, err := cc.Pipeline.EvaluateRequest(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cc.Stdout, "%f\n", v)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	noop := func(*cobra.Command, []string) error { return nil }
	return &cobra.Command{
		Use:                "version",
		Short:              "Print the version and available backends",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  noop,
		PersistentPostRunE: noop,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintf(cmd.OutOrStdout(), "host: %s\nbackends: %v\n", HostPlatform(), AvailableBackends())
			return nil
		},
	}
}
