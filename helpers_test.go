package main

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// requireCC skips the test when no C compiler/linker driver is installed
func requireCC(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath(defaultCC())
	if err != nil {
		t.Skipf("no C compiler available: %v", err)
	}
	return path
}

// newTestPipeline returns a pipeline for backend with the given definitions loaded
func newTestPipeline(t *testing.T, backend string, defs string) *Pipeline {
	t.Helper()
	cfg := NewConfig()
	cfg.Backend = backend
	p, err := NewPipeline(cfg, NewEnvironment(), zaptest.NewLogger(t))
	require.NoError(t, err)
	if defs != "" {
		_, err := p.Define(defs)
		require.NoError(t, err)
	}
	return p
}

// runExecutable runs a produced program and returns its stdout
func runExecutable(t *testing.T, path string) string {
	t.Helper()
	out, err := exec.Command(path).Output()
	require.NoError(t, err, "running %s", path)
	return string(out)
}

// testBackends lists the backends that can build for the host
func testBackends() []string {
	backends := []string{"cc"}
	host := HostPlatform()
	if host.Arch == ArchX86_64 && host.IsELF() {
		backends = append(backends, "native")
	}
	if _, ok := backendFactories["llvm"]; ok {
		backends = append(backends, "llvm")
	}
	return backends
}

func outputIn(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

// mustLower parses, binds and lowers an expression over env
func mustLower(t *testing.T, env *Environment, src string, bindings ...float64) *IRProgram {
	t.Helper()
	expr, err := ParseExpression(src)
	require.NoError(t, err)
	bound, err := BindExpression(env, expr, bindings)
	require.NoError(t, err)
	prog, err := Lower(bound)
	require.NoError(t, err)
	return prog
}

func nopLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel))
}

// testContext is cancelled when the test ends
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// setenv sets key for the test and refreshes the cached environment,
// before and after the variable is restored
func setenv(t *testing.T, key, value string) {
	t.Helper()
	t.Cleanup(env.Load)
	t.Setenv(key, value)
	env.Load()
}

func mustParseExpression(t *testing.T, src string) Expression {
	t.Helper()
	expr, err := ParseExpression(src)
	require.NoError(t, err)
	return expr
}
