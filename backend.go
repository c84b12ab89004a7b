package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Backend turns IR into a relocatable object exporting
// double calc_compute(void)
type Backend interface {
	Name() string
	GenerateObject(ctx context.Context, prog *IRProgram, target Platform) ([]byte, error)
}

// BackendOptions configures every backend; each uses what it needs
type BackendOptions struct {
	CC       string
	OptLevel int
	Logger   *zap.Logger
}

type backendFactory func(opts BackendOptions) Backend

var backendFactories = map[string]backendFactory{
	"cc":     func(opts BackendOptions) Backend { return NewCCBackend(opts) },
	"native": func(opts BackendOptions) Backend { return NewNativeBackend(opts) },
}

// registerBackend is called from init by optional backends
func registerBackend(name string, f backendFactory) {
	backendFactories[name] = f
}

// AvailableBackends lists the backends compiled into this binary
func AvailableBackends() []string {
	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend returns the named backend. "auto" picks llvm when it was
// compiled in and the cc backend otherwise.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if name == "" || name == "auto" {
		name = "cc"
		if _, ok := backendFactories["llvm"]; ok {
			name = "llvm"
		}
	}
	f, ok := backendFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: auto, %s)", name, strings.Join(AvailableBackends(), ", "))
	}
	return f(opts), nil
}
