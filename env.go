package main

import (
	"sort"
	"sync"
)

// Environment maps function names to their definitions for one session,
// along with the session's assigned variables. Functions and variables
// have separate namespaces. Redefining a name replaces the previous definition.
type Environment struct {
	mu    sync.RWMutex
	funcs map[string]*FunctionDef
	vars  map[string]float64
}

func NewEnvironment() *Environment {
	return &Environment{funcs: make(map[string]*FunctionDef), vars: make(map[string]float64)}
}

// Define inserts or replaces the definition keyed by def.Name
func (e *Environment) Define(def *FunctionDef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[def.Name] = def
}

// Lookup fails with an UndefinedFunction error if name is not defined
func (e *Environment) Lookup(name string) (*FunctionDef, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.funcs[name]
	if !ok {
		return nil, undefinedFunction(name)
	}
	return def, nil
}

func (e *Environment) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.funcs[name]
	return ok
}

// Remove deletes name and reports whether it was defined
func (e *Environment) Remove(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.funcs[name]
	delete(e.funcs, name)
	return ok
}

// Names returns the defined function names, sorted
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.funcs))
	for name := range e.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Environment) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.funcs)
}

// SetVar assigns value to the session variable name
func (e *Environment) SetVar(name string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

func (e *Environment) Var(name string) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

// UnsetVar deletes name and reports whether it was assigned
func (e *Environment) UnsetVar(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vars[name]
	delete(e.vars, name)
	return ok
}

// VarNames returns the assigned variable names, sorted
func (e *Environment) VarNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
