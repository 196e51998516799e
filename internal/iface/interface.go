package iface

import (
	"context"
	"fmt"
	"os"
)

// Interface is a processing step that can be placed in a pipeline.
type Interface interface {
	// Name is the registry name of the interface, e.g. "grep".
	Name() string
	InputSpec() Spec
	OutputSpec() Spec
	// Run executes the step. Inputs have already been validated against
	// InputSpec.
	Run(ctx context.Context, rt *Runtime, in Inputs) (Outputs, error)
}

// Runtime is the execution environment of a single run.
type Runtime struct {
	// WorkDir is the directory the step runs in and writes generated files to.
	WorkDir string
	// Env holds extra KEY=VALUE entries appended to the process environment.
	Env []string
}

// Execute validates inputs, runs the interface and normalises its outputs.
// Mandatory outputs that were not produced are reported as errors.
func Execute(ctx context.Context, i Interface, rt *Runtime, in Inputs) (Outputs, error) {
	valid, err := i.InputSpec().Validate(in)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", i.Name(), err)
	}
	if rt == nil {
		rt = &Runtime{}
	}
	if rt.WorkDir != "" {
		if err := os.MkdirAll(rt.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work dir: %w", err)
		}
	}

	out, err := i.Run(ctx, rt, valid)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", i.Name(), err)
	}
	out, err = i.OutputSpec().Coerce(out)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", i.Name(), err)
	}
	for _, t := range i.OutputSpec() {
		if _, ok := out[t.Name]; !ok && t.Mandatory {
			return nil, fmt.Errorf("interface %s did not produce mandatory output %q", i.Name(), t.Name)
		}
	}
	return out, nil
}

// RunFunc computes the outputs of an in-process interface.
type RunFunc func(ctx context.Context, rt *Runtime, in Inputs) (Outputs, error)

// Func is an Interface computed in-process by a Go function.
type Func struct {
	name string
	in   Spec
	out  Spec
	fn   RunFunc
}

// NewFunc wraps fn as an interface.
func NewFunc(name string, in, out Spec, fn RunFunc) *Func {
	return &Func{name: name, in: in, out: out, fn: fn}
}

func (f *Func) Name() string     { return f.name }
func (f *Func) InputSpec() Spec  { return f.in }
func (f *Func) OutputSpec() Spec { return f.out }

// Run implements Interface.
func (f *Func) Run(ctx context.Context, rt *Runtime, in Inputs) (Outputs, error) {
	return f.fn(ctx, rt, in)
}
