package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/processor"
)

// InputSelector picks the primary data matched to an input spec.
type InputSelector struct {
	Spec    string
	Pattern string
	Regex   bool
}

// Request names what to derive and how to instantiate the analysis.
type Request struct {
	Analysis string
	// Name stores derived data under another name than the analysis.
	Name       string
	Specs      []string
	Inputs     []InputSelector
	Parameters map[string]string
	SubjectIDs []string
	VisitIDs   []string
}

// newAnalysis binds the requested definition to the dataset.
func (a *App) newAnalysis(ctx context.Context, req Request, deriver analysis.Deriver) (*analysis.Analysis, error) {
	def, ok := a.catalog.Definition(req.Analysis)
	if !ok {
		return nil, fmt.Errorf("unknown analysis %q (available: %s)", req.Analysis, strings.Join(a.catalog.Names(), ", "))
	}
	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}
	filters := make(map[string]dataset.Filter, len(req.Inputs))
	for _, in := range req.Inputs {
		f, err := dataset.NewFilter(in.Spec, in.Pattern, in.Regex)
		if err != nil {
			return nil, err
		}
		filters[in.Spec] = f
	}
	params := make(map[string]any, len(req.Parameters))
	for k, v := range req.Parameters {
		params[k] = v
	}
	return analysis.New(def, analysis.Options{
		Name:       req.Name,
		Repository: repo,
		Registry:   a.registry,
		Inputs:     filters,
		Parameters: params,
		SubjectIDs: req.SubjectIDs,
		VisitIDs:   req.VisitIDs,
		Deriver:    deriver,
	})
}

// Plan builds and renders the execution plan of a request without running it.
func (a *App) Plan(ctx context.Context, req Request) (string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	proc, err := a.processor()
	if err != nil {
		return "", err
	}
	an, err := a.newAnalysis(ctx, req, proc)
	if err != nil {
		return "", err
	}
	plan, err := proc.Plan(ctx, an, req.Specs...)
	if err != nil {
		return "", err
	}
	return plan.Render(ctx)
}

// Derive derives the requested specs and prints their values.
func (a *App) Derive(ctx context.Context, req Request) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if _, err := a.startHealthCheckServer(ctx); err != nil {
		return err
	}
	proc, err := a.processor()
	if err != nil {
		return err
	}
	an, err := a.newAnalysis(ctx, req, proc)
	if err != nil {
		return err
	}
	plan, err := proc.Plan(ctx, an, req.Specs...)
	if err != nil {
		return err
	}
	if err := proc.Run(ctx, plan); err != nil {
		return fmt.Errorf("derivation failed: %w", err)
	}
	return a.printResults(ctx, an, req.Specs)
}

func (a *App) printResults(ctx context.Context, an *analysis.Analysis, specs []string) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Spec", "Key", "Value"})
	for _, spec := range specs {
		c, err := an.Data(ctx, spec, false)
		if err != nil {
			return err
		}
		for _, it := range c.Items {
			t.AppendRow(table.Row{spec, it.Key.String(), it.String()})
		}
	}
	fmt.Fprintln(a.outW, t.Render())
	return nil
}

// ExecNode runs a task file written by a processor in submit mode.
func (a *App) ExecNode(ctx context.Context, taskPath string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return processor.ExecTask(ctx, a.registry, taskPath)
}

// Menu renders the inputs, outputs and parameters of an analysis.
func (a *App) Menu(name string, full bool) (string, error) {
	def, ok := a.catalog.Definition(name)
	if !ok {
		return "", fmt.Errorf("unknown analysis %q (available: %s)", name, strings.Join(a.catalog.Names(), ", "))
	}
	return analysis.Menu(def, full), nil
}

// List renders the available analyses.
func (a *App) List() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Analysis", "Extends", "Description"})
	for _, name := range a.catalog.Names() {
		def, _ := a.catalog.Definition(name)
		t.AppendRow(table.Row{def.Name, def.Parent, def.Desc})
	}
	return t.Render()
}
