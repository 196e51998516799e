// This file translates decoded HCL blocks into analysis definitions.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/format"
)

type translator struct {
	formats  *format.Registry
	blocks   map[string]*analysisBlock
	defs     map[string]*analysis.Definition
	visiting map[string]bool
}

// definition translates the named analysis, translating its parent first.
func (t *translator) definition(ctx context.Context, name string) (*analysis.Definition, error) {
	if def, ok := t.defs[name]; ok {
		return def, nil
	}
	ab, ok := t.blocks[name]
	if !ok {
		return nil, fmt.Errorf("analysis %q is not defined", name)
	}
	if t.visiting[name] {
		return nil, fmt.Errorf("analysis %q extends itself through its parents", name)
	}
	t.visiting[name] = true
	defer delete(t.visiting, name)

	logger := ctxlog.FromContext(ctx).With("analysis", name, "file", ab.file)
	logger.Debug("Translating HCL analysis.")

	var def *analysis.Definition
	if ab.Extends != "" {
		parent, err := t.definition(ctx, ab.Extends)
		if err != nil {
			return nil, fmt.Errorf("in analysis %q: %w", name, err)
		}
		desc := ab.Description
		if desc == "" {
			desc = parent.Desc
		}
		def = parent.Extend(name, desc)
		logger.Debug("Extending parent analysis.", "parent", parent.Name)
	} else {
		def = analysis.NewDefinition(name, ab.Description)
	}

	if err := t.addData(def, ab); err != nil {
		return nil, fmt.Errorf("in analysis %q: %w", name, err)
	}
	if err := t.addParams(def, ab); err != nil {
		return nil, fmt.Errorf("in analysis %q: %w", name, err)
	}
	for _, pb := range ab.Pipelines {
		c, err := pipelineConstructor(pb)
		if err != nil {
			return nil, fmt.Errorf("in analysis %q: %w", name, err)
		}
		if err := def.AddPipeline(pb.Name, pb.Description, c); err != nil {
			return nil, err
		}
	}
	for _, ob := range ab.Overrides {
		o, err := pipelineOverride(ob)
		if err != nil {
			return nil, fmt.Errorf("in analysis %q: %w", name, err)
		}
		if err := def.OverridePipeline(ob.Name, o); err != nil {
			return nil, err
		}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Translated HCL analysis.", "data_specs", len(def.DataSpecs()), "params", len(def.ParamSpecs()), "pipelines", len(def.PipelineNames()))
	t.defs[name] = def
	return def, nil
}

func (t *translator) format(name string) (*format.Format, error) {
	f, ok := t.formats.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (have %v)", name, t.formats.Names())
	}
	return f, nil
}

func (t *translator) addData(def *analysis.Definition, ab *analysisBlock) error {
	for _, in := range ab.Inputs {
		freq, err := dataset.ParseFrequency(in.Frequency)
		if err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}
		spec := analysis.DataSpec{Name: in.Name, Frequency: freq, Optional: in.Optional, Desc: in.Description}
		switch {
		case in.Format != "" && in.Type != "":
			return fmt.Errorf("input %q sets both format and type", in.Name)
		case in.Format != "":
			spec.Kind = analysis.InputFileset
			if spec.Format, err = t.format(in.Format); err != nil {
				return fmt.Errorf("input %q: %w", in.Name, err)
			}
		case in.Type != "":
			spec.Kind = analysis.InputField
			if spec.Type, err = analysis.ParseFieldType(in.Type); err != nil {
				return fmt.Errorf("input %q: %w", in.Name, err)
			}
		default:
			return fmt.Errorf("input %q needs a format (fileset) or a type (field)", in.Name)
		}
		def.AddData(spec)
	}
	for _, fb := range ab.Filesets {
		freq, err := dataset.ParseFrequency(fb.Frequency)
		if err != nil {
			return fmt.Errorf("fileset %q: %w", fb.Name, err)
		}
		f, err := t.format(fb.Format)
		if err != nil {
			return fmt.Errorf("fileset %q: %w", fb.Name, err)
		}
		def.AddData(analysis.DataSpec{
			Name: fb.Name, Kind: analysis.DerivedFileset, Format: f, Frequency: freq,
			Pipeline: fb.Pipeline, Output: fb.Output, Desc: fb.Description,
		})
	}
	for _, fb := range ab.Fields {
		freq, err := dataset.ParseFrequency(fb.Frequency)
		if err != nil {
			return fmt.Errorf("field %q: %w", fb.Name, err)
		}
		ft, err := analysis.ParseFieldType(fb.Type)
		if err != nil {
			return fmt.Errorf("field %q: %w", fb.Name, err)
		}
		def.AddData(analysis.DataSpec{
			Name: fb.Name, Kind: analysis.DerivedField, Type: ft, Frequency: freq,
			Pipeline: fb.Pipeline, Output: fb.Output, Desc: fb.Description,
		})
	}
	return nil
}

func (t *translator) addParams(def *analysis.Definition, ab *analysisBlock) error {
	for _, pb := range ab.Parameters {
		v, err := evalNative(pb.Default, nil)
		if err != nil {
			return fmt.Errorf("parameter %q: invalid default: %w", pb.Name, err)
		}
		if inherited, ok := def.Param(pb.Name); ok && pb.Description == "" {
			def.AddParam(inherited.WithNewDefault(v))
			continue
		}
		def.AddParam(analysis.ParamSpec{Name: pb.Name, Default: v, Desc: pb.Description})
	}
	for _, sb := range ab.Switches {
		v, err := evalNative(sb.Default, nil)
		if err != nil {
			return fmt.Errorf("switch %q: invalid default: %w", sb.Name, err)
		}
		choices, err := evalNative(sb.Choices, nil)
		if err != nil {
			return fmt.Errorf("switch %q: invalid choices: %w", sb.Name, err)
		}
		list, ok := choices.([]any)
		if !ok || len(list) == 0 {
			return fmt.Errorf("switch %q: choices must be a non-empty list", sb.Name)
		}
		def.AddParam(analysis.ParamSpec{Name: sb.Name, Default: v, Desc: sb.Description, Choices: list})
	}
	return nil
}

func pipelineConstructor(pb *pipelineBlock) (analysis.Constructor, error) {
	plans, err := planNodes(pb.Name, pb.Nodes)
	if err != nil {
		return nil, err
	}
	return func(a *analysis.Analysis, nm analysis.NameMaps) (*analysis.Pipeline, error) {
		ectx, err := paramContext(a.Parameters())
		if err != nil {
			return nil, err
		}
		p := a.NewPipeline(pb.Name, pb.Description, nm, pb.Citations...)
		if err := addNodes(p, plans, ectx); err != nil {
			return nil, err
		}
		return p, nil
	}, nil
}

func pipelineOverride(ob *overrideBlock) (analysis.Override, error) {
	plans, err := planNodes(ob.Name, ob.Nodes)
	if err != nil {
		return nil, err
	}
	return func(a *analysis.Analysis, nm analysis.NameMaps, super analysis.Constructor) (*analysis.Pipeline, error) {
		p, err := super(a, nm)
		if err != nil {
			return nil, err
		}
		ectx, err := paramContext(a.Parameters())
		if err != nil {
			return nil, err
		}
		for _, m := range ob.Modify {
			if err := modifyNode(p, m, ectx); err != nil {
				return nil, err
			}
		}
		if err := addNodes(p, plans, ectx); err != nil {
			return nil, err
		}
		return p, nil
	}, nil
}

func addNodes(p *analysis.Pipeline, plans []nodePlan, ectx *hcl.EvalContext) error {
	for _, plan := range plans {
		if err := addNode(p, plan, ectx); err != nil {
			return err
		}
	}
	return nil
}
