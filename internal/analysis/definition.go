package analysis

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Constructor builds a pipeline for an analysis instance.
type Constructor func(a *Analysis, nm NameMaps) (*Pipeline, error)

// Override replaces an inherited constructor. super builds the inherited
// pipeline so the override can modify it.
type Override func(a *Analysis, nm NameMaps, super Constructor) (*Pipeline, error)

// PipelineDef is a named pipeline constructor of a definition.
type PipelineDef struct {
	Name      string
	Desc      string
	Construct Constructor
}

// Definition is the declarative description of an analysis: its data slots,
// parameters and the pipelines deriving the data.
type Definition struct {
	Name string
	Desc string
	// Parent is the name of the definition this one extends.
	Parent string

	data      []DataSpec
	params    []ParamSpec
	pipelines map[string]*PipelineDef
	order     []string
}

// NewDefinition creates an empty definition.
func NewDefinition(name, desc string) *Definition {
	return &Definition{Name: name, Desc: desc, pipelines: make(map[string]*PipelineDef)}
}

// Extend creates a definition inheriting every spec and pipeline of d.
func (d *Definition) Extend(name, desc string) *Definition {
	child := &Definition{
		Name:      name,
		Desc:      desc,
		Parent:    d.Name,
		data:      slices.Clone(d.data),
		params:    slices.Clone(d.params),
		pipelines: make(map[string]*PipelineDef, len(d.pipelines)),
		order:     slices.Clone(d.order),
	}
	for k, p := range d.pipelines {
		cp := *p
		child.pipelines[k] = &cp
	}
	return child
}

// AddData adds data specs. A spec named like an existing one replaces it in
// place.
func (d *Definition) AddData(specs ...DataSpec) *Definition {
	for _, s := range specs {
		if i := slices.IndexFunc(d.data, func(e DataSpec) bool { return e.Name == s.Name }); i >= 0 {
			d.data[i] = s
			continue
		}
		d.data = append(d.data, s)
	}
	return d
}

// AddParam adds parameter specs. A spec named like an existing one replaces
// it in place.
func (d *Definition) AddParam(specs ...ParamSpec) *Definition {
	for _, s := range specs {
		if i := slices.IndexFunc(d.params, func(e ParamSpec) bool { return e.Name == s.Name }); i >= 0 {
			d.params[i] = s
			continue
		}
		d.params = append(d.params, s)
	}
	return d
}

// AddPipeline registers a pipeline constructor under name.
func (d *Definition) AddPipeline(name, desc string, c Constructor) error {
	if _, exists := d.pipelines[name]; exists {
		return fmt.Errorf("pipeline %q is already defined in %s; use an override to change it", name, d.Name)
	}
	if c == nil {
		return fmt.Errorf("pipeline %q has no constructor", name)
	}
	d.pipelines[name] = &PipelineDef{Name: name, Desc: desc, Construct: c}
	d.order = append(d.order, name)
	return nil
}

// OverridePipeline replaces an inherited pipeline constructor.
func (d *Definition) OverridePipeline(name string, o Override) error {
	p, ok := d.pipelines[name]
	if !ok {
		return fmt.Errorf("cannot override unknown pipeline %q in %s", name, d.Name)
	}
	super := p.Construct
	p.Construct = func(a *Analysis, nm NameMaps) (*Pipeline, error) {
		return o(a, nm, super)
	}
	return nil
}

// Data looks up a data spec.
func (d *Definition) Data(name string) (DataSpec, bool) {
	i := slices.IndexFunc(d.data, func(e DataSpec) bool { return e.Name == name })
	if i < 0 {
		return DataSpec{}, false
	}
	return d.data[i], true
}

// DataSpecs lists the data specs in declaration order.
func (d *Definition) DataSpecs() []DataSpec { return slices.Clone(d.data) }

// Param looks up a parameter spec.
func (d *Definition) Param(name string) (ParamSpec, bool) {
	i := slices.IndexFunc(d.params, func(e ParamSpec) bool { return e.Name == name })
	if i < 0 {
		return ParamSpec{}, false
	}
	return d.params[i], true
}

// ParamSpecs lists the parameter specs in declaration order.
func (d *Definition) ParamSpecs() []ParamSpec { return slices.Clone(d.params) }

// Pipeline looks up a pipeline constructor.
func (d *Definition) Pipeline(name string) (*PipelineDef, bool) {
	p, ok := d.pipelines[name]
	return p, ok
}

// PipelineNames lists the pipelines in declaration order.
func (d *Definition) PipelineNames() []string { return slices.Clone(d.order) }

// SpecsOf lists the data specs derived by the named pipeline.
func (d *Definition) SpecsOf(pipeline string) []DataSpec {
	var specs []DataSpec
	for _, s := range d.data {
		if s.Pipeline == pipeline {
			specs = append(specs, s)
		}
	}
	return specs
}

// Validate checks the definition for consistency.
func (d *Definition) Validate() error {
	var problems []string
	seen := make(map[string]string)
	for _, s := range d.data {
		if prev, dup := seen[s.Name]; dup {
			problems = append(problems, fmt.Sprintf("%q is declared as both %s and data spec", s.Name, prev))
		}
		seen[s.Name] = "data spec"
		switch {
		case s.Kind.IsInput() && s.Pipeline != "":
			problems = append(problems, fmt.Sprintf("input %q must not name a pipeline", s.Name))
		case !s.Kind.IsInput() && s.Pipeline == "":
			problems = append(problems, fmt.Sprintf("derived spec %q does not name a pipeline", s.Name))
		case !s.Kind.IsInput():
			if _, ok := d.pipelines[s.Pipeline]; !ok {
				problems = append(problems, fmt.Sprintf("derived spec %q names unknown pipeline %q", s.Name, s.Pipeline))
			}
		}
		if s.Kind.IsFileset() && s.Format == nil {
			problems = append(problems, fmt.Sprintf("fileset %q has no format", s.Name))
		}
		if !s.Kind.IsFileset() && s.Type == FieldNone {
			problems = append(problems, fmt.Sprintf("field %q has no type", s.Name))
		}
	}
	for _, p := range d.params {
		if prev, dup := seen[p.Name]; dup {
			problems = append(problems, fmt.Sprintf("%q is declared as both %s and parameter", p.Name, prev))
		}
		seen[p.Name] = "parameter"
		if p.IsSwitch() {
			if _, err := p.Coerce(p.Default); err != nil {
				problems = append(problems, fmt.Sprintf("default of switch %q is not one of its choices", p.Name))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid analysis %s: %w", d.Name, errors.New(strings.Join(problems, "; ")))
	}
	return nil
}
