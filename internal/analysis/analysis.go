package analysis

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/iface"
)

// Deriver produces derived specs of an analysis. The processor implements it.
type Deriver interface {
	Derive(ctx context.Context, a *Analysis, names ...string) error
}

// Options configure an analysis instance.
type Options struct {
	// Name namespaces derived data in the repository. Defaults to the
	// definition name.
	Name       string
	Repository dataset.Repository
	Registry   *iface.Registry
	// Inputs select the primary data of input specs. An input without a
	// filter is matched by its spec name.
	Inputs     map[string]dataset.Filter
	Parameters map[string]any
	SubjectIDs []string
	VisitIDs   []string
	Deriver    Deriver
}

// Analysis is a definition bound to a dataset, parameters and input filters.
type Analysis struct {
	def      *Definition
	name     string
	repo     dataset.Repository
	registry *iface.Registry
	filters  map[string]dataset.Filter
	params   map[string]any
	subjects []string
	visits   []string
	deriver  Deriver

	mu        sync.Mutex
	pipelines map[string]*Pipeline

	sigMu sync.Mutex
	sigs  map[string]string
}

// New validates the definition, parameters and input filters and binds them
// into an analysis.
func New(def *Definition, opts Options) (*Analysis, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if opts.Repository == nil {
		return nil, errors.New("analysis needs a repository")
	}
	if opts.Registry == nil {
		return nil, errors.New("analysis needs an interface registry")
	}
	a := &Analysis{
		def:       def,
		name:      opts.Name,
		repo:      opts.Repository,
		registry:  opts.Registry,
		filters:   make(map[string]dataset.Filter),
		params:    make(map[string]any),
		subjects:  slices.Clone(opts.SubjectIDs),
		visits:    slices.Clone(opts.VisitIDs),
		deriver:   opts.Deriver,
		pipelines: make(map[string]*Pipeline),
		sigs:      make(map[string]string),
	}
	if a.name == "" {
		a.name = def.Name
	}

	for _, name := range slices.Sorted(maps.Keys(opts.Parameters)) {
		ps, ok := def.Param(name)
		if !ok {
			return nil, fmt.Errorf("analysis %s has no parameter %q", def.Name, name)
		}
		v, err := ps.Coerce(opts.Parameters[name])
		if err != nil {
			return nil, err
		}
		a.params[name] = v
	}
	for _, ps := range def.ParamSpecs() {
		if _, set := a.params[ps.Name]; !set {
			a.params[ps.Name] = ps.Default
		}
	}

	for _, name := range slices.Sorted(maps.Keys(opts.Inputs)) {
		ds, ok := def.Data(name)
		if !ok {
			return nil, fmt.Errorf("analysis %s has no input %q", def.Name, name)
		}
		if ds.Derived() {
			return nil, fmt.Errorf("%q is derived by analysis %s and cannot be selected from the dataset", name, def.Name)
		}
		f := opts.Inputs[name]
		f.Spec = name
		a.filters[name] = f
	}
	for _, ds := range def.DataSpecs() {
		if !ds.Kind.IsInput() {
			continue
		}
		if _, ok := a.filters[ds.Name]; ok {
			continue
		}
		f, err := dataset.NewFilter(ds.Name, ds.Name, false)
		if err != nil {
			return nil, err
		}
		a.filters[ds.Name] = f
	}
	return a, nil
}

// Name is the name derived data are stored under.
func (a *Analysis) Name() string { return a.name }

// Definition returns the definition the analysis instantiates.
func (a *Analysis) Definition() *Definition { return a.def }

// Repository returns the dataset the analysis reads and writes.
func (a *Analysis) Repository() dataset.Repository { return a.repo }

// Registry returns the interfaces available to pipelines.
func (a *Analysis) Registry() *iface.Registry { return a.registry }

// Filter returns the filter selecting an input spec.
func (a *Analysis) Filter(spec string) (dataset.Filter, bool) {
	f, ok := a.filters[spec]
	return f, ok
}

// Parameter returns the value of a parameter.
func (a *Analysis) Parameter(name string) (any, error) {
	v, ok := a.params[name]
	if !ok {
		return nil, fmt.Errorf("analysis %s has no parameter %q", a.def.Name, name)
	}
	return v, nil
}

// Parameters returns a copy of every parameter value.
func (a *Analysis) Parameters() map[string]any { return maps.Clone(a.params) }

// Pipeline constructs the named pipeline and checks that it produces every
// spec declared with it. Constructed pipelines are reused.
func (a *Analysis) Pipeline(name string) (*Pipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pipelines[name]; ok {
		return p, nil
	}
	pd, ok := a.def.Pipeline(name)
	if !ok {
		return nil, fmt.Errorf("analysis %s has no pipeline %q", a.def.Name, name)
	}
	p, err := pd.Construct(a, NameMaps{})
	if err != nil {
		return nil, fmt.Errorf("failed to construct pipeline %s: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("constructor of pipeline %s returned no pipeline", name)
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	a.pipelines[name] = p
	return p, nil
}

// PipelineFor constructs the pipeline deriving a spec.
func (a *Analysis) PipelineFor(spec string) (*Pipeline, error) {
	ds, ok := a.def.Data(spec)
	if !ok {
		return nil, fmt.Errorf("analysis %s has no spec %q", a.def.Name, spec)
	}
	if !ds.Derived() {
		return nil, fmt.Errorf("%q is an input of analysis %s and has no pipeline", spec, a.def.Name)
	}
	return a.Pipeline(ds.Pipeline)
}

// Tree returns the dataset tree restricted to the selected subjects and visits.
func (a *Analysis) Tree(ctx context.Context) (*dataset.Tree, error) {
	tree, err := a.repo.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset tree of %s: %w", a.repo, err)
	}
	return tree.Restrict(a.subjects, a.visits)
}

// Resolve looks up the value of a spec at key. Missing derived data and
// missing optional inputs yield an item with Exists unset.
func (a *Analysis) Resolve(ctx context.Context, spec string, key dataset.Key) (Item, error) {
	ds, ok := a.def.Data(spec)
	if !ok {
		return Item{}, fmt.Errorf("analysis %s has no spec %q", a.def.Name, spec)
	}
	key = key.Project(ds.Frequency.Axes())
	item := Item{Spec: ds.Name, Key: key}

	switch ds.Kind {
	case InputFileset:
		candidates, err := a.repo.PrimaryFilesets(ctx, key)
		if err != nil {
			return item, fmt.Errorf("failed to list filesets at %s: %w", key, err)
		}
		fs, err := a.filters[spec].MatchFileset(candidates, ds.Format)
		if err != nil {
			return item, a.missingInput(ds, key, err)
		}
		item.Fileset, item.Exists = fs, true
	case InputField:
		fields, err := a.repo.PrimaryFields(ctx, key)
		if err != nil {
			return item, fmt.Errorf("failed to read fields at %s: %w", key, err)
		}
		v, err := a.filters[spec].MatchField(fields)
		if err != nil {
			return item, a.missingInput(ds, key, err)
		}
		if item.Value, err = ds.Type.Coerce(v); err != nil {
			return item, fmt.Errorf("field %s at %s: %w", spec, key, err)
		}
		item.Exists = true
	case DerivedFileset:
		fs, err := a.repo.DerivedFileset(ctx, a.name, spec, ds.Format, key)
		if errors.Is(err, dataset.ErrNotFound) {
			return item, nil
		}
		if err != nil {
			return item, err
		}
		item.Fileset, item.Exists = fs, true
	case DerivedField:
		v, err := a.repo.DerivedField(ctx, a.name, spec, key)
		if errors.Is(err, dataset.ErrNotFound) {
			return item, nil
		}
		if err != nil {
			return item, err
		}
		if item.Value, err = ds.Type.Coerce(v); err != nil {
			return item, fmt.Errorf("field %s at %s: %w", spec, key, err)
		}
		item.Exists = true
	}
	return item, nil
}

func (a *Analysis) missingInput(ds DataSpec, key dataset.Key, err error) error {
	if ds.Optional && errors.Is(err, dataset.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("input %s at %s: %w", ds.Name, key, err)
}

// Data returns every value of a spec, deriving it first when derive is set.
func (a *Analysis) Data(ctx context.Context, name string, derive bool) (*Collection, error) {
	ds, ok := a.def.Data(name)
	if !ok {
		return nil, fmt.Errorf("analysis %s has no spec %q", a.def.Name, name)
	}
	if derive && ds.Derived() {
		if a.deriver == nil {
			return nil, fmt.Errorf("cannot derive %q: analysis %s has no deriver", name, a.name)
		}
		if err := a.deriver.Derive(ctx, a, name); err != nil {
			return nil, err
		}
	}
	tree, err := a.Tree(ctx)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	c := &Collection{Spec: ds}
	for _, key := range tree.Keys(ds.Frequency) {
		item, err := a.Resolve(ctx, name, key)
		if err != nil {
			return nil, err
		}
		logger.Debug("Resolved item.", "spec", name, "key", key.String(), "exists", item.Exists)
		c.Items = append(c.Items, item)
	}
	return c, nil
}
