package hcl_adapter

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/format"
)

// Loader reads analysis definitions and formats from HCL files.
type Loader struct {
	formats *format.Registry
}

// NewLoader creates a loader registering HCL formats into formats.
func NewLoader(formats *format.Registry) *Loader {
	return &Loader{formats: formats}
}

// Catalog holds the definitions found by a loader.
type Catalog struct {
	Formats     *format.Registry
	definitions map[string]*analysis.Definition
}

// Definition looks up an analysis definition by name.
func (c *Catalog) Definition(name string) (*analysis.Definition, bool) {
	d, ok := c.definitions[name]
	return d, ok
}

// Names lists the loaded analyses in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type source struct {
	name string
	data []byte
}

// Load parses every .hcl file under the given paths. Directories are
// walked recursively; paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Catalog, error) {
	return l.LoadAll(ctx, nil, paths...)
}

// LoadFS parses every .hcl file in fsys.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS) (*Catalog, error) {
	return l.LoadAll(ctx, fsys)
}

// LoadAll parses the .hcl files in fsys (which may be nil) together with
// those under paths, so definitions on disk can extend bundled ones.
func (l *Loader) LoadAll(ctx context.Context, fsys fs.FS, paths ...string) (*Catalog, error) {
	var sources []source
	if fsys != nil {
		embedded, err := fsSources(fsys)
		if err != nil {
			return nil, err
		}
		sources = append(sources, embedded...)
	}
	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read HCL file %s: %w", file, err)
		}
		sources = append(sources, source{name: file, data: data})
	}
	return l.load(ctx, sources)
}

func fsSources(fsys fs.FS) ([]source, error) {
	var sources []source
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".hcl" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		sources = append(sources, source{name: p, data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded definitions: %w", err)
	}
	return sources, nil
}

func (l *Loader) load(ctx context.Context, sources []source) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "file_count", len(sources))

	parser := hclparse.NewParser()
	t := &translator{
		formats:  l.formats,
		blocks:   make(map[string]*analysisBlock),
		defs:     make(map[string]*analysis.Definition),
		visiting: make(map[string]bool),
	}
	var order []string

	for _, src := range sources {
		hclFile, diags := parser.ParseHCL(src.data, src.name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", src.name, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", src.name, diags)
		}

		for _, fb := range root.Formats {
			f := &format.Format{
				Name:          fb.Name,
				Extension:     fb.Extension,
				Directory:     fb.Directory,
				ResourceNames: fb.ResourceNames,
				Desc:          fb.Description,
			}
			if err := l.formats.Register(f); err != nil {
				return nil, fmt.Errorf("in %s: %w", src.name, err)
			}
			logger.Debug("Registered format.", "format", f.Name, "extension", f.Extension)
		}
		for _, ab := range root.Analyses {
			if prev, dup := t.blocks[ab.Name]; dup {
				return nil, fmt.Errorf("analysis %q is defined in both %s and %s", ab.Name, prev.file, src.name)
			}
			ab.file = src.name
			t.blocks[ab.Name] = ab
			order = append(order, ab.Name)
		}
	}

	// Formats from every file are registered before any analysis refers to them.
	for _, name := range order {
		if _, err := t.definition(ctx, name); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "analyses", len(t.defs))
	return &Catalog{Formats: l.formats, definitions: t.defs}, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" && !slices.Contains(allFiles, path) {
				allFiles = append(allFiles, path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" && !slices.Contains(allFiles, p) {
				allFiles = append(allFiles, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}
