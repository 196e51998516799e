// Package format describes the file formats data slots are stored in and
// maps file names onto them.
package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Format is a named file format identified by its extension.
type Format struct {
	Name      string
	Extension string
	// Directory is true for formats stored as a directory rather than a file.
	Directory bool
	// ResourceNames lists the names a remote repository type uses for this
	// format, keyed by repository type (e.g. "xnat").
	ResourceNames map[string][]string
	Desc          string
}

// String implements fmt.Stringer.
func (f *Format) String() string {
	if f == nil {
		return "<nil>"
	}
	return f.Name
}

// Matches reports whether filename carries this format's extension.
func (f *Format) Matches(filename string) bool {
	return f.Extension != "" && strings.HasSuffix(strings.ToLower(filename), strings.ToLower(f.Extension))
}

// Strip removes the format's extension from filename.
func (f *Format) Strip(filename string) string {
	if !f.Matches(filename) {
		return filename
	}
	return filename[:len(filename)-len(f.Extension)]
}

// Filename returns the file name for a data slot stored in this format.
func (f *Format) Filename(name string) string {
	return name + f.Extension
}

var (
	Text    = &Format{Name: "text", Extension: ".txt", Desc: "Plain text"}
	JSON    = &Format{Name: "json", Extension: ".json", Desc: "JSON document"}
	Nifti   = &Format{Name: "nifti", Extension: ".nii", ResourceNames: map[string][]string{"xnat": {"NIFTI"}}, Desc: "NIfTI-1 image"}
	NiftiGz = &Format{
		Name:          "nifti_gz",
		Extension:     ".nii.gz",
		ResourceNames: map[string][]string{"xnat": {"NiFTI_GZ", "NIFTI_GZ"}},
		Desc:          "Gzipped NIfTI-1 image",
	}
)

// Registry is a thread-safe collection of formats keyed by name.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]*Format
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]*Format)}
}

// Default returns a registry pre-populated with the built-in formats.
func Default() *Registry {
	r := NewRegistry()
	for _, f := range []*Format{Text, JSON, Nifti, NiftiGz} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a format to the registry.
func (r *Registry) Register(f *Format) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("format must have a name")
	}
	if f.Extension != "" && !strings.HasPrefix(f.Extension, ".") {
		return fmt.Errorf("format %q: extension %q must start with '.'", f.Name, f.Extension)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.formats[f.Name]; exists {
		return fmt.Errorf("format %q is already registered", f.Name)
	}
	r.formats[f.Name] = f
	return nil
}

// Lookup returns the format registered under name.
func (r *Registry) Lookup(name string) (*Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	return f, ok
}

// Names returns all registered format names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns the format whose extension matches filename. When several
// match, the longest extension wins.
func (r *Registry) Detect(filename string) (*Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Format
	for _, f := range r.formats {
		if f.Matches(filename) && (best == nil || len(f.Extension) > len(best.Extension)) {
			best = f
		}
	}
	return best, best != nil
}
