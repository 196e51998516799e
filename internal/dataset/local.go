package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/format"
)

// LocalRepo is a dataset stored in a directory on the local filesystem.
type LocalRepo struct {
	root    string
	layout  layout
	formats *format.Registry

	mu  sync.Mutex
	idx *index

	// fieldsMu serializes read-modify-write cycles of derived fields documents.
	fieldsMu sync.Mutex
}

// NewLocalRepo opens the dataset rooted at root. depth is the number of
// directory levels (subject, visit) above the data files.
func NewLocalRepo(root string, depth int, formats *format.Registry) (*LocalRepo, error) {
	l, err := newLayout(depth)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path %s is not a directory", root)
	}
	if formats == nil {
		formats = format.Default()
	}
	return &LocalRepo{root: abs, layout: l, formats: formats}, nil
}

// String implements Repository.
func (r *LocalRepo) String() string {
	return fmt.Sprintf("local(%s, depth=%d)", r.root, r.layout.depth)
}

// Root returns the absolute dataset directory.
func (r *LocalRepo) Root() string {
	return r.root
}

func (r *LocalRepo) index(ctx context.Context) (*index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx != nil {
		return r.idx, nil
	}

	var paths []string
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == derivativesDir && filepath.Dir(p) == r.root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset %s: %w", r.root, err)
	}

	r.idx = r.layout.buildIndex(paths)
	ctxlog.FromContext(ctx).Debug("Indexed local dataset.", "root", r.root, "files", len(paths), "sessions", len(r.idx.sessions))
	return r.idx, nil
}

// Tree implements Repository.
func (r *LocalRepo) Tree(ctx context.Context) (*Tree, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(idx.sessions), nil
}

// PrimaryFilesets implements Repository.
func (r *LocalRepo) PrimaryFilesets(ctx context.Context, key Key) ([]Fileset, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	dir, ok := r.layout.primaryDir(key)
	if !ok {
		return nil, nil
	}
	filesets := idx.filesets(r.formats, dir, key)
	for i := range filesets {
		filesets[i].Path = filepath.Join(r.root, filepath.FromSlash(filesets[i].Remote))
	}
	return filesets, nil
}

// PrimaryFields implements Repository.
func (r *LocalRepo) PrimaryFields(ctx context.Context, key Key) (map[string]any, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	dir, ok := r.layout.primaryDir(key)
	if !ok || !idx.hasFields(dir) {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(dir), fieldsFile))
	if err != nil {
		return nil, err
	}
	return decodeFields(data)
}

func (r *LocalRepo) derivedPath(analysis, name string, f *format.Format, key Key) string {
	return filepath.Join(r.root, filepath.FromSlash(r.layout.derivedDir(analysis, key)), f.Filename(name))
}

// DerivedFileset implements Repository.
func (r *LocalRepo) DerivedFileset(ctx context.Context, analysis, name string, f *format.Format, key Key) (*Fileset, error) {
	p := r.derivedPath(analysis, name, f, key)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fileset %s at %s: %w", name, key, ErrNotFound)
		}
		return nil, err
	}
	return &Fileset{Name: name, Format: f, Key: key, Derived: true, Path: p}, nil
}

// PutFileset implements Repository.
func (r *LocalRepo) PutFileset(ctx context.Context, analysis, name string, f *format.Format, key Key, src string) (*Fileset, error) {
	dest := r.derivedPath(analysis, name, f, key)
	if err := copyFileAtomic(src, dest); err != nil {
		return nil, fmt.Errorf("failed to store fileset %s at %s: %w", name, key, err)
	}
	ctxlog.FromContext(ctx).Debug("Stored derived fileset.", "name", name, "key", key.String(), "path", dest)
	return &Fileset{Name: name, Format: f, Key: key, Derived: true, Path: dest}, nil
}

func (r *LocalRepo) docPath(analysis string, key Key, doc string) string {
	return filepath.Join(r.root, filepath.FromSlash(r.layout.derivedDir(analysis, key)), doc)
}

func (r *LocalRepo) readDerivedDoc(analysis string, key Key, doc string) (map[string]any, error) {
	data, err := os.ReadFile(r.docPath(analysis, key, doc))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return decodeFields(data)
}

// DerivedField implements Repository.
func (r *LocalRepo) DerivedField(ctx context.Context, analysis, name string, key Key) (any, error) {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	fields, err := r.readDerivedDoc(analysis, key, fieldsFile)
	if err != nil {
		return nil, err
	}
	v, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("field %s at %s: %w", name, key, ErrNotFound)
	}
	return v, nil
}

// PutField implements Repository.
func (r *LocalRepo) PutField(ctx context.Context, analysis, name string, key Key, value any) error {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	if err := r.putDerivedDoc(analysis, key, fieldsFile, name, value); err != nil {
		return fmt.Errorf("failed to store field %s at %s: %w", name, key, err)
	}
	ctxlog.FromContext(ctx).Debug("Stored derived field.", "name", name, "key", key.String(), "value", value)
	return nil
}

func (r *LocalRepo) putDerivedDoc(analysis string, key Key, doc, name string, value any) error {
	entries, err := r.readDerivedDoc(analysis, key, doc)
	if err != nil {
		return err
	}
	entries[name] = value
	data, err := encodeFields(entries)
	if err != nil {
		return err
	}
	return writeFileAtomic(r.docPath(analysis, key, doc), data)
}

// Signature implements Repository.
func (r *LocalRepo) Signature(ctx context.Context, analysis, name string, key Key) (string, error) {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	sigs, err := r.readDerivedDoc(analysis, key, signaturesFile)
	if err != nil {
		return "", err
	}
	sig, ok := sigs[name].(string)
	if !ok {
		return "", fmt.Errorf("signature of %s at %s: %w", name, key, ErrNotFound)
	}
	return sig, nil
}

// PutSignature implements Repository.
func (r *LocalRepo) PutSignature(ctx context.Context, analysis, name string, key Key, sig string) error {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	if err := r.putDerivedDoc(analysis, key, signaturesFile, name, sig); err != nil {
		return fmt.Errorf("failed to store signature of %s at %s: %w", name, key, err)
	}
	return nil
}

// Localize implements Repository. Local filesets are already on disk.
func (r *LocalRepo) Localize(ctx context.Context, fs *Fileset) (string, error) {
	if fs.Path != "" {
		return fs.Path, nil
	}
	if fs.Remote == "" {
		return "", fmt.Errorf("fileset %s has no location", fs.Name)
	}
	return filepath.Join(r.root, filepath.FromSlash(fs.Remote)), nil
}

// copyFileAtomic copies src to dest through a temporary file in dest's directory.
func copyFileAtomic(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeFileAtomic(dest string, data []byte) error {
	return writeAtomic(dest, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(dest string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
