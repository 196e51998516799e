package dataset

import (
	"context"
	"errors"

	"github.com/vk/neurogrid/internal/format"
)

// ErrNotFound is returned when a requested value is not stored in a repository.
var ErrNotFound = errors.New("not found")

// Fileset is a file-backed value in a dataset.
type Fileset struct {
	Name    string
	Format  *format.Format
	Key     Key
	Derived bool
	// Path is the local path of the file. For remote repositories it is only
	// set once the fileset has been localized.
	Path string
	// Remote is the object name in a remote repository.
	Remote string
}

// Repository resolves data slots of an analysis to stored values.
//
// Derived values are namespaced by analysis name. Keys passed in are already
// projected onto the value's frequency.
type Repository interface {
	// Tree discovers the sessions present in the repository.
	Tree(ctx context.Context) (*Tree, error)
	// PrimaryFilesets lists the acquired filesets stored at key.
	PrimaryFilesets(ctx context.Context, key Key) ([]Fileset, error)
	// PrimaryFields returns the acquired fields stored at key.
	PrimaryFields(ctx context.Context, key Key) (map[string]any, error)
	// DerivedFileset returns a fileset previously stored by PutFileset, or
	// ErrNotFound.
	DerivedFileset(ctx context.Context, analysis, name string, f *format.Format, key Key) (*Fileset, error)
	// PutFileset stores the file at src as a derived fileset.
	PutFileset(ctx context.Context, analysis, name string, f *format.Format, key Key, src string) (*Fileset, error)
	// DerivedField returns a field previously stored by PutField, or ErrNotFound.
	DerivedField(ctx context.Context, analysis, name string, key Key) (any, error)
	// PutField stores a derived scalar value.
	PutField(ctx context.Context, analysis, name string, key Key, value any) error
	// Signature returns the pipeline signature stored with a derived value by
	// PutSignature, or ErrNotFound.
	Signature(ctx context.Context, analysis, name string, key Key) (string, error)
	// PutSignature records the signature of the pipeline a derived value was
	// produced with.
	PutSignature(ctx context.Context, analysis, name string, key Key, sig string) error
	// Localize returns a local path for the fileset, fetching it if needed.
	Localize(ctx context.Context, fs *Fileset) (string, error)
	// String describes the repository for logs.
	String() string
}
