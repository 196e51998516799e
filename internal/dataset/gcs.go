package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/vk/neurogrid/internal/ctxlog"
	"github.com/vk/neurogrid/internal/format"
)

// objectStore is the subset of a bucket the GCS repository needs.
type objectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, name string, w io.Writer) error
	Upload(ctx context.Context, name string, r io.Reader) error
}

// errObjectNotExist is returned by objectStore implementations for missing objects.
var errObjectNotExist = errors.New("object does not exist")

// gcsBucket adapts a storage.BucketHandle to objectStore.
type gcsBucket struct {
	bucket *storage.BucketHandle
}

func (b *gcsBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (b *gcsBucket) Download(ctx context.Context, name string, w io.Writer) error {
	r, err := b.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return errObjectNotExist
		}
		return fmt.Errorf("failed to open object %s: %w", name, err)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to download object %s: %w", name, err)
	}
	return nil
}

func (b *gcsBucket) Upload(ctx context.Context, name string, r io.Reader) error {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for object %s: %w", name, err)
	}
	return nil
}

// GCSRepo is a dataset stored under a prefix of a Google Cloud Storage
// bucket. Filesets are downloaded into a local cache directory on demand.
type GCSRepo struct {
	store    objectStore
	bucket   string
	prefix   string
	layout   layout
	formats  *format.Registry
	cacheDir string

	mu  sync.Mutex
	idx *index

	fieldsMu sync.Mutex
}

// ParseGCSURL splits a gs://bucket/prefix URL.
func ParseGCSURL(url string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid GCS URL %q: must start with gs://", url)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS URL %q: missing bucket", url)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// IsGCSURL reports whether a dataset location refers to a bucket.
func IsGCSURL(location string) bool {
	return strings.HasPrefix(location, "gs://")
}

// OpenGCS connects to the bucket named in url.
func OpenGCS(ctx context.Context, url string, depth int, formats *format.Registry, cacheDir string, opts ...option.ClientOption) (*GCSRepo, error) {
	bucket, prefix, err := ParseGCSURL(url)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return newGCSRepo(&gcsBucket{bucket: client.Bucket(bucket)}, bucket, prefix, depth, formats, cacheDir)
}

func newGCSRepo(store objectStore, bucket, prefix string, depth int, formats *format.Registry, cacheDir string) (*GCSRepo, error) {
	l, err := newLayout(depth)
	if err != nil {
		return nil, err
	}
	if cacheDir == "" {
		return nil, fmt.Errorf("a cache directory is required for GCS datasets")
	}
	if formats == nil {
		formats = format.Default()
	}
	return &GCSRepo{store: store, bucket: bucket, prefix: prefix, layout: l, formats: formats, cacheDir: cacheDir}, nil
}

// String implements Repository.
func (r *GCSRepo) String() string {
	return fmt.Sprintf("gcs(gs://%s/%s, depth=%d)", r.bucket, r.prefix, r.layout.depth)
}

func (r *GCSRepo) object(rel string) string {
	if r.prefix == "" {
		return rel
	}
	return path.Join(r.prefix, rel)
}

func (r *GCSRepo) index(ctx context.Context) (*index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx != nil {
		return r.idx, nil
	}
	listPrefix := ""
	if r.prefix != "" {
		listPrefix = r.prefix + "/"
	}
	names, err := r.store.List(ctx, listPrefix)
	if err != nil {
		return nil, err
	}
	rel := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasSuffix(n, "/") {
			continue
		}
		rel = append(rel, strings.TrimPrefix(n, listPrefix))
	}
	r.idx = r.layout.buildIndex(rel)
	ctxlog.FromContext(ctx).Debug("Indexed GCS dataset.", "bucket", r.bucket, "prefix", r.prefix, "objects", len(rel))
	return r.idx, nil
}

// Tree implements Repository.
func (r *GCSRepo) Tree(ctx context.Context) (*Tree, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(idx.sessions), nil
}

// PrimaryFilesets implements Repository. The returned filesets are not yet
// localized.
func (r *GCSRepo) PrimaryFilesets(ctx context.Context, key Key) ([]Fileset, error) {
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
		filesets[i].Remote = r.object(filesets[i].Remote)
	}
	return filesets, nil
}

func (r *GCSRepo) readFields(ctx context.Context, object string) (map[string]any, error) {
	var buf bytes.Buffer
	if err := r.store.Download(ctx, object, &buf); err != nil {
		if errors.Is(err, errObjectNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return decodeFields(buf.Bytes())
}

// PrimaryFields implements Repository.
func (r *GCSRepo) PrimaryFields(ctx context.Context, key Key) (map[string]any, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	dir, ok := r.layout.primaryDir(key)
	if !ok || !idx.hasFields(dir) {
		return map[string]any{}, nil
	}
	return r.readFields(ctx, r.object(path.Join(dir, fieldsFile)))
}

func (r *GCSRepo) derivedObject(analysis, name string, f *format.Format, key Key) string {
	return r.object(path.Join(r.layout.derivedDir(analysis, key), f.Filename(name)))
}

func (r *GCSRepo) cachePath(object string) string {
	return filepath.Join(r.cacheDir, r.bucket, filepath.FromSlash(object))
}

// DerivedFileset implements Repository. The fileset is downloaded into the
// cache so that its presence is confirmed.
func (r *GCSRepo) DerivedFileset(ctx context.Context, analysis, name string, f *format.Format, key Key) (*Fileset, error) {
	fs := &Fileset{Name: name, Format: f, Key: key, Derived: true, Remote: r.derivedObject(analysis, name, f, key)}
	if _, err := r.Localize(ctx, fs); err != nil {
		if errors.Is(err, errObjectNotExist) {
			return nil, fmt.Errorf("fileset %s at %s: %w", name, key, ErrNotFound)
		}
		return nil, err
	}
	return fs, nil
}

// PutFileset implements Repository.
func (r *GCSRepo) PutFileset(ctx context.Context, analysis, name string, f *format.Format, key Key, src string) (*Fileset, error) {
	object := r.derivedObject(analysis, name, f, key)
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if err := r.store.Upload(ctx, object, in); err != nil {
		return nil, fmt.Errorf("failed to store fileset %s at %s: %w", name, key, err)
	}
	cached := r.cachePath(object)
	if err := copyFileAtomic(src, cached); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Uploaded derived fileset.", "name", name, "key", key.String(), "object", object)
	return &Fileset{Name: name, Format: f, Key: key, Derived: true, Remote: object, Path: cached}, nil
}

func (r *GCSRepo) docObject(analysis string, key Key, doc string) string {
	return r.object(path.Join(r.layout.derivedDir(analysis, key), doc))
}

// DerivedField implements Repository.
func (r *GCSRepo) DerivedField(ctx context.Context, analysis, name string, key Key) (any, error) {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	fields, err := r.readFields(ctx, r.docObject(analysis, key, fieldsFile))
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
func (r *GCSRepo) PutField(ctx context.Context, analysis, name string, key Key, value any) error {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	return r.putDoc(ctx, r.docObject(analysis, key, fieldsFile), name, value)
}

func (r *GCSRepo) putDoc(ctx context.Context, object, name string, value any) error {
	entries, err := r.readFields(ctx, object)
	if err != nil {
		return err
	}
	entries[name] = value
	data, err := encodeFields(entries)
	if err != nil {
		return err
	}
	return r.store.Upload(ctx, object, bytes.NewReader(data))
}

// Signature implements Repository.
func (r *GCSRepo) Signature(ctx context.Context, analysis, name string, key Key) (string, error) {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	sigs, err := r.readFields(ctx, r.docObject(analysis, key, signaturesFile))
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
func (r *GCSRepo) PutSignature(ctx context.Context, analysis, name string, key Key, sig string) error {
	r.fieldsMu.Lock()
	defer r.fieldsMu.Unlock()
	if err := r.putDoc(ctx, r.docObject(analysis, key, signaturesFile), name, sig); err != nil {
		return fmt.Errorf("failed to store signature of %s at %s: %w", name, key, err)
	}
	return nil
}

// Localize implements Repository, downloading the object into the cache
// directory unless it is already there.
func (r *GCSRepo) Localize(ctx context.Context, fs *Fileset) (string, error) {
	if fs.Path != "" {
		return fs.Path, nil
	}
	if fs.Remote == "" {
		return "", fmt.Errorf("fileset %s has no location", fs.Name)
	}
	dest := r.cachePath(fs.Remote)
	if _, err := os.Stat(dest); err == nil {
		fs.Path = dest
		return dest, nil
	}
	err := writeAtomic(dest, func(w io.Writer) error {
		return r.store.Download(ctx, fs.Remote, w)
	})
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Debug("Localized fileset.", "object", fs.Remote, "path", dest)
	fs.Path = dest
	return dest, nil
}
