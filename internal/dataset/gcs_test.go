package dataset

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/neurogrid/internal/format"
)

// memoryStore is an in-memory objectStore.
type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	downloads int
}

func newMemoryStore(objects map[string]string) *memoryStore {
	s := &memoryStore{objects: make(map[string][]byte)}
	for k, v := range objects {
		s.objects[k] = []byte(v)
	}
	return s
}

func (s *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memoryStore) Download(_ context.Context, name string, w io.Writer) error {
	s.mu.Lock()
	data, ok := s.objects[name]
	s.downloads++
	s.mu.Unlock()
	if !ok {
		return errObjectNotExist
	}
	_, err := w.Write(data)
	return err
}

func (s *memoryStore) Upload(_ context.Context, name string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = buf.Bytes()
	return nil
}

func TestParseGCSURL(t *testing.T) {
	bucket, prefix, err := ParseGCSURL("gs://neuro-data/studies/ds000114/")
	require.NoError(t, err)
	assert.Equal(t, "neuro-data", bucket)
	assert.Equal(t, "studies/ds000114", prefix)

	_, _, err = ParseGCSURL("s3://bucket")
	require.Error(t, err)
	_, _, err = ParseGCSURL("gs:///prefix")
	require.Error(t, err)

	assert.True(t, IsGCSURL("gs://b"))
	assert.False(t, IsGCSURL("/data"))
}

func TestGCSRepo_TreeAndLocalize(t *testing.T) {
	// --- Arrange ---
	store := newMemoryStore(map[string]string{
		"ds/01/test/metrics.txt":   "height 1.8",
		"ds/02/test/metrics.txt":   "height 1.6",
		"ds/02/test/fields.json":   `{"age": 40}`,
		"other/01/test/ignored.txt": "x",
	})
	cache := t.TempDir()
	repo, err := newGCSRepo(store, "bucket", "ds", 2, format.Default(), cache)
	require.NoError(t, err)
	ctx := context.Background()

	// --- Act ---
	tree, err := repo.Tree(ctx)
	require.NoError(t, err)
	filesets, err := repo.PrimaryFilesets(ctx, SessionKey("02", "test"))
	require.NoError(t, err)
	fields, err := repo.PrimaryFields(ctx, SessionKey("02", "test"))
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, []Key{SessionKey("01", "test"), SessionKey("02", "test")}, tree.Sessions)
	require.Len(t, filesets, 1)
	assert.Equal(t, "ds/02/test/metrics.txt", filesets[0].Remote)
	assert.Empty(t, filesets[0].Path)
	assert.Equal(t, map[string]any{"age": float64(40)}, fields)

	local, err := repo.Localize(ctx, &filesets[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "bucket", "ds", "02", "test", "metrics.txt"), local)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "height 1.6", string(data))

	// A second localization hits the cache.
	before := store.downloads
	again := Fileset{Name: "metrics", Remote: "ds/02/test/metrics.txt"}
	_, err = repo.Localize(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, before, store.downloads)
}

func TestGCSRepo_DerivedRoundTrip(t *testing.T) {
	// --- Arrange ---
	store := newMemoryStore(map[string]string{"ds/01/test/metrics.txt": "weight 75"})
	repo, err := newGCSRepo(store, "bucket", "ds", 2, nil, t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(src, []byte("75"), 0o644))
	key := SessionKey("01", "test")

	_, err = repo.DerivedFileset(ctx, "toy", "selected_metric", format.Text, key)
	require.ErrorIs(t, err, ErrNotFound)

	// --- Act ---
	stored, err := repo.PutFileset(ctx, "toy", "selected_metric", format.Text, key, src)
	require.NoError(t, err)
	require.NoError(t, repo.PutField(ctx, "toy", "average", Key{}, 75.0))

	// --- Assert ---
	assert.Equal(t, "ds/derivatives/toy/01/test/selected_metric.txt", stored.Remote)
	assert.Contains(t, store.objects, "ds/derivatives/toy/ALL/ALL/fields.json")
	v, err := repo.DerivedField(ctx, "toy", "average", Key{})
	require.NoError(t, err)
	assert.Equal(t, 75.0, v)
	_, err = repo.DerivedFileset(ctx, "toy", "selected_metric", format.Text, key)
	require.NoError(t, err)
}

func TestNewGCSRepo_RequiresCache(t *testing.T) {
	_, err := newGCSRepo(newMemoryStore(nil), "bucket", "", 2, nil, "")
	require.Error(t, err)
}
