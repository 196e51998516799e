package provstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/iface"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mem, err := OpenBadger(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	disk, err := OpenBadger(BadgerOptions{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		mem.Close()
		disk.Close()
	})
	return map[string]Store{
		"memory":        NewMemory(),
		"badger memory": mem,
		"badger disk":   disk,
	}
}

func TestStore_PutGetList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// --- Arrange ---
			ctx := context.Background()
			runID := uuid.NewString()
			started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			b := Record{RunID: runID, Analysis: "toy", NodeID: "p.b[s1:*]", Interface: "count", Hash: "h2",
				Outputs: iface.Outputs{"n": 2.0}, Started: started, Finished: started.Add(time.Second)}
			a := Record{RunID: runID, Analysis: "toy", NodeID: "p.a[s1:v1]", Interface: "copy", Hash: "h1",
				Outputs: iface.Outputs{"out_file": "/w/copy.txt"}, Started: started, Finished: started}
			other := Record{RunID: runID, Analysis: "other", NodeID: "p.a[s1:v1]", Hash: "x"}

			// --- Act ---
			for _, r := range []Record{b, a, other} {
				require.NoError(t, s.Put(ctx, r))
			}
			got, err := s.Get(ctx, "toy", "p.a[s1:v1]")
			require.NoError(t, err)
			list, err := s.List(ctx, "toy")
			require.NoError(t, err)

			// --- Assert ---
			assert.Equal(t, "h1", got.Hash)
			assert.Equal(t, "/w/copy.txt", got.Outputs["out_file"])
			assert.True(t, got.Started.Equal(started))
			require.Len(t, list, 2)
			assert.Equal(t, "p.a[s1:v1]", list[0].NodeID)
			assert.Equal(t, "p.b[s1:*]", list[1].NodeID)
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, Record{Analysis: "toy", NodeID: "n", Hash: "old"}))
			require.NoError(t, s.Put(ctx, Record{Analysis: "toy", NodeID: "n", Hash: "new"}))

			got, err := s.Get(ctx, "toy", "n")

			require.NoError(t, err)
			assert.Equal(t, "new", got.Hash)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "toy", "nope")

			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	s, err := OpenBadger(BadgerOptions{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), Record{Analysis: "toy", NodeID: "n", Hash: "h"}))
	require.NoError(t, s.Close())

	// --- Act ---
	s, err = OpenBadger(BadgerOptions{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "toy", "n")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "h", got.Hash)
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerOptions{})

	assert.EqualError(t, err, "provenance database path is required")
}
