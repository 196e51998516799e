package inmemorytopology

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

func newNode(pipeline, name string, key dataset.Key) *node.Node {
	return node.New(&analysis.Pipeline{Name: pipeline}, &analysis.Node{Name: name}, key)
}

func TestAddAndGetNode(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := newNode("p", "bet", dataset.SessionKey("s1", "v1"))

	require.NoError(t, s.AddNode(ctx, n))
	require.NoError(t, s.AddNode(ctx, n), "adding twice is idempotent")

	got, ok := s.GetNode(ctx, nodeid.MustParse("p.bet[s1:v1]"))
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Len(t, s.AllNodes(ctx), 1)
}

func TestDependenciesAndDependents(t *testing.T) {
	// --- Arrange ---
	s := New()
	ctx := context.Background()
	a := newNode("p", "a", dataset.Key{})
	b := newNode("p", "b", dataset.Key{})
	c := newNode("p", "c", dataset.Key{})
	for _, n := range []*node.Node{c, a, b} {
		require.NoError(t, s.AddNode(ctx, n))
	}

	// --- Act ---
	require.NoError(t, s.AddDependency(ctx, b.Address(), c.Address()))
	require.NoError(t, s.AddDependency(ctx, a.Address(), c.Address()))
	require.NoError(t, s.AddDependency(ctx, a.Address(), b.Address()))

	// --- Assert ---
	deps, err := s.DependenciesOf(ctx, c.Address())
	require.NoError(t, err)
	assert.Equal(t, []nodeid.Address{a.Address(), b.Address()}, deps)

	dependents, err := s.DependentsOf(ctx, a.Address())
	require.NoError(t, err)
	assert.Equal(t, []nodeid.Address{b.Address(), c.Address()}, dependents)

	none, err := s.DependenciesOf(ctx, a.Address())
	require.NoError(t, err)
	assert.Empty(t, none)

	all := s.AllNodes(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "p.a[*:*]", all[0].ID())
}

func TestAddDependency_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newNode("p", "a", dataset.Key{})
	require.NoError(t, s.AddNode(ctx, a))
	missing := nodeid.MustParse("p.missing[*:*]")

	assert.ErrorContains(t, s.AddDependency(ctx, missing, a.Address()), "source node")
	assert.ErrorContains(t, s.AddDependency(ctx, a.Address(), missing), "target node")
	assert.ErrorContains(t, s.AddDependency(ctx, a.Address(), a.Address()), "cannot depend on itself")
	_, err := s.DependenciesOf(ctx, missing)
	assert.ErrorContains(t, err, "not found in topology")
}

func TestConcurrentAdds(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddNode(ctx, newNode("p", "n", dataset.SessionKey("s", string(rune('a'+i%26)))))
		}()
	}
	wg.Wait()

	assert.Len(t, s.AllNodes(ctx), 26)
}
