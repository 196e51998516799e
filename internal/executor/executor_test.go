package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/graph"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/inmemorystore"
	"github.com/vk/neurogrid/internal/inmemorytopology"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/testutil"
)

var noop = iface.NewFunc("noop", nil, nil, nil)

// newGraph builds a graph of nodes named after the keys of edges and their
// targets; each edge entry lists the dependents of a node.
func newGraph(t *testing.T, names []string, edges map[string][]string) (*graph.Manager, map[string]*node.Node) {
	t.Helper()
	ctx := context.Background()
	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	nodes := make(map[string]*node.Node)
	for _, name := range names {
		n := node.New(&analysis.Pipeline{Name: "p"}, &analysis.Node{Name: name, Interface: noop}, dataset.Key{})
		require.NoError(t, g.Topology().AddNode(ctx, n))
		nodes[name] = n
	}
	for from, tos := range edges {
		for _, to := range tos {
			require.NoError(t, g.Topology().AddDependency(ctx, nodes[from].Address(), nodes[to].Address()))
		}
	}
	return g, nodes
}

func status(t *testing.T, g *graph.Manager, n *node.Node) node.Status {
	t.Helper()
	s, ok := g.NodeStatus(context.Background(), n.Address())
	require.True(t, ok)
	return s
}

func TestRun_RespectsDependencies(t *testing.T) {
	// --- Arrange ---
	g, nodes := newGraph(t, []string{"a", "b", "c", "d"}, map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
	})
	sleeper := testutil.NewSleeper(10 * time.Millisecond)

	// --- Act ---
	err := New(g, sleeper, Options{Workers: 4}).Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	a, b, c, d := sleeper.Record("p.a[*:*]"), sleeper.Record("p.b[*:*]"), sleeper.Record("p.c[*:*]"), sleeper.Record("p.d[*:*]")
	require.NotNil(t, d)
	assert.False(t, b.Start.Before(a.End), "b must start after a finishes")
	assert.False(t, c.Start.Before(a.End), "c must start after a finishes")
	assert.False(t, d.Start.Before(b.End), "d must start after b finishes")
	assert.False(t, d.Start.Before(c.End), "d must start after c finishes")
	for _, n := range nodes {
		assert.Equal(t, node.StatusCompleted, status(t, g, n))
	}
	out, err := g.Output(context.Background(), nodes["d"].Address())
	require.NoError(t, err)
	assert.Equal(t, iface.Outputs{"id": "p.d[*:*]"}, out)
}

func TestRun_WorkerLimit(t *testing.T) {
	g, _ := newGraph(t, []string{"n1", "n2", "n3", "n4", "n5", "n6"}, nil)
	sleeper := testutil.NewSleeper(20 * time.Millisecond)

	require.NoError(t, New(g, sleeper, Options{Workers: 2}).Run(context.Background()))

	assert.LessOrEqual(t, sleeper.MaxConcurrency(), 2)
	assert.GreaterOrEqual(t, sleeper.MaxConcurrency(), 1)
}

func TestRun_FastFail(t *testing.T) {
	// --- Arrange ---
	g, nodes := newGraph(t, []string{"a", "b", "c"}, map[string][]string{"a": {"b"}, "b": {"c"}})
	boom := errors.New("boom")
	sleeper := testutil.NewSleeper(time.Millisecond)
	sleeper.Fail["p.a[*:*]"] = boom

	// --- Act ---
	err := New(g, sleeper, Options{Workers: 2}).Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "execution failed for p.a[*:*]: boom", err.Error())
	assert.Equal(t, node.StatusFailed, status(t, g, nodes["a"]))
	assert.Equal(t, node.StatusSkipped, status(t, g, nodes["b"]))
	assert.Equal(t, node.StatusSkipped, status(t, g, nodes["c"]))
	assert.Nil(t, sleeper.Record("p.c[*:*]"))
}

func TestRun_ContinueOnError(t *testing.T) {
	// --- Arrange ---
	g, nodes := newGraph(t, []string{"x", "x2", "y", "z"}, map[string][]string{"x": {"x2"}, "y": {"z"}})
	sleeper := testutil.NewSleeper(5 * time.Millisecond)
	sleeper.Fail["p.x[*:*]"] = errors.New("bet crashed")

	// --- Act ---
	err := New(g, sleeper, Options{Workers: 1, ContinueOnError: true}).Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed for p.x[*:*]")
	assert.Equal(t, node.StatusSkipped, status(t, g, nodes["x2"]))
	assert.Equal(t, node.StatusCompleted, status(t, g, nodes["y"]))
	assert.Equal(t, node.StatusCompleted, status(t, g, nodes["z"]))
	nodeErr, _ := g.NodeError(context.Background(), nodes["x2"].Address())
	assert.ErrorContains(t, nodeErr, "upstream failure of 'p.x[*:*]'")
}

func TestRun_CancelledContext(t *testing.T) {
	g, nodes := newGraph(t, []string{"a", "b"}, map[string][]string{"a": {"b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	proc := ProcessFunc(func(ctx context.Context, n *node.Node) (iface.Outputs, error) {
		called = true
		return nil, nil
	})

	err := New(g, proc, Options{}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, node.StatusSkipped, status(t, g, nodes["a"]))
	assert.Equal(t, node.StatusSkipped, status(t, g, nodes["b"]))
}

func TestRun_EmptyGraph(t *testing.T) {
	g, _ := newGraph(t, nil, nil)

	assert.NoError(t, New(g, ProcessFunc(nil), Options{}).Run(context.Background()))
}
