package node

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/nodeid"
)

func TestNew_Address(t *testing.T) {
	p := &analysis.Pipeline{Name: "smooth_pipeline"}
	spec := &analysis.Node{Name: "smooth"}

	n := New(p, spec, dataset.SessionKey("01", "test"))

	assert.Equal(t, "smooth_pipeline.smooth[01:test]", n.ID())
	addr := n.Address()
	assert.Equal(t, "smooth", addr.Last().Name)
	assert.Equal(t, StatusPending, n.GetState())
}

func TestNode_Upstream(t *testing.T) {
	n := New(&analysis.Pipeline{Name: "p"}, &analysis.Node{Name: "c"}, dataset.Key{})
	a := nodeid.MustParse("p.a[s1:*]")
	b := nodeid.MustParse("p.b[*:*]")
	n.Inputs["x"] = Binding{Field: "out", Upstream: []nodeid.Address{b, a}}
	n.Inputs["y"] = Binding{Field: "out", Upstream: []nodeid.Address{a}}
	n.Inputs["z"] = Binding{Spec: "scan"}

	got := n.Upstream()

	assert.Equal(t, []nodeid.Address{a, b}, got)
	assert.True(t, n.Inputs["z"].IsData())
}

func TestNode_SkipOnce(t *testing.T) {
	n := New(&analysis.Pipeline{Name: "p"}, &analysis.Node{Name: "n"}, dataset.Key{})
	var wg sync.WaitGroup
	wg.Add(1)
	cause := errors.New("upstream failed")

	first := n.Skip(cause, &wg)
	second := n.Skip(errors.New("again"), &wg)
	wg.Wait()

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, StatusSkipped, n.GetState())
	assert.Equal(t, cause, n.Error)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "unknown", Status(42).String())
	assert.True(t, StatusSkipped.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
