package node

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/neurogrid/internal/analysis"
	"github.com/vk/neurogrid/internal/dataset"
	"github.com/vk/neurogrid/internal/nodeid"
)

// Node is a single vertex in the execution graph: one pipeline node
// instantiated at one key of the dataset tree.
type Node struct {
	// id is the unique, structured identifier of the instance,
	// `<pipeline>.<node>[<key>]`.
	id nodeid.Address

	// Pipeline is the constructed pipeline the node belongs to.
	Pipeline *analysis.Pipeline
	// Spec is the pipeline node this vertex instantiates.
	Spec *analysis.Node
	// Key is the dataset key the instance iterates, projected onto the
	// node's axes.
	Key dataset.Key
	// Inputs describes where every connected input field gets its value.
	Inputs map[string]Binding
	// Sinks are the derived specs the instance stores in the repository.
	Sinks []analysis.Output

	// Error stores any error that occurred during the node's execution.
	Error error

	// depCount is an atomic counter for unmet dependencies, used by the executor.
	depCount atomic.Int32
	// state is the node's current execution state, managed atomically.
	state atomic.Int32
	// skipOnce ensures a node is marked as skipped and processed exactly once.
	skipOnce sync.Once
}

// Binding is the resolved source of one input field of an instance.
type Binding struct {
	// Spec is set when the field reads a data spec.
	Spec string
	// Field is the upstream output field when the field reads another node.
	Field string
	// Upstream lists the node instances supplying the value, in key order.
	// It is empty for primary inputs.
	Upstream []nodeid.Address
	// Keys are the keys the value is read at, in key order. Joined fields
	// carry every key along the join axis.
	Keys []dataset.Key
	// Items holds primary input values resolved while building the plan.
	Items []analysis.Item
	// Joined marks a field that receives a list.
	Joined bool
}

// IsData reports whether the binding reads a data spec.
func (b Binding) IsData() bool { return b.Spec != "" }

// New creates a pending node instance.
func New(p *analysis.Pipeline, n *analysis.Node, key dataset.Key) *Node {
	return &Node{
		id:       nodeid.Instance(p.Name, n.Name, key.String()),
		Pipeline: p,
		Spec:     n,
		Key:      key,
		Inputs:   make(map[string]Binding),
	}
}

// ID returns the canonical string representation of the node's address.
func (n *Node) ID() string {
	return n.id.String()
}

// Address returns the structured address of the node.
func (n *Node) Address() nodeid.Address {
	return n.id
}

// Upstream lists every distinct node instance this node reads from, sorted.
func (n *Node) Upstream() []nodeid.Address {
	seen := make(map[string]nodeid.Address)
	for _, b := range n.Inputs {
		for _, up := range b.Upstream {
			seen[up.String()] = up
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]nodeid.Address, len(ids))
	for i, id := range ids {
		out[i] = seen[id]
	}
	return out
}

// Status represents the execution state of a node in the graph.
type Status int32

const (
	// StatusPending indicates the node is waiting for its dependencies to complete.
	StatusPending Status = iota
	// StatusRunning indicates the node is currently being executed by a worker.
	StatusRunning
	// StatusCompleted indicates the node has completed execution successfully.
	StatusCompleted
	// StatusFailed indicates the node's execution returned an error.
	StatusFailed
	// StatusSkipped indicates the node never ran because a dependency failed
	// or the run was cancelled.
	StatusSkipped
)

var statusNames = [...]string{"pending", "running", "completed", "failed", "skipped"}

// String implements fmt.Stringer.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// SetDepCount stores the number of unmet dependencies.
func (n *Node) SetDepCount(count int32) {
	n.depCount.Store(count)
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s Status) {
	n.state.Store(int32(s))
}

// GetState atomically retrieves the node's execution state.
func (n *Node) GetState() Status {
	return Status(n.state.Load())
}

// Skip marks a node as skipped and decrements its WaitGroup counter. It uses a
// sync.Once to guarantee this happens only once, returning true if it was the
// first time this node was skipped.
func (n *Node) Skip(err error, wg *sync.WaitGroup) bool {
	var wasSkipped bool
	n.skipOnce.Do(func() {
		n.SetState(StatusSkipped)
		n.Error = err
		wg.Done()
		wasSkipped = true
	})
	return wasSkipped
}
