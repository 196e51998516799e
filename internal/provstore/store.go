// Package provstore records the provenance of every executed node instance.
//
// # Why Provenance Exists
//
// A derivation may be interrupted, re-run with other parameters, or re-run
// after the inputs changed on disk. The processor hashes what went into each
// node instance (interface, parameters, input file contents) and stores the
// hash next to the outputs it produced. On the next run an instance whose
// hash matches a stored record, and whose outputs are still present, is not
// executed again.
//
// Records are keyed by analysis name and node instance ID, so the latest run
// of an instance replaces the previous record.
package provstore

import (
	"context"
	"errors"
	"time"

	"github.com/vk/neurogrid/internal/iface"
)

// ErrNotFound is returned by Get when no record exists.
var ErrNotFound = errors.New("provenance record not found")

// Record describes one execution of a node instance.
type Record struct {
	RunID      string         `json:"run_id"`
	Analysis   string         `json:"analysis"`
	NodeID     string         `json:"node_id"`
	Interface  string         `json:"interface"`
	Hash       string         `json:"hash"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Outputs    iface.Outputs  `json:"outputs"`
	WorkDir    string         `json:"work_dir"`
	Started    time.Time      `json:"started"`
	Finished   time.Time      `json:"finished"`
}

// Store persists provenance records. Implementations must be safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, rec Record) error
	// Get returns the record of a node instance, or ErrNotFound.
	Get(ctx context.Context, analysis, nodeID string) (Record, error)
	// List returns every record of an analysis sorted by node ID.
	List(ctx context.Context, analysis string) ([]Record, error)
	Close() error
}
