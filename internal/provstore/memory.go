package provstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
)

// Memory is an in-process Store. Records are lost when the process exits.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[string]Record)}
}

func (m *Memory) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[rec.Analysis] == nil {
		m.records[rec.Analysis] = make(map[string]Record)
	}
	rec.Outputs = maps.Clone(rec.Outputs)
	m.records[rec.Analysis][rec.NodeID] = rec
	return nil
}

func (m *Memory) Get(ctx context.Context, analysis, nodeID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[analysis][nodeID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Outputs = maps.Clone(rec.Outputs)
	return rec, nil
}

func (m *Memory) List(ctx context.Context, analysis string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := slices.Collect(maps.Values(m.records[analysis]))
	slices.SortFunc(recs, func(a, b Record) int { return cmp.Compare(a.NodeID, b.NodeID) })
	return recs, nil
}

func (m *Memory) Close() error { return nil }
