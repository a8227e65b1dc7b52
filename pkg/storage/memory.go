package storage

import (
	"context"
	"sync"

	"github.com/dshills/flowedit/pkg/flow"
)

// MemoryRepository implements FlowRepository using in-memory storage.
// Suitable for tests and throwaway sessions.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*flow.Record
}

// NewMemoryRepository creates a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*flow.Record),
	}
}

// Save stores a copy of rec.
func (r *MemoryRepository) Save(ctx context.Context, rec *flow.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec.Clone()
	return nil
}

// Load returns a copy of the record stored under id.
func (r *MemoryRepository) Load(ctx context.Context, id string) (*flow.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return rec.Clone(), nil
}

// Delete removes the record stored under id.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrFlowNotFound
	}
	delete(r.records, id)
	return nil
}

// List returns a summary of every stored record.
func (r *MemoryRepository) List(ctx context.Context) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, summarize(rec))
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op for the memory repository.
func (r *MemoryRepository) Close() error {
	return nil
}
