package attendance

import (
	"context"
	"sync"
)

// MemoryRepository keeps entries in process memory. Used for dev and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	keys    map[Key]struct{}
}

// NewMemoryRepository creates a repository holding the given seed entries.
func NewMemoryRepository(seed []Entry) *MemoryRepository {
	r := &MemoryRepository{keys: make(map[Key]struct{}, len(seed))}
	r.entries = dedupe(r.keys, seed)
	return r
}

// List returns matching entries in insertion order.
func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Entry{}
	for _, e := range r.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Append stores entries with unseen keys.
func (r *MemoryRepository) Append(_ context.Context, entries []Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := dedupe(r.keys, entries)
	r.entries = append(r.entries, fresh...)
	return len(fresh), nil
}
