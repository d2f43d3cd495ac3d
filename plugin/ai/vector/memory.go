package vector

import (
	"context"
	"sync"
)

// MemoryIndex is an in-process Index for dev mode and tests. Search is a full scan.
type MemoryIndex struct {
	dimensions int

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	userID string
	vector []float32
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make(map[string]memoryEntry),
	}
}

func (m *MemoryIndex) EnsureCollection(_ context.Context) error {
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, id, userID string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return indexError(ctx, "failed to upsert vector", err)
	}
	if err := checkDimensions(vector, m.dimensions); err != nil {
		return err
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{userID: userID, vector: stored}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, userID string, vector []float32, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, indexError(ctx, "failed to search vectors", err)
	}
	if err := checkDimensions(vector, m.dimensions); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []string{}, nil
	}

	m.mu.RLock()
	matches := []Match{}
	for id, entry := range m.entries {
		if entry.userID != userID {
			continue
		}
		matches = append(matches, Match{ID: id, Score: float32(CosineSimilarity(vector, entry.vector))})
	}
	m.mu.RUnlock()

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matchIDs(matches), nil
}

func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return indexError(ctx, "failed to delete vector", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Has reports whether a vector is stored for id.
func (m *MemoryIndex) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok
}

func (m *MemoryIndex) Close() error {
	return nil
}

var _ Index = (*MemoryIndex)(nil)
