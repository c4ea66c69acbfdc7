package rag

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-process Index.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	records   []Record
	positions map[string]int
}

// NewMemoryIndex creates an empty index. A zero dimension is fixed by the
// first upsert.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{dimension: dimension, positions: make(map[string]int)}
}

// Upsert validates the whole batch before touching the index, so readers
// never observe a partially applied batch.
func (m *MemoryIndex) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := checkBatch(records, m.dimension)
	if err != nil {
		return err
	}
	m.dimension = dim

	for _, r := range records {
		r.Vector = slices.Clone(r.Vector)
		// a replaced record keeps its original position for tie-breaking
		if pos, ok := m.positions[r.ID]; ok {
			m.records[pos] = r
			continue
		}
		m.positions[r.ID] = len(m.records)
		m.records = append(m.records, r)
	}
	return nil
}

// Replace implements Index.
func (m *MemoryIndex) Replace(_ context.Context, records []Record) error {
	records = dedupeRecords(records)

	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := checkBatch(records, m.dimension)
	if err != nil {
		return err
	}

	fresh := make([]Record, len(records))
	positions := make(map[string]int, len(records))
	for i, r := range records {
		r.Vector = slices.Clone(r.Vector)
		fresh[i] = r
		positions[r.ID] = i
	}
	m.dimension = dim
	m.records = fresh
	m.positions = positions
	return nil
}

func checkBatch(records []Record, dim int) (int, error) {
	for _, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("record id is empty")
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim || dim == 0 {
			return 0, fmt.Errorf("vector dimension mismatch for %q: got %d, want %d", r.ID, len(r.Vector), dim)
		}
	}
	return dim, nil
}

// Query implements Index.
func (m *MemoryIndex) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 || topK <= 0 {
		return []Match{}, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), m.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, len(m.records))
	for i, r := range m.records {
		matches[i] = Match{ID: r.ID, Chunk: r.Chunk, Distance: CosineDistance(vector, r.Vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count implements Index.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

var _ Index = (*MemoryIndex)(nil)
