package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is a linear-scan VectorIndex guarded by a RWMutex. Fine for tests
// and small corpora; the pgvector-backed index covers production loads.
// Ties in similarity are broken by insertion order, so results are stable.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
	byChunk map[uuid.UUID]int // chunk id -> position in entries
}

func NewMemory() *Memory {
	return &Memory{
		byChunk: make(map[uuid.UUID]int),
	}
}

func (m *Memory) Upsert(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		e.Vector = vec

		if pos, ok := m.byChunk[e.ChunkId]; ok {
			// Replace in place: insertion order is keyed to first insert
			m.entries[pos] = e
			continue
		}
		m.byChunk[e.ChunkId] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *Memory) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.DocumentId == documentId {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept

	m.byChunk = make(map[uuid.UUID]int, len(m.entries))
	for i, e := range m.entries {
		m.byChunk[e.ChunkId] = i
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, vector []float32, k int, scope []uuid.UUID) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	var inScope map[uuid.UUID]struct{}
	if scope != nil {
		inScope = make(map[uuid.UUID]struct{}, len(scope))
		for _, id := range scope {
			inScope[id] = struct{}{}
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		hit   Hit
		order int
	}
	var results []scored
	for i, e := range m.entries {
		if inScope != nil {
			if _, ok := inScope[e.DocumentId]; !ok {
				continue
			}
		}
		results = append(results, scored{
			hit: Hit{
				ChunkId:    e.ChunkId,
				DocumentId: e.DocumentId,
				Score:      cosineSimilarity(vector, e.Vector),
			},
			order: i,
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].hit.Score != results[b].hit.Score {
			return results[a].hit.Score > results[b].hit.Score
		}
		return results[a].order < results[b].order
	})

	if len(results) > k {
		results = results[:k]
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = r.hit
	}
	return hits, nil
}

func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
