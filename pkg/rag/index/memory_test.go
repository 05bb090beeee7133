package index

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(docId uuid.UUID, vec []float32) Entry {
	return Entry{
		ChunkId:    uuid.New(),
		DocumentId: docId,
		Vector:     vec,
	}
}

func TestMemoryQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	doc := uuid.New()

	far := entry(doc, []float32{0, 1, 0})
	near := entry(doc, []float32{1, 0.1, 0})
	exact := entry(doc, []float32{1, 0, 0})

	require.NoError(t, idx.Upsert(ctx, []Entry{far, near, exact}))

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, exact.ChunkId, hits[0].ChunkId)
	assert.Equal(t, near.ChunkId, hits[1].ChunkId)
	assert.Equal(t, far.ChunkId, hits[2].ChunkId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	doc := uuid.New()

	e := entry(doc, []float32{1, 0, 0})
	require.NoError(t, idx.Upsert(ctx, []Entry{e}))
	require.NoError(t, idx.Upsert(ctx, []Entry{e}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Re-upsert with a new vector replaces, not duplicates
	e.Vector = []float32{0, 1, 0}
	require.NoError(t, idx.Upsert(ctx, []Entry{e}))

	hits, err := idx.Query(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	docA := uuid.New()
	docB := uuid.New()

	require.NoError(t, idx.Upsert(ctx, []Entry{
		entry(docA, []float32{1, 0}),
		entry(docA, []float32{0, 1}),
		entry(docB, []float32{1, 1}),
	}))

	require.NoError(t, idx.DeleteByDocument(ctx, docA))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	hits, err := idx.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, docB, h.DocumentId)
	}

	// Deleting an absent document is a no-op
	require.NoError(t, idx.DeleteByDocument(ctx, docA))
}

func TestMemoryScope(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	docA := uuid.New()
	docB := uuid.New()

	inA := entry(docA, []float32{1, 0})
	inB := entry(docB, []float32{1, 0})
	require.NoError(t, idx.Upsert(ctx, []Entry{inA, inB}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 10, []uuid.UUID{docA})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, inA.ChunkId, hits[0].ChunkId)

	// Nil scope searches everything
	hits, err = idx.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// Empty (non-nil) scope matches nothing
	hits, err = idx.Query(ctx, []float32{1, 0}, 10, []uuid.UUID{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryTieBreakInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()
	doc := uuid.New()

	first := entry(doc, []float32{1, 0})
	second := entry(doc, []float32{1, 0})
	third := entry(doc, []float32{1, 0})
	require.NoError(t, idx.Upsert(ctx, []Entry{first, second, third}))

	for run := 0; run < 5; run++ {
		hits, err := idx.Query(ctx, []float32{1, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, first.ChunkId, hits[0].ChunkId)
		assert.Equal(t, second.ChunkId, hits[1].ChunkId)
	}
}

func TestMemoryQueryFewerThanK(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []Entry{entry(uuid.New(), []float32{1, 0})}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
