package retriever

import (
	"context"
	"errors"
	"testing"

	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/ragerr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls  int
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }
func (f *fakeEmbedder) ModelID() string {
	return "fake/embedder"
}

type fakeHydrator struct {
	byChunk map[uuid.UUID]RetrievedChunk
}

func (f *fakeHydrator) Hydrate(ctx context.Context, hits []index.Hit) ([]RetrievedChunk, error) {
	var out []RetrievedChunk
	for _, h := range hits {
		c, ok := f.byChunk[h.ChunkId]
		if !ok {
			continue
		}
		c.Score = h.Score
		out = append(out, c)
	}
	return out, nil
}

func seededIndex(t *testing.T, entries []index.Entry) *index.Memory {
	t.Helper()
	idx := index.NewMemory()
	require.NoError(t, idx.Upsert(context.Background(), entries))
	return idx
}

func TestRetrieveEmptyScopeShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	r := New(embedder, index.NewMemory(), &fakeHydrator{}, 0)

	chunks, err := r.Retrieve(context.Background(), "anything", []uuid.UUID{}, 5)

	require.ErrorIs(t, err, ragerr.ErrEmptyScope)
	assert.Nil(t, chunks)
	assert.Equal(t, 0, embedder.calls, "embedding backend must not be called for an empty scope")
}

func TestRetrieveNilScopeSearchesCorpus(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	chunkA := index.Entry{ChunkId: uuid.New(), DocumentId: docA, Vector: []float32{1, 0}}
	chunkB := index.Entry{ChunkId: uuid.New(), DocumentId: docB, Vector: []float32{0, 1}}

	idx := seededIndex(t, []index.Entry{chunkA, chunkB})
	hydrator := &fakeHydrator{byChunk: map[uuid.UUID]RetrievedChunk{
		chunkA.ChunkId: {ChunkId: chunkA.ChunkId, DocumentId: docA, Text: "alpha text"},
		chunkB.ChunkId: {ChunkId: chunkB.ChunkId, DocumentId: docB, Text: "beta text"},
	}}
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, hydrator, 0.5)

	chunks, err := r.Retrieve(context.Background(), "alpha", nil, 5)

	require.NoError(t, err)
	require.Len(t, chunks, 1, "orthogonal chunk falls below the threshold")
	assert.Equal(t, chunkA.ChunkId, chunks[0].ChunkId)
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-6)
}

func TestRetrieveScopeRestrictsDocuments(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	chunkA := index.Entry{ChunkId: uuid.New(), DocumentId: docA, Vector: []float32{1, 0}}
	chunkB := index.Entry{ChunkId: uuid.New(), DocumentId: docB, Vector: []float32{1, 0}}

	idx := seededIndex(t, []index.Entry{chunkA, chunkB})
	hydrator := &fakeHydrator{byChunk: map[uuid.UUID]RetrievedChunk{
		chunkA.ChunkId: {ChunkId: chunkA.ChunkId, DocumentId: docA, Text: "from document a"},
		chunkB.ChunkId: {ChunkId: chunkB.ChunkId, DocumentId: docB, Text: "from document b"},
	}}
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, hydrator, 0)

	chunks, err := r.Retrieve(context.Background(), "query", []uuid.UUID{docB}, 5)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, docB, chunks[0].DocumentId)
}

func TestRetrieveEmbedderFailurePropagates(t *testing.T) {
	wantErr := &ragerr.EmbeddingError{Model: "fake/embedder", Err: errors.New("backend down")}
	embedder := &fakeEmbedder{vector: []float32{1, 0}, err: wantErr}
	r := New(embedder, index.NewMemory(), &fakeHydrator{}, 0)

	_, err := r.Retrieve(context.Background(), "query", nil, 5)

	var embErr *ragerr.EmbeddingError
	require.ErrorAs(t, err, &embErr)
}

func TestRetrieveDedupesNearIdenticalChunks(t *testing.T) {
	doc := uuid.New()
	first := index.Entry{ChunkId: uuid.New(), DocumentId: doc, Vector: []float32{1, 0}}
	twin := index.Entry{ChunkId: uuid.New(), DocumentId: doc, Vector: []float32{1, 0.05}}
	other := index.Entry{ChunkId: uuid.New(), DocumentId: doc, Vector: []float32{0.9, 0.1}}

	idx := seededIndex(t, []index.Entry{first, twin, other})
	hydrator := &fakeHydrator{byChunk: map[uuid.UUID]RetrievedChunk{
		first.ChunkId: {ChunkId: first.ChunkId, DocumentId: doc, Text: "the quick brown fox jumps over the lazy dog"},
		twin.ChunkId:  {ChunkId: twin.ChunkId, DocumentId: doc, Text: "quick brown fox jumps over the lazy dog again"},
		other.ChunkId: {ChunkId: other.ChunkId, DocumentId: doc, Text: "an entirely different passage about shipping routes"},
	}}
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, hydrator, 0)

	chunks, err := r.Retrieve(context.Background(), "query", nil, 5)

	require.NoError(t, err)
	require.Len(t, chunks, 2, "near-identical twin collapses into the higher-scored chunk")
	assert.Equal(t, first.ChunkId, chunks[0].ChunkId)
	assert.Equal(t, other.ChunkId, chunks[1].ChunkId)
}

func TestRetrieveNoHitsAboveThreshold(t *testing.T) {
	doc := uuid.New()
	idx := seededIndex(t, []index.Entry{
		{ChunkId: uuid.New(), DocumentId: doc, Vector: []float32{0, 1}},
	})
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, idx, &fakeHydrator{}, 0.5)

	chunks, err := r.Retrieve(context.Background(), "query", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, chunks)
}
