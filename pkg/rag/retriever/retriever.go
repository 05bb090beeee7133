package retriever

import (
	"context"
	"strings"

	"docchat-be/pkg/embedding"
	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/ragerr"

	"github.com/google/uuid"
)

// RetrievedChunk is a scored excerpt hydrated with everything the prompt
// composer and citation builder need.
type RetrievedChunk struct {
	ChunkId       uuid.UUID
	DocumentId    uuid.UUID
	DocumentTitle string
	Text          string
	PageLabel     string
	SeqIndex      int
	Score         float64
}

// Hydrator resolves index hits into full chunks. Order and scores of the
// input hits must be preserved; hits whose chunk no longer exists are dropped.
type Hydrator interface {
	Hydrate(ctx context.Context, hits []index.Hit) ([]RetrievedChunk, error)
}

type Retriever struct {
	embedder  embedding.EmbeddingProvider
	idx       index.VectorIndex
	hydrator  Hydrator
	threshold float64
}

func New(embedder embedding.EmbeddingProvider, idx index.VectorIndex, hydrator Hydrator, threshold float64) *Retriever {
	return &Retriever{
		embedder:  embedder,
		idx:       idx,
		hydrator:  hydrator,
		threshold: threshold,
	}
}

// Retrieve embeds the query and returns the topK most similar chunks within
// scope. A non-nil empty scope means the caller selected zero documents:
// that returns ErrEmptyScope without touching the embedding backend.
// Near-duplicate chunks are collapsed, first (highest-scored) occurrence wins.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope []uuid.UUID, topK int) ([]RetrievedChunk, error) {
	if scope != nil && len(scope) == 0 {
		return nil, ragerr.ErrEmptyScope
	}
	if topK <= 0 {
		topK = 5
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.idx.Query(ctx, vec, topK, scope)
	if err != nil {
		return nil, err
	}

	// Weak hits are dropped silently
	filtered := hits[:0]
	for _, h := range hits {
		if h.Score >= r.threshold {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	chunks, err := r.hydrator.Hydrate(ctx, filtered)
	if err != nil {
		return nil, err
	}

	return dedupe(chunks), nil
}

// dedupe collapses near-identical chunks (overlapping windows of the same
// passage often retrieve together) by word-set Jaccard similarity.
func dedupe(chunks []RetrievedChunk) []RetrievedChunk {
	const jaccardCutoff = 0.7

	var kept []RetrievedChunk
	var keptSets []map[string]struct{}

	for _, c := range chunks {
		set := wordSet(c.Text)
		duplicate := false
		for _, prev := range keptSets {
			if jaccard(set, prev) >= jaccardCutoff {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		keptSets = append(keptSets, set)
	}
	return kept
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	var intersection int
	for w := range smaller {
		if _, ok := larger[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
