package index

import (
	"context"

	"github.com/google/uuid"
)

// Entry is one chunk vector to be stored.
type Entry struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Vector     []float32
}

// Hit is one search result, ordered by descending similarity.
type Hit struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Score      float64
}

// VectorIndex stores chunk embeddings and answers nearest-neighbor queries by
// cosine similarity. Implementations must be deterministic: the same stored
// vectors and the same query always return the same hits in the same order.
type VectorIndex interface {
	// Upsert stores entries, replacing any existing vector with the same
	// chunk id. Safe to retry.
	Upsert(ctx context.Context, entries []Entry) error

	// DeleteByDocument removes every vector belonging to the document.
	DeleteByDocument(ctx context.Context, documentId uuid.UUID) error

	// Query returns up to k hits sorted by similarity descending. A nil
	// scope searches the whole corpus; a non-nil scope restricts the search
	// to the listed documents. Fewer than k stored vectors yield fewer hits.
	Query(ctx context.Context, vector []float32, k int, scope []uuid.UUID) ([]Hit, error)

	// Count reports how many vectors are stored.
	Count(ctx context.Context) (int64, error)
}
