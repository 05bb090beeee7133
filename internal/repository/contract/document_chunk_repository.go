package contract

import (
	"context"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk wraps a DocumentChunk with its cosine similarity score
type ScoredChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByDocumentId hard-deletes so a reprocess never leaves stale vectors behind.
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore runs a cosine similarity search, optionally scoped
	// to a set of documents (nil scope searches the whole corpus), filtered by threshold.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, documentIds []uuid.UUID, threshold float64) ([]*ScoredChunk, error)
}
