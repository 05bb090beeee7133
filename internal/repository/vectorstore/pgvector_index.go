package vectorstore

import (
	"context"

	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/rag/index"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PgVectorIndex adapts the document_chunks table to the VectorIndex port.
// Chunk rows carry their embedding column, so Upsert is an embedding update
// on existing rows and Query is a pgvector cosine search.
type PgVectorIndex struct {
	db         *gorm.DB
	uowFactory unitofwork.RepositoryFactory
	threshold  float64
}

var _ index.VectorIndex = &PgVectorIndex{}

func NewPgVectorIndex(db *gorm.DB, uowFactory unitofwork.RepositoryFactory, threshold float64) *PgVectorIndex {
	return &PgVectorIndex{
		db:         db,
		uowFactory: uowFactory,
		threshold:  threshold,
	}
}

func (p *PgVectorIndex) Upsert(ctx context.Context, entries []index.Entry) error {
	for _, e := range entries {
		err := p.db.WithContext(ctx).
			Table("document_chunks").
			Where("id = ?", e.ChunkId).
			Update("embedding_value", pgvector.NewVector(e.Vector)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *PgVectorIndex) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	uow := p.uowFactory.NewUnitOfWork(ctx)
	return uow.DocumentChunkRepository().DeleteByDocumentId(ctx, documentId)
}

func (p *PgVectorIndex) Query(ctx context.Context, vector []float32, k int, scope []uuid.UUID) ([]index.Hit, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilarWithScore(ctx, vector, k, scope, p.threshold)
	if err != nil {
		return nil, err
	}

	hits := make([]index.Hit, len(scored))
	for i, s := range scored {
		hits[i] = index.Hit{
			ChunkId:    s.Chunk.Id,
			DocumentId: s.Chunk.DocumentId,
			Score:      s.Similarity,
		}
	}
	return hits, nil
}

func (p *PgVectorIndex) Count(ctx context.Context) (int64, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)
	return uow.DocumentChunkRepository().Count(ctx)
}
