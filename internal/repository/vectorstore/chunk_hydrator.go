package vectorstore

import (
	"context"

	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/retriever"

	"github.com/google/uuid"
)

// ChunkHydrator turns index hits back into full chunks with their document
// titles, reading through the unit-of-work repositories.
type ChunkHydrator struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ retriever.Hydrator = &ChunkHydrator{}

func NewChunkHydrator(uowFactory unitofwork.RepositoryFactory) *ChunkHydrator {
	return &ChunkHydrator{uowFactory: uowFactory}
}

func (h *ChunkHydrator) Hydrate(ctx context.Context, hits []index.Hit) ([]retriever.RetrievedChunk, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	chunkIds := make([]uuid.UUID, 0, len(hits))
	docIdSet := make(map[uuid.UUID]struct{}, len(hits))
	for _, hit := range hits {
		chunkIds = append(chunkIds, hit.ChunkId)
		docIdSet[hit.DocumentId] = struct{}{}
	}
	docIds := make([]uuid.UUID, 0, len(docIdSet))
	for id := range docIdSet {
		docIds = append(docIds, id)
	}

	uow := h.uowFactory.NewUnitOfWork(ctx)

	chunks, err := uow.DocumentChunkRepository().FindAll(ctx, specification.ByIDs{IDs: chunkIds})
	if err != nil {
		return nil, err
	}
	docs, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: docIds})
	if err != nil {
		return nil, err
	}

	chunkById := make(map[uuid.UUID]int, len(chunks))
	for i, c := range chunks {
		chunkById[c.Id] = i
	}
	titleByDoc := make(map[uuid.UUID]string, len(docs))
	for _, d := range docs {
		titleByDoc[d.Id] = d.Title
	}

	// Hits drive the order; chunks deleted since indexing are skipped
	out := make([]retriever.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		i, ok := chunkById[hit.ChunkId]
		if !ok {
			continue
		}
		c := chunks[i]
		out = append(out, retriever.RetrievedChunk{
			ChunkId:       c.Id,
			DocumentId:    c.DocumentId,
			DocumentTitle: titleByDoc[c.DocumentId],
			Text:          c.Text,
			PageLabel:     c.PageLabel,
			SeqIndex:      c.SeqIndex,
			Score:         hit.Score,
		})
	}
	return out, nil
}
