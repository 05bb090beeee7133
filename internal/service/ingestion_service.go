package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/events"
	pktNats "docchat-be/pkg/nats"
	"docchat-be/pkg/rag/chunker"
	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/ragerr"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

var errEmbeddingCountMismatch = errors.New("embedding backend returned wrong vector count")

type IIngestionService interface {
	Consume(ctx context.Context) error
}

// ingestionService is the background worker that turns a pending document
// into chunks with embeddings. One message equals one document run.
type ingestionService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	vectorIndex       index.VectorIndex
	eventPublisher    *pktNats.Publisher
	logger            logger.ILogger
	chunkTargetWords  int
	chunkOverlapWords int
}

func NewIngestionService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	vectorIndex index.VectorIndex,
	eventPublisher *pktNats.Publisher,
	logger logger.ILogger,
	chunkTargetWords int,
	chunkOverlapWords int,
) IIngestionService {
	return &ingestionService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		vectorIndex:       vectorIndex,
		eventPublisher:    eventPublisher,
		logger:            logger,
		chunkTargetWords:  chunkTargetWords,
		chunkOverlapWords: chunkOverlapWords,
	}
}

func (cs *ingestionService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *ingestionService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ingestion", "failed to unmarshal ingestion message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.logger.Error("ingestion", "failed to load document", map[string]interface{}{
			"document_id": payload.DocumentId,
			"error":       err.Error(),
		})
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		// Deleted between queueing and processing
		msg.Ack()
		return
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusProcessing, ""); err != nil {
		cs.logger.Error("ingestion", "failed to mark document processing", map[string]interface{}{
			"document_id": document.Id,
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	chunks := chunker.Split(document.ExtractedText, cs.chunkTargetWords, cs.chunkOverlapWords)
	cs.logger.Info("ingestion", "document split into chunks", map[string]interface{}{
		"document_id": document.Id,
		"chunks":      len(chunks),
	})

	// Nothing to index means there is no content to answer from. The document
	// must surface as failed, never silently done.
	if len(chunks) == 0 {
		cs.failDocument(ctx, uow, document, "chunk", &ragerr.IngestionError{
			DocumentId: document.Id,
			Stage:      "chunk",
			Err:        errors.New("no usable text to chunk"),
		})
		msg.Ack()
		return
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := cs.embeddingProvider.Embed(ctx, texts)
	if err != nil {
		// Terminal for this run. The document stays visible as failed and can
		// be requeued through the reprocess endpoint.
		cs.failDocument(ctx, uow, document, "embed", err)
		msg.Ack()
		return
	}
	if len(vectors) != len(chunks) {
		cs.failDocument(ctx, uow, document, "embed", errEmbeddingCountMismatch)
		msg.Ack()
		return
	}

	now := time.Now()
	chunkEntities := make([]*entity.DocumentChunk, len(chunks))
	for i, ch := range chunks {
		chunkEntities[i] = &entity.DocumentChunk{
			Id:             uuid.New(),
			DocumentId:     document.Id,
			SeqIndex:       ch.SeqIndex,
			Text:           ch.Text,
			PageLabel:      ch.PageLabel,
			StartOffset:    ch.StartOffset,
			EndOffset:      ch.EndOffset,
			EmbeddingValue: vectors[i],
			CreatedAt:      now,
		}
	}

	entries := make([]index.Entry, len(chunkEntities))
	for i, ch := range chunkEntities {
		entries[i] = index.Entry{
			ChunkId:    ch.Id,
			DocumentId: ch.DocumentId,
			Vector:     ch.EmbeddingValue,
		}
	}

	if err := cs.finalize(ctx, uow, document, chunkEntities, entries); err != nil {
		msg.Nack()
		return
	}

	cs.logger.Info("ingestion", "document ingested", map[string]interface{}{
		"document_id": document.Id,
		"chunks":      len(chunkEntities),
		"model":       cs.embeddingProvider.ModelID(),
	})
	msg.Ack()
}

// finalize replaces the document's chunks and flips it to done inside one
// transaction, then mirrors the vectors into the index.
func (cs *ingestionService) finalize(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	document *entity.Document,
	chunks []*entity.DocumentChunk,
	entries []index.Entry,
) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		cs.logger.Error("ingestion", "failed to purge old chunks", map[string]interface{}{
			"document_id": document.Id,
			"error":       err.Error(),
		})
		return err
	}

	if len(chunks) > 0 {
		if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunks); err != nil {
			cs.logger.Error("ingestion", "failed to store chunks", map[string]interface{}{
				"document_id": document.Id,
				"error":       err.Error(),
			})
			return err
		}
	}

	now := time.Now()
	document.Status = entity.DocumentStatusDone
	document.ErrorMessage = ""
	document.EmbeddingModel = cs.embeddingProvider.ModelID()
	document.EmbeddingDim = cs.embeddingProvider.Dimension()
	document.UpdatedAt = &now
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if len(entries) > 0 {
		if err := cs.vectorIndex.Upsert(ctx, entries); err != nil {
			return err
		}
	}

	cs.publishEvent(ctx, events.NewDocumentIngested(document.Id, len(chunks), cs.embeddingProvider.ModelID()))
	return nil
}

func (cs *ingestionService) failDocument(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, stage string, cause error) {
	cs.logger.Error("ingestion", "document ingestion failed", map[string]interface{}{
		"document_id": document.Id,
		"stage":       stage,
		"error":       cause.Error(),
	})

	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusFailed, cause.Error()); err != nil {
		cs.logger.Error("ingestion", "failed to mark document failed", map[string]interface{}{
			"document_id": document.Id,
			"error":       err.Error(),
		})
	}

	cs.publishEvent(ctx, events.NewDocumentFailed(document.Id, stage, cause.Error()))
}

func (cs *ingestionService) publishEvent(ctx context.Context, event events.Event) {
	if cs.eventPublisher == nil {
		return
	}
	// Events are auxiliary, a publish failure never fails the run
	if err := cs.eventPublisher.Publish(ctx, event); err != nil {
		cs.logger.Warn("ingestion", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
