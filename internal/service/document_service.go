package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/rag/index"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	Reprocess(ctx context.Context, id uuid.UUID) (*dto.ReprocessDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	GetAll(ctx context.Context, notebookId *uuid.UUID) (*dto.ListDocumentsResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	vectorIndex      index.VectorIndex
	logger           logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	vectorIndex index.VectorIndex,
	logger logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		vectorIndex:      vectorIndex,
		logger:           logger,
	}
}

// Ingest stores the document with status "pending" and queues it for the
// ingestion worker. The text is already extracted by the caller.
func (c *documentService) Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document := entity.Document{
		Id:            uuid.New(),
		NotebookId:    req.NotebookId,
		Title:         req.Title,
		SourceType:    req.SourceType,
		ExtractedText: req.Text,
		WordCount:     len(strings.Fields(req.Text)),
		Status:        entity.DocumentStatusPending,
		Metadata:      req.Metadata,
		CreatedAt:     time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	if err := c.queueIngestion(ctx, document.Id); err != nil {
		return nil, err
	}

	return &dto.IngestDocumentResponse{
		Id:     document.Id,
		Status: string(document.Status),
	}, nil
}

// Reprocess purges the document's chunks and queues a fresh ingestion run.
// Used after a failure or when the chunking configuration changed.
func (c *documentService) Reprocess(ctx context.Context, id uuid.UUID) (*dto.ReprocessDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return nil, err
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusPending, ""); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := c.vectorIndex.DeleteByDocument(ctx, id); err != nil {
		return nil, err
	}

	if err := c.queueIngestion(ctx, id); err != nil {
		return nil, err
	}

	return &dto.ReprocessDocumentResponse{
		Id:     id,
		Status: string(entity.DocumentStatusPending),
	}, nil
}

func (c *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	chunkCount, err := uow.DocumentChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: id})
	if err != nil {
		return nil, err
	}

	res := c.toShowResponse(document)
	res.ChunkCount = chunkCount
	return res, nil
}

func (c *documentService) GetAll(ctx context.Context, notebookId *uuid.UUID) (*dto.ListDocumentsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{specification.OrderBy{Field: "created_at", Desc: true}}
	if notebookId != nil {
		specs = append(specs, specification.ByNotebookID{NotebookID: *notebookId})
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := dto.ListDocumentsResponse{Documents: make([]dto.ShowDocumentResponse, 0, len(documents))}
	for _, document := range documents {
		res.Documents = append(res.Documents, *c.toShowResponse(document))
	}
	return &res, nil
}

func (c *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	return c.vectorIndex.DeleteByDocument(ctx, id)
}

func (c *documentService) queueIngestion(ctx context.Context, documentId uuid.UUID) error {
	payload, err := json.Marshal(dto.PublishIngestDocumentMessage{DocumentId: documentId})
	if err != nil {
		return err
	}
	if err := c.publisherService.Publish(ctx, payload); err != nil {
		return err
	}

	c.logger.Info("document", "document queued for ingestion", map[string]interface{}{
		"document_id": documentId,
	})
	return nil
}

func (c *documentService) toShowResponse(document *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:             document.Id,
		NotebookId:     document.NotebookId,
		Title:          document.Title,
		SourceType:     document.SourceType,
		WordCount:      document.WordCount,
		Status:         string(document.Status),
		ErrorMessage:   document.ErrorMessage,
		EmbeddingModel: document.EmbeddingModel,
		CreatedAt:      document.CreatedAt,
		UpdatedAt:      document.UpdatedAt,
	}
}
