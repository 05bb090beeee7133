package service

import (
	"context"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/rag/index"

	"github.com/google/uuid"
)

type INotebookService interface {
	GetAll(ctx context.Context) ([]*dto.ShowNotebookResponse, error)
	Create(ctx context.Context, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowNotebookResponse, error)
	Update(ctx context.Context, req *dto.UpdateNotebookRequest) (*dto.UpdateNotebookResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type notebookService struct {
	uowFactory  unitofwork.RepositoryFactory
	vectorIndex index.VectorIndex
}

func NewNotebookService(
	uowFactory unitofwork.RepositoryFactory,
	vectorIndex index.VectorIndex,
) INotebookService {
	return &notebookService{
		uowFactory:  uowFactory,
		vectorIndex: vectorIndex,
	}
}

func (c *notebookService) GetAll(ctx context.Context) ([]*dto.ShowNotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	notebooks, err := uow.NotebookRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowNotebookResponse, 0, len(notebooks))
	for _, notebook := range notebooks {
		count, err := uow.DocumentRepository().Count(ctx, specification.ByNotebookID{NotebookID: notebook.Id})
		if err != nil {
			return nil, err
		}
		result = append(result, &dto.ShowNotebookResponse{
			Id:            notebook.Id,
			Name:          notebook.Name,
			Description:   notebook.Description,
			Icon:          notebook.Icon,
			Color:         notebook.Color,
			DocumentCount: count,
			CreatedAt:     notebook.CreatedAt,
			UpdatedAt:     notebook.UpdatedAt,
		})
	}
	return result, nil
}

func (c *notebookService) Create(ctx context.Context, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	notebook := entity.Notebook{
		Id:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		CreatedAt:   time.Now(),
	}

	if err := uow.NotebookRepository().Create(ctx, &notebook); err != nil {
		return nil, err
	}

	return &dto.CreateNotebookResponse{
		Id: notebook.Id,
	}, nil
}

func (c *notebookService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowNotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if notebook == nil {
		return nil, nil
	}

	count, err := uow.DocumentRepository().Count(ctx, specification.ByNotebookID{NotebookID: notebook.Id})
	if err != nil {
		return nil, err
	}

	return &dto.ShowNotebookResponse{
		Id:            notebook.Id,
		Name:          notebook.Name,
		Description:   notebook.Description,
		Icon:          notebook.Icon,
		Color:         notebook.Color,
		DocumentCount: count,
		CreatedAt:     notebook.CreatedAt,
		UpdatedAt:     notebook.UpdatedAt,
	}, nil
}

func (c *notebookService) Update(ctx context.Context, req *dto.UpdateNotebookRequest) (*dto.UpdateNotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if notebook == nil {
		return nil, nil
	}

	now := time.Now()
	notebook.Name = req.Name
	notebook.Description = req.Description
	notebook.Icon = req.Icon
	notebook.Color = req.Color
	notebook.UpdatedAt = &now

	if err := uow.NotebookRepository().Update(ctx, notebook); err != nil {
		return nil, err
	}

	return &dto.UpdateNotebookResponse{
		Id: notebook.Id,
	}, nil
}

// Delete removes the notebook and everything under it: documents, their
// chunks and any conversations scoped to the notebook.
func (c *notebookService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if notebook == nil {
		return nil
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByNotebookID{NotebookID: id})
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.NotebookRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentChunkRepository().DeleteByNotebookId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().DeleteByNotebookId(ctx, id); err != nil {
		return err
	}

	conversations, err := uow.ConversationRepository().FindAll(ctx, specification.ByNotebookID{NotebookID: id})
	if err != nil {
		return err
	}
	for _, conversation := range conversations {
		if err := uow.MessageRepository().DeleteByConversationId(ctx, conversation.Id); err != nil {
			return err
		}
		if err := uow.ConversationRepository().Delete(ctx, conversation.Id); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	// Keep the vector side consistent after the rows are gone. The pgvector
	// index shares the chunk table so this is a no-op there.
	for _, doc := range documents {
		if err := c.vectorIndex.DeleteByDocument(ctx, doc.Id); err != nil {
			return err
		}
	}
	return nil
}
