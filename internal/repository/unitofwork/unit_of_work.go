package unitofwork

import (
	"context"

	"docchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	NotebookRepository() contract.NotebookRepository
	DocumentRepository() contract.DocumentRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	CitationRepository() contract.CitationRepository
}
