package contract

import (
	"context"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	// MarkInterrupted flags a partially streamed message. The content itself
	// is never rewritten, messages are append-only.
	MarkInterrupted(ctx context.Context, id uuid.UUID) error
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
