package contract

import (
	"context"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CitationRepository interface {
	CreateBulk(ctx context.Context, citations []*entity.Citation) error
	DeleteByMessageId(ctx context.Context, messageId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Citation, error)
	FindAllByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.Citation, error)
}
