package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id         uuid.UUID
	NotebookId *uuid.UUID
	Title      string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
