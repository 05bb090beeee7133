package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is append-only: rows are created, never edited.
type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	Interrupted    bool // Client disconnected mid-stream, content is partial
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
