package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByConversationID scopes messages to one conversation
type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// ByMessageID scopes citations to one message
type ByMessageID struct {
	MessageID uuid.UUID
}

func (s ByMessageID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("message_id = ?", s.MessageID)
}

// ByRole filters messages by role ("user" or "assistant")
type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}
