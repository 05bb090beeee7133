package mapper

import (
	"time"

	"docchat-be/internal/entity"
	"docchat-be/internal/model"

	"gorm.io/gorm"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Interrupted:    msg.Interrupted,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      msg.DeletedAt.Valid,
	}
}

func (m *MessageMapper) ToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Interrupted:    msg.Interrupted,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *MessageMapper) ToEntities(messages []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(messages))
	for i, msg := range messages {
		entities[i] = m.ToEntity(msg)
	}
	return entities
}
