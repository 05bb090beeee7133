package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role           string         `gorm:"type:varchar(20);not null"`
	Content        string         `gorm:"type:text"`
	Interrupted    bool           `gorm:"default:false"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}
