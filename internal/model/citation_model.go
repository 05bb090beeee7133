package model

import (
	"time"

	"github.com/google/uuid"
)

type Citation struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MessageId     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_citation_message_index,priority:1"`
	DocumentId    uuid.UUID `gorm:"type:uuid;not null;index"`
	ChunkId       uuid.UUID `gorm:"type:uuid;not null"`
	DocumentTitle string    `gorm:"type:varchar(255)"`
	ChunkText     string    `gorm:"type:text"`
	PageLabel     string    `gorm:"type:varchar(50)"`
	Score         float64   `gorm:"default:0"`
	CitationIndex int       `gorm:"not null;uniqueIndex:idx_citation_message_index,priority:2"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	// Relationships
	Message  *Message       `gorm:"foreignKey:MessageId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Document *Document      `gorm:"foreignKey:DocumentId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Chunk    *DocumentChunk `gorm:"foreignKey:ChunkId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Citation) TableName() string {
	return "citations"
}
