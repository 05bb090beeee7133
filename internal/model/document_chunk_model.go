package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SeqIndex       int             `gorm:"not null;default:0;index"`
	Text           string          `gorm:"type:text"`
	PageLabel      string          `gorm:"type:varchar(50)"`
	StartOffset    int             `gorm:"default:0"`
	EndOffset      int             `gorm:"default:0"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 both emit 768 dims
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
