package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NotebookId     *uuid.UUID     `gorm:"type:uuid;index"`
	Title          string         `gorm:"type:varchar(255);not null"`
	SourceType     string         `gorm:"type:varchar(20);default:'text'"`
	ExtractedText  string         `gorm:"type:text"`
	WordCount      int            `gorm:"default:0"`
	Status         string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorMessage   string         `gorm:"type:text"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	EmbeddingModel string         `gorm:"type:varchar(100)"`
	EmbeddingDim   int            `gorm:"default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
