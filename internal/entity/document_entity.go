package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusDone       DocumentStatus = "done"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	Id             uuid.UUID
	NotebookId     *uuid.UUID
	Title          string
	SourceType     string // pdf | docx | text | markdown | audio | video | url
	ExtractedText  string
	WordCount      int
	Status         DocumentStatus
	ErrorMessage   string
	Metadata       map[string]interface{}
	EmbeddingModel string // Model that produced the stored vectors
	EmbeddingDim   int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
