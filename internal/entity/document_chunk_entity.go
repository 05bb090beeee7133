package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one retrievable excerpt of a document together with its
// embedding vector. Chunk and vector live in the same row, so a stored chunk
// always has exactly one embedding.
type DocumentChunk struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	SeqIndex       int // 0-based position within the document
	Text           string
	PageLabel      string
	StartOffset    int
	EndOffset      int
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
