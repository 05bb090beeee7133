package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestDocumentRequest struct {
	Title      string                 `json:"title" validate:"required,max=255"`
	SourceType string                 `json:"source_type" validate:"required,oneof=pdf docx text markdown audio video url"`
	Text       string                 `json:"text" validate:"required"`
	NotebookId *uuid.UUID             `json:"notebook_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type IngestDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type ReprocessDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type ShowDocumentResponse struct {
	Id             uuid.UUID  `json:"id"`
	NotebookId     *uuid.UUID `json:"notebook_id"`
	Title          string     `json:"title"`
	SourceType     string     `json:"source_type"`
	WordCount      int        `json:"word_count"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ChunkCount     int64      `json:"chunk_count"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Documents []ShowDocumentResponse `json:"documents"`
}

// PublishIngestDocumentMessage is the payload queued for the ingestion worker.
type PublishIngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
