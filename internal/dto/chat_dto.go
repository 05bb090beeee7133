package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ConversationId *uuid.UUID  `json:"conversation_id"`
	NotebookId     *uuid.UUID  `json:"notebook_id"`
	Question       string      `json:"question" validate:"required"`
	DocumentIds    []uuid.UUID `json:"document_ids"` // nil = whole corpus, empty = nothing selected
}

type CitationResponse struct {
	Index         int       `json:"index"`
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkId       uuid.UUID `json:"chunk_id"`
	PageLabel     string    `json:"page_label,omitempty"`
	Preview       string    `json:"preview"`
	Score         float64   `json:"score"`
}

type SendMessageResponse struct {
	ConversationId uuid.UUID          `json:"conversation_id"`
	MessageId      uuid.UUID          `json:"message_id"`
	Answer         string             `json:"answer"`
	Citations      []CitationResponse `json:"citations"`
	Fallback       bool               `json:"fallback,omitempty"`
}

type MessageResponse struct {
	Id          uuid.UUID          `json:"id"`
	Role        string             `json:"role"`
	Content     string             `json:"content"`
	Interrupted bool               `json:"interrupted,omitempty"`
	Citations   []CitationResponse `json:"citations,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type ConversationHistoryResponse struct {
	ConversationId uuid.UUID         `json:"conversation_id"`
	Title          string            `json:"title"`
	Messages       []MessageResponse `json:"messages"`
}

// StreamEvent is one SSE frame. Type is "citations", "delta", "done" or "error".
type StreamEvent struct {
	Type           string             `json:"type"`
	ConversationId *uuid.UUID         `json:"conversation_id,omitempty"`
	MessageId      *uuid.UUID         `json:"message_id,omitempty"`
	Delta          string             `json:"delta,omitempty"`
	Citations      []CitationResponse `json:"citations,omitempty"`
	Fallback       bool               `json:"fallback,omitempty"`
	Error          string             `json:"error,omitempty"`
}

type ChatStatsResponse struct {
	Conversations  int64  `json:"conversations"`
	Messages       int64  `json:"messages"`
	Documents      int64  `json:"documents"`
	Chunks         int64  `json:"chunks"` // One vector per chunk
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
}
