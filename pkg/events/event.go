package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_INGESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation behind the typed constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeDocumentIngested    = "DOCUMENT_INGESTED"
	TypeDocumentFailed      = "DOCUMENT_FAILED"
	TypeConversationCreated = "CONVERSATION_CREATED"
)

// NewDocumentIngested fires when a document finished chunking and embedding.
func NewDocumentIngested(documentId uuid.UUID, chunkCount int, embeddingModel string) Event {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"document_id":     documentId.String(),
			"chunk_count":     chunkCount,
			"embedding_model": embeddingModel,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentFailed fires when ingestion gave up on a document.
func NewDocumentFailed(documentId uuid.UUID, stage string, reason string) Event {
	return BaseEvent{
		Type: TypeDocumentFailed,
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"stage":       stage,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewConversationCreated fires when the first message opens a conversation.
func NewConversationCreated(conversationId uuid.UUID, notebookId *uuid.UUID) Event {
	data := map[string]interface{}{
		"conversation_id": conversationId.String(),
	}
	if notebookId != nil {
		data["notebook_id"] = notebookId.String()
	}
	return BaseEvent{
		Type:       TypeConversationCreated,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
