package entity

import (
	"time"

	"github.com/google/uuid"
)

// Citation ties an assistant message back to the chunk that grounded it.
// CitationIndex is 1-based and matches the [n] markers in the message text.
type Citation struct {
	Id            uuid.UUID
	MessageId     uuid.UUID
	DocumentId    uuid.UUID
	ChunkId       uuid.UUID
	DocumentTitle string
	ChunkText     string // Denormalized preview, capped at 200 runes
	PageLabel     string
	Score         float64
	CitationIndex int
	CreatedAt     time.Time
}
