package ragerr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// ErrEmptyScope signals that the caller selected zero documents for retrieval.
// It is a short-circuit condition, not a failure: the chat flow answers with
// a guidance message and never reaches the completion backend.
var ErrEmptyScope = errors.New("retrieval scope is empty")

// IngestionError marks a document processing failure. The document row is
// moved to status "failed" with this message attached.
type IngestionError struct {
	DocumentId uuid.UUID
	Stage      string // "chunk", "embed", "persist"
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed for document %s at stage %s: %v", e.DocumentId, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// EmbeddingError wraps embedding backend failures. Retryable by the caller.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (model %s): %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// BackendFailureKind classifies completion backend failures so the fallback
// assistant message can name the cause.
type BackendFailureKind string

const (
	BackendTimeout     BackendFailureKind = "timeout"
	BackendUnreachable BackendFailureKind = "unreachable"
	BackendMalformed   BackendFailureKind = "malformed"
)

// CompletionBackendError wraps LLM backend failures. The synthesizer converts
// it into a fallback assistant message instead of failing the conversation.
type CompletionBackendError struct {
	Kind BackendFailureKind
	Err  error
}

func (e *CompletionBackendError) Error() string {
	return fmt.Sprintf("completion backend failure (%s): %v", e.Kind, e.Err)
}

func (e *CompletionBackendError) Unwrap() error {
	return e.Err
}

// ClassifyBackend maps a raw transport error onto a CompletionBackendError.
func ClassifyBackend(err error) *CompletionBackendError {
	kind := BackendUnreachable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = BackendTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = BackendTimeout
	}
	return &CompletionBackendError{Kind: kind, Err: err}
}
