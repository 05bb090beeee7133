package embedding

import (
	"context"
	"math"
)

// Task types passed to backends that distinguish document vs query vectors.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// MaxInputRunes is the deterministic truncation point for oversized inputs.
// Inputs beyond this are cut at a rune boundary rather than rejected, so the
// same text always produces the same vector.
const MaxInputRunes = 8000

// EmbeddingProvider generates embedding vectors for document chunks and queries.
// Implementations must be deterministic: identical input, identical vector.
type EmbeddingProvider interface {
	// Embed generates one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a vector for a search query. Backends that
	// distinguish query embeddings from document embeddings apply the
	// query task type or prefix here.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension is the fixed vector width this provider emits.
	Dimension() int

	// ModelID identifies the backing model. Persisted with the documents it
	// embedded so a model swap is detectable.
	ModelID() string
}

// Truncate cuts text at MaxInputRunes on a rune boundary.
func Truncate(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) <= MaxInputRunes {
		return text, false
	}
	return string(runes[:MaxInputRunes]), true
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// Cosine distance in pgvector expects normalized vectors.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
