package driven

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// VectorStore persists indexed documents with their embeddings and answers
// cosine similarity queries. Every call persists immediately.
type VectorStore interface {
	// Upsert inserts or replaces documents keyed by ID. Any batch size is
	// accepted; implementations embed and write in sub-batches.
	Upsert(ctx context.Context, docs []domain.IndexedDocument) error

	// Query returns at most k documents nearest to text, by ascending cosine
	// distance. k is clamped to the stored count. An empty store or k <= 0
	// returns no matches without embedding text.
	Query(ctx context.Context, text string, k int) ([]VectorMatch, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorMatch is one ranked query result.
type VectorMatch struct {
	ID       string
	Document string
	Metadata map[string]string

	// Distance is the cosine distance (1 - cosine similarity).
	Distance float64
}
