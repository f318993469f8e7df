package driving

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// Core is the retrieval-and-profiling engine handed to request handlers.
type Core interface {
	// Ingest indexes the batch, rebuilds the style profile from it and
	// returns the number of records indexed.
	Ingest(ctx context.Context, emails []domain.EmailRecord) (int, error)

	// IngestBatch is Ingest with a full report of the run.
	IngestBatch(ctx context.Context, emails []domain.EmailRecord) (*domain.IngestReport, error)

	// Retrieve returns up to n similar past emails, most similar first.
	Retrieve(ctx context.Context, query string, n int) []domain.RetrievedContext

	// StyleProfile returns the last persisted profile, or nil if none exists.
	StyleProfile(ctx context.Context) *domain.StyleProfile

	// Count returns the number of indexed emails.
	Count(ctx context.Context) (int, error)

	// Status reports health information for diagnostics.
	Status(ctx context.Context) domain.Status

	// Close releases the stores and the embedder.
	Close() error
}
