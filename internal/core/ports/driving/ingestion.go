package driving

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// IngestionService indexes past emails for retrieval.
type IngestionService interface {
	// Ingest indexes the batch and returns the number of records stored.
	// Malformed records are skipped; only backend faults return an error.
	Ingest(ctx context.Context, emails []domain.EmailRecord) (int, error)
}
