package driving

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// RetrievalService finds past emails similar to an incoming one.
type RetrievalService interface {
	// Retrieve returns up to n similar past emails, most similar first.
	// Backend faults degrade to an empty result.
	Retrieve(ctx context.Context, query string, n int) []domain.RetrievedContext

	// Count returns the number of indexed emails.
	Count(ctx context.Context) (int, error)
}
