package driven

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// StyleProfileStore persists the single latest style profile.
type StyleProfileStore interface {
	// Save replaces the stored profile. Readers observe either the previous
	// or the new profile, never a partial one.
	Save(ctx context.Context, profile *domain.StyleProfile) error

	// Load returns the stored profile, or domain.ErrNotFound if none was saved.
	Load(ctx context.Context) (*domain.StyleProfile, error)

	// Close releases resources.
	Close() error
}
