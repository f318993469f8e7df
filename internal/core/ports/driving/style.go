package driving

import (
	"context"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// StyleService builds and serves the user's style profile.
type StyleService interface {
	// BuildStyleProfile recomputes and persists the profile from the batch.
	// It returns nil without persisting when no record has a body.
	BuildStyleProfile(ctx context.Context, emails []domain.EmailRecord) (*domain.StyleProfile, error)

	// StyleProfile returns the last persisted profile, or nil if none exists.
	StyleProfile(ctx context.Context) *domain.StyleProfile
}
