package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure StyleService implements the interface.
var _ driving.StyleService = (*StyleService)(nil)

// StyleService builds the style profile and is its only writer.
type StyleService struct {
	store   driven.StyleProfileStore
	metrics driven.MetricsRecorder
}

// NewStyleService creates a new style service.
// The metrics parameter is optional (can be nil).
func NewStyleService(store driven.StyleProfileStore, metrics driven.MetricsRecorder) *StyleService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &StyleService{
		store:   store,
		metrics: metrics,
	}
}

// BuildStyleProfile recomputes the profile from the whole batch and replaces
// the persisted one. A batch without bodies yields nil and leaves the stored
// profile untouched.
func (s *StyleService) BuildStyleProfile(ctx context.Context, emails []domain.EmailRecord) (*domain.StyleProfile, error) {
	logger.Section("Style Profile")

	bodies := make([]string, 0, len(emails))
	for _, email := range emails {
		if email.Body != "" {
			bodies = append(bodies, email.Body)
		}
	}
	if len(bodies) == 0 {
		logger.Debug("No bodies in batch of %d, keeping existing profile", len(emails))
		return nil, nil
	}

	profile := &domain.StyleProfile{
		Tone:          detectTone(bodies),
		AvgLength:     lengthBucket(bodies),
		SignOff:       dominantSignOff(bodies),
		CommonPhrases: commonPhrases(bodies),
		EmailCount:    len(emails),
	}

	if err := s.store.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving style profile: %w", err)
	}
	s.metrics.ProfileBuilt()

	logger.Info("Style profile built: tone=%s length=%q sign_off=%q phrases=%d emails=%d",
		profile.Tone, profile.AvgLength, profile.SignOff, len(profile.CommonPhrases), profile.EmailCount)
	return profile, nil
}

// StyleProfile returns the last persisted profile, or nil if none exists
// or it cannot be read.
func (s *StyleService) StyleProfile(ctx context.Context) *domain.StyleProfile {
	profile, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("reading style profile: %v", err)
		}
		return nil
	}
	return profile
}
