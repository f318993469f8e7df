package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.StyleProfileStore = (*ProfileStore)(nil)

// ProfileStore is an in-memory implementation of driven.StyleProfileStore for testing.
type ProfileStore struct {
	mu      sync.RWMutex
	profile *domain.StyleProfile
	saves   int
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{}
}

// Save replaces the stored profile with a copy of profile.
func (s *ProfileStore) Save(_ context.Context, profile *domain.StyleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = copyProfile(profile)
	s.saves++
	return nil
}

// Load returns a copy of the stored profile.
func (s *ProfileStore) Load(_ context.Context) (*domain.StyleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, domain.ErrNotFound
	}
	return copyProfile(s.profile), nil
}

// Saves returns how many times Save has been called.
func (s *ProfileStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op for the memory store.
func (s *ProfileStore) Close() error {
	return nil
}

func copyProfile(p *domain.StyleProfile) *domain.StyleProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.CommonPhrases = slices.Clone(p.CommonPhrases)
	return &c
}
