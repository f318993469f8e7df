package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalConfig tunes retrieval. Zero values use the domain defaults.
type RetrievalConfig struct {
	// MaxResults caps the number of contexts returned per query.
	MaxResults int

	// DistanceThreshold excludes matches at or beyond this cosine distance.
	DistanceThreshold float64
}

// RetrievalService finds past emails similar to an incoming one.
// It never fails: backend errors degrade to an empty result.
type RetrievalService struct {
	store     driven.VectorStore
	metrics   driven.MetricsRecorder
	maxResult int
	threshold float64
}

// NewRetrievalService creates a new retrieval service.
// The metrics parameter is optional (can be nil).
func NewRetrievalService(store driven.VectorStore, cfg RetrievalConfig, metrics driven.MetricsRecorder) *RetrievalService {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = domain.DefaultMaxRAGResults
	}
	if cfg.DistanceThreshold <= 0 {
		cfg.DistanceThreshold = domain.DefaultDistanceThreshold
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RetrievalService{
		store:     store,
		metrics:   metrics,
		maxResult: cfg.MaxResults,
		threshold: cfg.DistanceThreshold,
	}
}

// Retrieve returns up to n similar past emails in store rank order.
// A non-positive n uses the configured maximum.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, n int) []domain.RetrievedContext {
	start := time.Now()
	results := []domain.RetrievedContext{}

	logger.Section("Retrieval")
	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no context")
		return results
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		logger.Warn("retrieval degraded to empty: counting documents: %v", err)
		s.metrics.RetrievalFailed()
		return results
	}
	if count == 0 {
		logger.Debug("Vector store is empty, skipping query")
		s.metrics.RetrievalCompleted(nil, time.Since(start))
		return results
	}

	if n <= 0 || n > s.maxResult {
		n = s.maxResult
	}
	if n > count {
		n = count
	}
	logger.Debug("Querying %d of %d documents", n, count)

	matches, err := s.store.Query(ctx, query, n)
	if err != nil {
		logger.Warn("retrieval degraded to empty: querying vector store: %v", err)
		s.metrics.RetrievalFailed()
		return results
	}

	similarities := make([]float64, 0, len(matches))
	for _, m := range matches {
		if m.Distance >= s.threshold {
			logger.Debug("Dropping %s at distance %.3f", m.ID, m.Distance)
			continue
		}
		similarity := roundTo(1-m.Distance, 3)
		similarities = append(similarities, similarity)
		results = append(results, domain.RetrievedContext{
			Received:   m.Metadata[domain.MetaReceived],
			Reply:      m.Metadata[domain.MetaReply],
			Subject:    m.Metadata[domain.MetaSubject],
			Similarity: similarity,
		})
	}

	logger.Debug("Returning %d of %d matches", len(results), len(matches))
	s.metrics.RetrievalCompleted(similarities, time.Since(start))
	return results
}

// Count returns the number of indexed emails.
func (s *RetrievalService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
