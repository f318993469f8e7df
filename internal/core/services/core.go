package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure Core implements the interface.
var _ driving.Core = (*Core)(nil)

// statusPingTimeout bounds the embedding health check in Status.
const statusPingTimeout = 5 * time.Second

// CoreDeps holds the driven adapters owned by a Core.
type CoreDeps struct {
	// VectorStore is required.
	VectorStore driven.VectorStore

	// ProfileStore is required.
	ProfileStore driven.StyleProfileStore

	// Embedding is optional. When set it is closed with the Core and its
	// model name is reported by Status.
	Embedding driven.EmbeddingService

	// Metrics is optional.
	Metrics driven.MetricsRecorder
}

// Core composes ingestion, retrieval and style profiling over one vector
// store and one profile store.
type Core struct {
	ingestion *IngestionService
	retrieval *RetrievalService
	style     *StyleService

	vectorStore  driven.VectorStore
	profileStore driven.StyleProfileStore
	embedding    driven.EmbeddingService
	metrics      driven.MetricsRecorder
	backend      domain.VectorBackend
}

// NewCore creates a Core from resolved settings and its adapters.
func NewCore(settings domain.Settings, deps CoreDeps) (*Core, error) {
	if deps.VectorStore == nil {
		return nil, fmt.Errorf("creating core: %w", domain.ErrVectorStoreUnavailable)
	}
	if deps.ProfileStore == nil {
		return nil, fmt.Errorf("creating core: %w: missing style profile store", domain.ErrInvalidInput)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Core{
		ingestion: NewIngestionService(deps.VectorStore, settings.MaxEmailHistory),
		retrieval: NewRetrievalService(deps.VectorStore, RetrievalConfig{
			MaxResults:        settings.MaxRAGResults,
			DistanceThreshold: settings.Retrieval.DistanceThreshold,
		}, metrics),
		style:        NewStyleService(deps.ProfileStore, metrics),
		vectorStore:  deps.VectorStore,
		profileStore: deps.ProfileStore,
		embedding:    deps.Embedding,
		metrics:      metrics,
		backend:      settings.VectorStore.Backend(),
	}, nil
}

// Ingest indexes the batch, rebuilds the style profile from the same batch
// and returns the number of records indexed.
func (c *Core) Ingest(ctx context.Context, emails []domain.EmailRecord) (int, error) {
	report, err := c.IngestBatch(ctx, emails)
	if err != nil {
		return 0, err
	}
	return report.Indexed, nil
}

// IngestBatch is Ingest with a report of the run.
func (c *Core) IngestBatch(ctx context.Context, emails []domain.EmailRecord) (*domain.IngestReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger.Section("Ingest " + runID)

	indexed, err := c.ingestion.Ingest(ctx, emails)
	if err != nil {
		return nil, err
	}

	profile, err := c.style.BuildStyleProfile(ctx, emails)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{
		RunID:    runID,
		Received: len(emails),
		Indexed:  indexed,
		Skipped:  len(emails) - indexed,
		Profile:  profile,
	}
	c.metrics.IngestCompleted(report.Indexed, report.Skipped, time.Since(start))
	return report, nil
}

// Retrieve returns up to n similar past emails, most similar first.
func (c *Core) Retrieve(ctx context.Context, query string, n int) []domain.RetrievedContext {
	return c.retrieval.Retrieve(ctx, query, n)
}

// StyleProfile returns the last persisted profile, or nil if none exists.
func (c *Core) StyleProfile(ctx context.Context) *domain.StyleProfile {
	return c.style.StyleProfile(ctx)
}

// Count returns the number of indexed emails.
func (c *Core) Count(ctx context.Context) (int, error) {
	return c.retrieval.Count(ctx)
}

// Status reports health information for diagnostics.
func (c *Core) Status(ctx context.Context) domain.Status {
	status := domain.Status{
		Backend:        c.backend.String(),
		ProfilePresent: c.style.StyleProfile(ctx) != nil,
	}
	if c.embedding != nil {
		status.EmbeddingModel = c.embedding.ModelName()
		pingCtx, cancel := context.WithTimeout(ctx, statusPingTimeout)
		if err := c.embedding.Ping(pingCtx); err != nil {
			status.EmbeddingError = err.Error()
		}
		cancel()
	}

	count, err := c.retrieval.Count(ctx)
	if err != nil {
		status.CountError = err.Error()
	}
	status.Count = count
	return status
}

// Close releases the stores and the embedder.
func (c *Core) Close() error {
	var errs []error
	if err := c.vectorStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing vector store: %w", err))
	}
	if err := c.profileStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing profile store: %w", err))
	}
	if c.embedding != nil {
		if err := c.embedding.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing embedding service: %w", err))
		}
	}
	return errors.Join(errs...)
}
