// Package storage selects and constructs the configured vector store backend.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

// NewVectorStore opens the backend selected by settings.VectorStore.
// A postgres:// DSN selects pgvector, "memory" selects the in-process store,
// anything else the sqlite index under settings.VectorDBDir.
func NewVectorStore(ctx context.Context, settings *domain.Settings, embedder driven.EmbeddingService) (driven.VectorStore, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service", domain.ErrEmbeddingUnavailable)
	}

	collection := settings.VectorStore.Collection
	switch settings.VectorStore.Backend() {
	case domain.VectorBackendPostgres:
		store, err := postgres.NewStore(ctx, settings.VectorStore.DSN, collection, embedder, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("opening postgres vector store: %w", err)
		}
		return store, nil

	case domain.VectorBackendMemory:
		return memory.NewVectorStore(embedder), nil

	default:
		store, err := sqlite.NewStore(settings.VectorDBDir, collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("%w: opening sqlite vector store: %w", domain.ErrVectorStoreUnavailable, err)
		}
		return store, nil
	}
}
