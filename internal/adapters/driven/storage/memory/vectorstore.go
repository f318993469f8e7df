package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/vectorutil"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type vectorRecord struct {
	doc       domain.IndexedDocument
	embedding []float32
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Contents are lost when the process exits.
type VectorStore struct {
	mu       sync.RWMutex
	embedder driven.Embedder
	records  map[string]vectorRecord
	closed   bool
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore(embedder driven.Embedder) *VectorStore {
	return &VectorStore{
		embedder: embedder,
		records:  make(map[string]vectorRecord),
	}
}

// Upsert embeds and stores documents, replacing any with the same ID.
func (s *VectorStore) Upsert(ctx context.Context, docs []domain.IndexedDocument) error {
	for _, batch := range vectorutil.Batches(docs, domain.UpsertBatchSize) {
		vectors, err := vectorutil.Embed(ctx, s.embedder, vectorutil.Texts(batch))
		if err != nil {
			return fmt.Errorf("embedding documents: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return domain.ErrStoreClosed
		}
		for i, doc := range batch {
			doc.Metadata = maps.Clone(doc.Metadata)
			s.records[doc.ID] = vectorRecord{doc: doc, embedding: vectors[i]}
		}
		s.mu.Unlock()
	}
	return nil
}

// Query returns the k documents nearest to text.
func (s *VectorStore) Query(ctx context.Context, text string, k int) ([]driven.VectorMatch, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 || count == 0 {
		return nil, nil
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]driven.VectorMatch, 0, len(s.records))
	for id, rec := range s.records {
		d, err := vectorutil.CosineDistance(query, rec.embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", id, err)
		}
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Document: rec.doc.Text,
			Metadata: maps.Clone(rec.doc.Metadata),
			Distance: d,
		})
	}
	return vectorutil.Rank(matches, k), nil
}

// Count returns the number of stored documents.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	return len(s.records), nil
}

// Get returns a stored document by ID.
func (s *VectorStore) Get(_ context.Context, id string) (*domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := rec.doc
	doc.Metadata = maps.Clone(doc.Metadata)
	return &doc, nil
}

// Close marks the store closed. Later calls fail with domain.ErrStoreClosed.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
