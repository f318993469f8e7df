package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

func newMemoryStore() *memory.VectorStore {
	return memory.NewVectorStore(local.NewEmbeddingService(local.Config{}))
}

// emails builds n well-formed records with ids 1..n.
func emails(n int) []domain.EmailRecord {
	out := make([]domain.EmailRecord, n)
	for i := range out {
		out[i] = domain.EmailRecord{
			ID:       fmt.Sprintf("%d", i+1),
			Subject:  fmt.Sprintf("Subject %d", i+1),
			Body:     fmt.Sprintf("Body of email number %d", i+1),
			Received: fmt.Sprintf("Question %d", i+1),
		}
	}
	return out
}

// words returns a body of n whitespace-separated words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// fakeStore is a scripted driven.VectorStore.
type fakeStore struct {
	count    int
	countErr error
	matches  []driven.VectorMatch
	queryErr error
	upsert   error

	queried int
	lastK   int
}

var _ driven.VectorStore = (*fakeStore)(nil)

func (s *fakeStore) Upsert(context.Context, []domain.IndexedDocument) error { return s.upsert }

func (s *fakeStore) Query(_ context.Context, _ string, k int) ([]driven.VectorMatch, error) {
	s.queried++
	s.lastK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if k < len(s.matches) {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

func (s *fakeStore) Count(context.Context) (int, error) { return s.count, s.countErr }

func (s *fakeStore) Close() error { return nil }

// failingProfileStore fails every call.
type failingProfileStore struct{ err error }

func (s failingProfileStore) Save(context.Context, *domain.StyleProfile) error { return s.err }

func (s failingProfileStore) Load(context.Context) (*domain.StyleProfile, error) { return nil, s.err }

func (s failingProfileStore) Close() error { return nil }

// recordingMetrics captures recorder calls.
type recordingMetrics struct {
	mu           sync.Mutex
	ingests      int
	indexed      int
	skipped      int
	profiles     int
	retrievals   int
	failures     int
	similarities []float64
}

var _ driven.MetricsRecorder = (*recordingMetrics)(nil)

func (m *recordingMetrics) IngestCompleted(indexed, skipped int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingests++
	m.indexed += indexed
	m.skipped += skipped
}

func (m *recordingMetrics) ProfileBuilt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles++
}

func (m *recordingMetrics) RetrievalCompleted(similarities []float64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrievals++
	m.similarities = append(m.similarities, similarities...)
}

func (m *recordingMetrics) RetrievalFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}
