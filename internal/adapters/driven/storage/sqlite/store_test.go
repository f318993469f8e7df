package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// countingEmbedder records how often each embedding entry point is used.
type countingEmbedder struct {
	*local.EmbeddingService

	mu         sync.Mutex
	embeds     int
	batches    int
	batchSizes []int
}

func newCountingEmbedder(dimensions int) *countingEmbedder {
	return &countingEmbedder{
		EmbeddingService: local.NewEmbeddingService(local.Config{Dimensions: dimensions}),
	}
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.embeds++
	e.mu.Unlock()
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, *countingEmbedder, string) {
	t.Helper()

	dir := t.TempDir()
	embedder := newCountingEmbedder(0)
	store, err := NewStore(dir, "", embedder)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store, embedder, dir
}

func emailDoc(id, subject, body string) domain.IndexedDocument {
	return domain.IndexedDocument{
		ID:   domain.DocumentIDPrefix + id,
		Text: domain.EmbeddableText(subject, body),
		Metadata: map[string]string{
			domain.MetaSourceID: id,
			domain.MetaSubject:  subject,
			domain.MetaReply:    body,
		},
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore(t *testing.T) {
	store, _, dir := setupTestStore(t)

	assert.Equal(t, filepath.Join(dir, domain.VectorIndexFile), store.Path())
	assert.FileExists(t, store.Path())
	assert.Equal(t, domain.DefaultCollection, store.Collection())
}

func TestNewStore_RequiresEmbedder(t *testing.T) {
	store, err := NewStore(t.TempDir(), "", nil)

	assert.Nil(t, store)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "vectordb")

	store, err := NewStore(dir, "", newCountingEmbedder(0))
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, dir)
}

func TestStore_MigrationsRunOnce(t *testing.T) {
	store, embedder, dir := setupTestStore(t)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, "", embedder)
	require.NoError(t, err)
	defer reopened.Close()

	var applied int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestStore_CloseTwice(t *testing.T) {
	store, err := NewStore(t.TempDir(), "", newCountingEmbedder(0))
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

// ==================== Upsert Tests ====================

func TestStore_UpsertAndGet(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	doc := emailDoc("42", "Invoice", "Please find the invoice attached.")
	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{doc}))

	got, err := store.Get(ctx, "email_42")
	require.NoError(t, err)
	assert.Equal(t, doc.Text, got.Text)
	assert.Equal(t, doc.Metadata, got.Metadata)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _, _ := setupTestStore(t)

	_, err := store.Get(context.Background(), "email_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Upsert_ReplacesExistingID(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "Old", "first body")}))
	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "New", "second body")}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.Get(ctx, "email_1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Metadata[domain.MetaSubject])
	assert.Contains(t, got.Text, "second body")
}

func TestStore_Upsert_Empty(t *testing.T) {
	store, embedder, _ := setupTestStore(t)

	require.NoError(t, store.Upsert(context.Background(), nil))

	assert.Zero(t, embedder.batches)
	assert.Zero(t, embedder.embeds)
}

func TestStore_Upsert_SubBatches(t *testing.T) {
	store, embedder, _ := setupTestStore(t)
	ctx := context.Background()

	docs := make([]domain.IndexedDocument, 250)
	for i := range docs {
		docs[i] = emailDoc(fmt.Sprint(i), "Subject", fmt.Sprintf("body number %d", i))
	}
	require.NoError(t, store.Upsert(ctx, docs))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, count)
	assert.Equal(t, []int{100, 100, 50}, embedder.batchSizes)
}

func TestStore_Upsert_NilMetadata(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{{ID: "email_0", Text: "Subject: \n\nBody: hi"}}))

	got, err := store.Get(ctx, "email_0")
	require.NoError(t, err)
	assert.Empty(t, got.Metadata)
}

func TestStore_Upsert_CancelledContext(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "s", "b")})
	assert.Error(t, err)
}

// ==================== Query Tests ====================

func TestStore_Query_RanksNearestFirst(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{
		emailDoc("1", "Quarterly report", "The quarterly report numbers look strong this quarter."),
		emailDoc("2", "Lunch", "Want to grab tacos for lunch tomorrow?"),
		emailDoc("3", "Report review", "Can you review the quarterly report draft?"),
	}))

	matches, err := store.Query(ctx, domain.EmbeddableText("Lunch", "Want to grab tacos for lunch tomorrow?"), 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "email_2", matches[0].ID)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-6)
	assert.Equal(t, "Lunch", matches[0].Metadata[domain.MetaSubject])
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
}

func TestStore_Query_ClampsToCount(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{
		emailDoc("1", "a", "alpha body"),
		emailDoc("2", "b", "beta body"),
	}))

	matches, err := store.Query(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestStore_Query_EmptyStoreSkipsEmbedding(t *testing.T) {
	store, embedder, _ := setupTestStore(t)

	matches, err := store.Query(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, embedder.embeds)
}

func TestStore_Query_NonPositiveK(t *testing.T) {
	store, embedder, _ := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "a", "alpha")}))

	for _, k := range []int{0, -3} {
		matches, err := store.Query(ctx, "alpha", k)
		require.NoError(t, err)
		assert.Empty(t, matches)
	}
	assert.Zero(t, embedder.embeds)
}

func TestStore_Query_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir, "", newCountingEmbedder(64))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "a", "alpha")}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, "", newCountingEmbedder(128))
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Query(ctx, "alpha", 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// ==================== Persistence Tests ====================

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	embedder := newCountingEmbedder(0)

	store, err := NewStore(dir, "", embedder)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.IndexedDocument{
		emailDoc("1", "Hello", "hello there friend"),
		emailDoc("2", "Bye", "goodbye for now"),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, "", embedder)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := reopened.Query(ctx, domain.EmbeddableText("Hello", "hello there friend"), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "email_1", matches[0].ID)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	embedder := newCountingEmbedder(0)

	first, err := NewStore(dir, "first", embedder)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewStore(dir, "second", embedder)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Upsert(ctx, []domain.IndexedDocument{emailDoc("1", "a", "alpha")}))

	count, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = second.Get(ctx, "email_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorCodec(t *testing.T) {
	tests := []struct {
		name   string
		floats []float32
	}{
		{"empty", nil},
		{"single", []float32{1.5}},
		{"mixed signs", []float32{-0.25, 0, 0.125, 3.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeVector(tt.floats)
			assert.Len(t, data, len(tt.floats)*4)
			assert.Equal(t, tt.floats, decodeVector(data))
		})
	}
}

func TestUnmarshalMetadata(t *testing.T) {
	got, err := unmarshalMetadata("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = unmarshalMetadata(`{"subject":"Hi"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"subject": "Hi"}, got)

	_, err = unmarshalMetadata("not json")
	assert.Error(t, err)
}
