// Package postgres provides a PostgreSQL implementation of driven.VectorStore
// using the pgvector extension.
//
// Vectors are compared with the cosine distance operator (<=>) and indexed
// with HNSW (vector_cosine_ops). The table is created on first use; its
// embedding column is sized from the embedder's dimensions.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/vectorutil"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store is a pgvector-backed vector store. Each collection is its own table.
type Store struct {
	db         *sql.DB
	table      string
	dimensions int
	embedder   driven.Embedder
}

// NewStore connects to dsn and prepares the collection table.
// dimensions sizes the vector column and must match the embedder.
func NewStore(ctx context.Context, dsn, collection string, embedder driven.Embedder, dimensions int) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidInput)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidInput)
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}
	if !identPattern.MatchString(collection) {
		return nil, fmt.Errorf("%w: collection %q is not a valid table name", domain.ErrInvalidInput, collection)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrVectorStoreUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", domain.ErrVectorStoreUnavailable, err)
	}

	s := &Store{db: db, table: collection, dimensions: dimensions, embedder: embedder}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug("Connected to pgvector store (table %s, %d dimensions)", collection, dimensions)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table, s.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			s.table, s.table),
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Upsert embeds and stores documents, updating existing ones by ID.
func (s *Store) Upsert(ctx context.Context, docs []domain.IndexedDocument) error {
	for _, batch := range vectorutil.Batches(docs, domain.UpsertBatchSize) {
		vectors, err := vectorutil.Embed(ctx, s.embedder, vectorutil.Texts(batch))
		if err != nil {
			return fmt.Errorf("embedding documents: %w", err)
		}
		if err := s.writeBatch(ctx, batch, vectors); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, batch []domain.IndexedDocument, vectors [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document, embedding, metadata, updated_at)
		VALUES ($1, $2, $3::vector, $4::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`, s.table)

	for i, doc := range batch {
		if len(vectors[i]) != s.dimensions {
			return fmt.Errorf("%w: %s has %d dimensions, column has %d",
				domain.ErrDimensionMismatch, doc.ID, len(vectors[i]), s.dimensions)
		}
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if doc.Metadata == nil {
			metadata = []byte("{}")
		}

		if _, err := tx.ExecContext(ctx, query, doc.ID, doc.Text, FormatVector(vectors[i]), string(metadata)); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Query finds the k documents nearest to text.
func (s *Store) Query(ctx context.Context, text string, k int) ([]driven.VectorMatch, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 || count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, column has %d",
			domain.ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document, metadata, embedding <=> $1::vector AS distance
		FROM %s
		ORDER BY distance, id
		LIMIT $2
	`, s.table), FormatVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	matches := make([]driven.VectorMatch, 0, k)
	for rows.Next() {
		var (
			m             driven.VectorMatch
			metadataBytes []byte
		)
		if err := rows.Scan(&m.ID, &m.Document, &metadataBytes, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		m.Metadata = map[string]string{}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FormatVector converts a float32 slice to pgvector text format: "[0.1,0.2,0.3]".
func FormatVector(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVector converts pgvector text format back to a float32 slice.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
