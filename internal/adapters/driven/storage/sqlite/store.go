package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/vectorutil"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/logger"
)

var _ driven.VectorStore = (*Store)(nil)

// pragmas puts the index in WAL mode and waits up to 5s on a locked database
// instead of failing.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Store is a SQLite-backed vector store holding one collection.
type Store struct {
	db         *sql.DB
	path       string
	collection string
	embedder   driven.Embedder

	closeOnce sync.Once
	closeErr  error
}

// NewStore opens (or creates) the vector index in dir.
// If dir is empty, defaults to ./data/vectordb.
func NewStore(dir, collection string, embedder driven.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidInput)
	}
	if dir == "" {
		dir = domain.DefaultVectorDBDir
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating vector db directory: %w", err)
	}

	dbPath := filepath.Join(dir, domain.VectorIndexFile)

	db, err := sql.Open("sqlite", dbPath+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		collection: collection,
		embedder:   embedder,
	}

	pending, err := loadMigrations(migrations.FS)
	if err == nil {
		err = applyMigrations(context.Background(), db, pending)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}

	logger.Debug("Opened sqlite vector store %s (collection %s)", dbPath, collection)
	return s, nil
}

// Close closes the database connection. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Collection returns the collection this store reads and writes.
func (s *Store) Collection() string {
	return s.collection
}

// Upsert embeds and stores documents, replacing any with the same ID.
// Each sub-batch of domain.UpsertBatchSize documents is committed in one transaction.
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
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, id, document, metadata, embedding, dimensions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			document = excluded.document,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range batch {
		metadataJSON, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, doc.ID, doc.Text, metadataJSON,
			encodeVector(vectors[i]), len(vectors[i])); err != nil {
			return fmt.Errorf("saving %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Query returns the k documents nearest to text.
func (s *Store) Query(ctx context.Context, text string, k int) ([]driven.VectorMatch, error) {
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, metadata, embedding
		FROM vectors WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	matches := make([]driven.VectorMatch, 0, count)
	for rows.Next() {
		var (
			m            driven.VectorMatch
			metadataJSON string
			blob         []byte
		)
		if err := rows.Scan(&m.ID, &m.Document, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		m.Distance, err = vectorutil.CosineDistance(query, decodeVector(blob))
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", m.ID, err)
		}
		if m.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vectorutil.Rank(matches, k), nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE collection = ?", s.collection)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return count, nil
}

// Get retrieves a stored document by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.IndexedDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document, metadata FROM vectors WHERE collection = ? AND id = ?
	`, s.collection, id)

	var (
		doc          domain.IndexedDocument
		metadataJSON string
	)
	if err := row.Scan(&doc.ID, &doc.Text, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning vector: %w", err)
	}

	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	doc.Metadata = metadata
	return &doc, nil
}

func marshalMetadata(metadata map[string]string) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMetadata(data string) (map[string]string, error) {
	metadata := map[string]string{}
	if data == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(data), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Trailing bytes that do not
// make up a whole float32 are dropped.
func decodeVector(blob []byte) []float32 {
	if len(blob) < 4 {
		return nil
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v
}
