// Package sqlite provides the default, file-backed implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// Documents live in a single vectors table keyed by (collection, id). Embeddings are
// stored as little-endian float32 BLOBs next to the document text and a JSON metadata
// object. The schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Queries
//
// Query performs an exact brute-force cosine scan over the collection. This is fast
// enough for a personal mail history of a few thousand messages and needs no index
// maintenance.
//
// # Data Location
//
// The database is stored at <vector_db_dir>/index.db (default ./data/vectordb/index.db).
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode with a busy timeout.
package sqlite
