// Package domain defines the core business entities for MailMind.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - EmailRecord: A raw past email handed to ingestion
//   - IndexedDocument: The embeddable unit stored in the vector store
//   - RetrievedContext: A similar past email returned at draft time
//   - StyleProfile: The heuristic summary of the user's writing style
//   - Settings: Resolved configuration consumed by the core
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
