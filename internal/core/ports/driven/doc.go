// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: Persistent (id, embedding, document, metadata) records with cosine query
//   - Embedder: Text to vector, injected into the vector store
//   - StyleProfileStore: Single-slot style profile persistence
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - MetricsRecorder: Operational counters. Without it, nothing is recorded.
//   - ConfigStore: Persisted settings. Without it, defaults and env apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
