package domain

import (
	"path/filepath"
	"strings"
)

const unknownDescription = "Unknown"

// Default configuration values.
const (
	DefaultDataDir           = "./data"
	DefaultVectorDBDir       = "./data/vectordb"
	DefaultMaxRAGResults     = 5
	DefaultMaxEmailHistory   = 500
	DefaultDistanceThreshold = 0.8
	DefaultCollection        = "email_history"

	// UpsertBatchSize is the number of documents embedded and written per sub-batch.
	UpsertBatchSize = 100

	// StyleProfileFile is the file name of the persisted profile under the data dir.
	StyleProfileFile = "style_profile.json"

	// VectorIndexFile is the sqlite database file under the vector db dir.
	VectorIndexFile = "index.db"
)

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in offline feature-hashing embedder.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs without a network service
// outside the user's machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderLocal || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (feature hashing, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPostgres VectorBackend = "postgres"
	VectorBackendMemory   VectorBackend = "memory"
)

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero means the model's known default.
	Dimensions int

	// RequestsPerSecond paces embedding calls. Zero disables pacing.
	RequestsPerSecond float64

	// CacheSize is the number of query embeddings kept in memory. Zero disables caching.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedModel returns the configured model or the provider default.
func (e EmbeddingSettings) ResolvedModel() string {
	if e.Model != "" {
		return e.Model
	}
	return DefaultEmbeddingModels()[e.Provider]
}

// ResolvedDimensions returns the configured dimensions or the known model size.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.ResolvedModel()]
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// DSN selects a remote backend. A postgres:// or postgresql:// URL uses
	// pgvector; "memory" keeps everything in process; empty uses sqlite.
	DSN string

	// Collection namespaces documents within the store.
	Collection string
}

// Backend returns the backend selected by the DSN.
func (v VectorStoreSettings) Backend() VectorBackend {
	dsn := strings.TrimSpace(v.DSN)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return VectorBackendPostgres
	case dsn == string(VectorBackendMemory):
		return VectorBackendMemory
	default:
		return VectorBackendSQLite
	}
}

// RetrievalSettings holds retrieval tuning.
type RetrievalSettings struct {
	// DistanceThreshold excludes matches at or beyond this cosine distance.
	DistanceThreshold float64
}

// Settings holds the resolved configuration consumed by the core.
type Settings struct {
	// DataDir holds the style profile.
	DataDir string

	// VectorDBDir holds the sqlite vector index.
	VectorDBDir string

	// MaxRAGResults caps the number of retrieved contexts per query.
	MaxRAGResults int

	// MaxEmailHistory caps the number of emails indexed per ingestion call.
	MaxEmailHistory int

	Retrieval   RetrievalSettings
	VectorStore VectorStoreSettings
	Embedding   EmbeddingSettings
}

// ProfilePath returns the location of the persisted style profile.
func (s Settings) ProfilePath() string {
	return filepath.Join(s.DataDir, StyleProfileFile)
}

// VectorIndexPath returns the location of the sqlite vector index.
func (s Settings) VectorIndexPath() string {
	return filepath.Join(s.VectorDBDir, VectorIndexFile)
}

// DefaultSettings returns settings with sensible defaults.
// The local embedder works offline, so a fresh install needs no setup.
func DefaultSettings() Settings {
	return Settings{
		DataDir:         DefaultDataDir,
		VectorDBDir:     DefaultVectorDBDir,
		MaxRAGResults:   DefaultMaxRAGResults,
		MaxEmailHistory: DefaultMaxEmailHistory,
		Retrieval: RetrievalSettings{
			DistanceThreshold: DefaultDistanceThreshold,
		},
		VectorStore: VectorStoreSettings{
			Collection: DefaultCollection,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderLocal,
			Model:    DefaultEmbeddingModels()[AIProviderLocal],
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hash-bigram-384",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Local
		"hash-bigram-384": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
