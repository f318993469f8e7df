package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir           = "data_dir"
	keyVectorDBDir       = "vector_db_dir"
	keyMaxRAGResults     = "max_rag_results"
	keyMaxEmailHistory   = "max_email_history"
	keyDistanceThreshold = "retrieval.distance_threshold"
	keyVectorDSN         = "vector_store.dsn"
	keyCollection        = "vector_store.collection"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedCacheSize    = "embedding.cache_size"
)

// Environment variables overriding the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvDataDir           = "DATA_DIR"
	EnvVectorDBDir       = "VECTOR_DB_DIR"
	EnvMaxRAGResults     = "MAX_RAG_RESULTS"
	EnvMaxEmailHistory   = "MAX_EMAIL_HISTORY"
	EnvVectorDSN         = "MAILMIND_VECTOR_DSN"
	EnvCollection        = "MAILMIND_COLLECTION"
	EnvEmbedProvider     = "MAILMIND_EMBEDDING_PROVIDER"
	EnvEmbedModel        = "MAILMIND_EMBEDDING_MODEL"
	EnvEmbedBaseURL      = "MAILMIND_EMBEDDING_BASE_URL"
	EnvEmbedAPIKey       = "MAILMIND_EMBEDDING_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// settingKinds lists every configurable key with its value type, in display order.
var settingKinds = []struct {
	key  string
	kind settingKind
}{
	{keyDataDir, kindString},
	{keyVectorDBDir, kindString},
	{keyMaxRAGResults, kindPositiveInt},
	{keyMaxEmailHistory, kindPositiveInt},
	{keyDistanceThreshold, kindDistance},
	{keyVectorDSN, kindString},
	{keyCollection, kindString},
	{keyEmbedProvider, kindProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyEmbedDimensions, kindNonNegativeInt},
	{keyEmbedRPS, kindNonNegativeFloat},
	{keyEmbedCacheSize, kindNonNegativeInt},
}

type settingKind int

const (
	kindString settingKind = iota
	kindPositiveInt
	kindNonNegativeInt
	kindNonNegativeFloat
	kindDistance
	kindProvider
)

// EnvLookup reads an environment variable.
type EnvLookup func(key string) (string, bool)

// SettingsService resolves settings as defaults, then the config file,
// then environment variables.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   EnvLookup
}

// NewSettingsService creates a new settings service.
// The configStore and aiValidator parameters are optional (can be nil).
// A nil env reads the process environment.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, env EnvLookup) *SettingsService {
	if env == nil {
		env = os.LookupEnv
	}
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   env,
	}
}

// Get resolves the current settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		DataDir:         s.getString(keyDataDir, defaults.DataDir),
		VectorDBDir:     s.getString(keyVectorDBDir, defaults.VectorDBDir),
		MaxRAGResults:   s.getInt(keyMaxRAGResults, defaults.MaxRAGResults),
		MaxEmailHistory: s.getInt(keyMaxEmailHistory, defaults.MaxEmailHistory),
		Retrieval: domain.RetrievalSettings{
			DistanceThreshold: s.getFloat(keyDistanceThreshold, defaults.Retrieval.DistanceThreshold),
		},
		VectorStore: domain.VectorStoreSettings{
			DSN:        s.getString(keyVectorDSN, defaults.VectorStore.DSN),
			Collection: s.getString(keyCollection, defaults.VectorStore.Collection),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, ""),
			BaseURL:           s.getString(keyEmbedBaseURL, ""),
			APIKey:            s.getString(keyEmbedAPIKey, ""),
			Dimensions:        s.getInt(keyEmbedDimensions, 0),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, 0),
			CacheSize:         s.getInt(keyEmbedCacheSize, 0),
		},
	}

	s.applyEnv(settings)

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaBaseURL
	}

	return settings, nil
}

// applyEnv overrides settings with any environment variables that are set.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	if v, ok := s.env(EnvDataDir); ok {
		settings.DataDir = v
	}
	if v, ok := s.env(EnvVectorDBDir); ok {
		settings.VectorDBDir = v
	}
	if v, ok := s.envInt(EnvMaxRAGResults); ok {
		settings.MaxRAGResults = v
	}
	if v, ok := s.envInt(EnvMaxEmailHistory); ok {
		settings.MaxEmailHistory = v
	}
	if v, ok := s.env(EnvVectorDSN); ok {
		settings.VectorStore.DSN = v
	}
	if v, ok := s.env(EnvCollection); ok {
		settings.VectorStore.Collection = v
	}
	if v, ok := s.env(EnvEmbedProvider); ok {
		provider := domain.AIProvider(v)
		if provider.IsValid() {
			if provider != settings.Embedding.Provider {
				settings.Embedding.Model = ""
				settings.Embedding.BaseURL = ""
			}
			settings.Embedding.Provider = provider
		} else {
			logger.Warn("ignoring %s=%q: unknown provider", EnvEmbedProvider, v)
		}
	}
	if v, ok := s.env(EnvEmbedModel); ok {
		settings.Embedding.Model = v
	}
	if v, ok := s.env(EnvEmbedBaseURL); ok {
		settings.Embedding.BaseURL = v
	}
	if v, ok := s.env(EnvEmbedAPIKey); ok {
		settings.Embedding.APIKey = v
	}
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		if v, ok := s.env(EnvOpenAIAPIKey); ok {
			settings.Embedding.APIKey = v
		}
	}
}

// Set validates value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return fmt.Errorf("set %s: no config file available", key)
	}

	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if s.configStore == nil {
		return fmt.Errorf("set embedding provider: no config file available")
	}

	// Set model - use provided or default
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	baseURL := s.configStore.GetString(keyEmbedBaseURL)
	switch provider {
	case domain.AIProviderOllama:
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
	default:
		baseURL = ""
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, provider.String()},
		{keyEmbedModel, model},
		{keyEmbedBaseURL, baseURL},
		{keyEmbedAPIKey, apiKey},
		{keyEmbedDimensions, domain.EmbeddingDimensions()[model]},
	}
	for _, kv := range values {
		if err := s.configStore.Set(kv.key, kv.value); err != nil {
			return fmt.Errorf("save %s: %w", kv.key, err)
		}
	}
	return nil
}

// Validate checks that the resolved settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch {
	case settings.DataDir == "":
		return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, keyDataDir)
	case settings.VectorStore.Backend() == domain.VectorBackendSQLite && settings.VectorDBDir == "":
		return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, keyVectorDBDir)
	case settings.MaxRAGResults <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyMaxRAGResults)
	case settings.MaxEmailHistory <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyMaxEmailHistory)
	case settings.Retrieval.DistanceThreshold <= 0 || settings.Retrieval.DistanceThreshold > 2:
		return fmt.Errorf("%w: %s must be in (0, 2]", domain.ErrInvalidInput, keyDistanceThreshold)
	case settings.VectorStore.Collection == "":
		return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, keyCollection)
	case !settings.Embedding.IsConfigured():
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Keys returns the configurable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKinds))
	for i, sk := range settingKinds {
		keys[i] = sk.key
	}
	return keys
}

// ConfigPath returns the config file location, or empty when unset.
func (s *SettingsService) ConfigPath() string {
	if s.configStore == nil {
		return ""
	}
	return s.configStore.Path()
}

func lookupKind(key string) (settingKind, bool) {
	for _, sk := range settingKinds {
		if sk.key == key {
			return sk.kind, true
		}
	}
	return kindString, false
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindPositiveInt, kindNonNegativeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if n < 0 || (kind == kindPositiveInt && n == 0) {
			return nil, fmt.Errorf("out of range: %d", n)
		}
		return n, nil
	case kindNonNegativeFloat, kindDistance:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		if f < 0 || (kind == kindDistance && (f == 0 || f > 2)) {
			return nil, fmt.Errorf("out of range: %g", f)
		}
		return f, nil
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if s.configStore == nil {
		return defaultVal
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if s.configStore == nil {
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if s.configStore == nil {
		return defaultVal
	}
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getString(keyEmbedProvider, "")
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) env(key string) (string, bool) {
	v, ok := s.lookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (s *SettingsService) envInt(key string) (int, bool) {
	v, ok := s.env(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("ignoring %s=%q: expected a positive integer", key, v)
		return 0, false
	}
	return n, true
}
