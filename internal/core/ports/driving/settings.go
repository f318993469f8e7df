package driving

import "github.com/custodia-labs/mailmind/internal/core/domain"

// SettingsService resolves and manages application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the environment.
	Get() (*domain.Settings, error)

	// Set validates and persists a single key to the config file.
	Set(key, value string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the resolved settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Keys returns the configurable keys in display order.
	Keys() []string

	// ConfigPath returns the config file location, or empty when unset.
	ConfigPath() string
}
