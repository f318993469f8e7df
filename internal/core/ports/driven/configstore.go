package driven

// ConfigStore holds persisted settings addressed by dot-notation keys
// ("embedding.model"). Typed getters never fail: a missing key or a value
// of another type yields the zero value, and callers fall back to defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns a string value, or "".
	GetString(key string) string

	// GetInt returns an integer value, or 0. Whole floats are accepted.
	GetInt(key string) int

	// GetFloat returns a numeric value as float64, or 0. Integers are converted.
	GetFloat(key string) float64

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current values.
	Save() error

	// Load re-reads values from storage, replacing those in memory.
	Load() error

	// Path returns where values are persisted.
	Path() string
}
