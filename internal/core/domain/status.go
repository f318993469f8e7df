package domain

// Status is a health snapshot of the core.
type Status struct {
	Count          int    `json:"count"`
	CountError     string `json:"count_error,omitempty"`
	ProfilePresent bool   `json:"profile_present"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingError string `json:"embedding_error,omitempty"`
	Backend        string `json:"backend"`
}
