package driven

import "time"

// MetricsRecorder receives operational measurements from the core services.
type MetricsRecorder interface {
	// IngestCompleted records one ingestion event.
	IngestCompleted(indexed, skipped int, elapsed time.Duration)

	// ProfileBuilt records a persisted style profile rebuild.
	ProfileBuilt()

	// RetrievalCompleted records a successful retrieval and the similarity of
	// each returned context.
	RetrievalCompleted(similarities []float64, elapsed time.Duration)

	// RetrievalFailed records a retrieval that degraded to an empty result.
	RetrievalFailed()
}
