package services

import (
	"time"

	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

var _ driven.MetricsRecorder = nopMetrics{}

// nopMetrics is used when no recorder is configured.
type nopMetrics struct{}

func (nopMetrics) IngestCompleted(int, int, time.Duration) {}
func (nopMetrics) ProfileBuilt() {}
func (nopMetrics) RetrievalCompleted([]float64, time.Duration) {}
func (nopMetrics) RetrievalFailed() {}
