package mcp

import (
	"net/http"

	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
)

// Ports aggregates the dependencies of the MCP server.
type Ports struct {
	// Core performs ingestion, retrieval and style profiling.
	Core driving.Core

	// Metrics is served at /metrics in HTTP mode when set.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Core == nil {
		return ErrMissingCore
	}
	return nil
}
