// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline, retrieval service and style profiler are composed
// into a single Core, constructed explicitly by the caller and closed when
// the process stops.
package services
