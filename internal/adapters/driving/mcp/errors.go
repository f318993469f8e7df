// Package mcp provides an MCP (Model Context Protocol) server adapter for MailMind.
// It lets an email assistant index past mail, fetch similar sent replies and
// read the writing-style profile.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// ErrMissingCore is returned when the core is not provided.
var ErrMissingCore = errors.New("mcp: core is required")

// toolError converts a core error into the error reported by a tool call.
// Invalid input keeps its message so the client can correct the request.
func toolError(op string, err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
