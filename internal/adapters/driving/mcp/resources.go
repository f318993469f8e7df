package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for MailMind resources.
	uriScheme = "mailmind://"

	styleProfileURI = uriScheme + "style-profile"
	statusURI       = uriScheme + "status"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         styleProfileURI,
		Name:        "style-profile",
		Description: "Writing-style profile built from the last ingestion",
		MIMEType:    "application/json",
	}, s.handleStyleProfileResource)

	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Description: "Index size, profile presence and embedding backend",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStyleProfileResource returns the profile, or {} when none exists yet.
func (s *Server) handleStyleProfileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	text := "{}"
	if profile := s.ports.Core.StyleProfile(ctx); profile != nil {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling style profile: %w", err)
		}
		text = string(data)
	}

	return jsonResource(req.Params.URI, text), nil
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Core.Status(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}
