package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// EmailInput is one past email in an ingest_emails call.
type EmailInput struct {
	ID       any    `json:"id,omitempty" jsonschema:"stable identifier of the email, string or number; re-ingesting the same id replaces it"`
	Subject  string `json:"subject,omitempty" jsonschema:"subject line"`
	Body     string `json:"body,omitempty" jsonschema:"text the user wrote; emails with an empty body are skipped"`
	From     string `json:"from,omitempty" jsonschema:"sender address"`
	To       string `json:"to,omitempty" jsonschema:"recipient address"`
	Received string `json:"received,omitempty" jsonschema:"the email this one replied to, if known"`
}

// IngestInput is the input schema for the ingest_emails tool.
type IngestInput struct {
	Emails []EmailInput `json:"emails" jsonschema:"past emails written by the user"`
}

// IngestOutput is the output schema for the ingest_emails tool.
type IngestOutput struct {
	RunID   string               `json:"run_id"`
	Indexed int                  `json:"indexed"`
	Skipped int                  `json:"skipped"`
	Profile *domain.StyleProfile `json:"profile,omitempty"`
}

// RetrieveInput is the input schema for the retrieve_context tool.
type RetrieveInput struct {
	EmailBody string `json:"email_body" jsonschema:"body of the incoming email to find similar past replies for"`
	N         int    `json:"n,omitempty" jsonschema:"maximum number of contexts to return (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve_context tool.
type RetrieveOutput struct {
	Contexts []domain.RetrievedContext `json:"contexts"`
	Count    int                       `json:"count"`
}

// ProfileInput is the empty input schema for the get_style_profile tool.
type ProfileInput struct{}

// ProfileOutput is the output schema for the get_style_profile tool.
type ProfileOutput struct {
	Found   bool                 `json:"found"`
	Profile *domain.StyleProfile `json:"profile,omitempty"`
}

// CountInput is the empty input schema for the count tool.
type CountInput struct{}

// CountOutput is the output schema for the count tool.
type CountOutput struct {
	Count int `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_emails",
		Description: "Index past emails for retrieval and rebuild the writing-style profile from them",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_context",
		Description: "Find past replies to emails similar to an incoming email",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_style_profile",
		Description: "Return the user's writing-style profile from the last ingestion",
	}, s.handleStyleProfile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "count",
		Description: "Return the number of indexed emails",
	}, s.handleCount)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Emails) == 0 {
		return nil, IngestOutput{}, nil
	}

	records := make([]domain.EmailRecord, len(input.Emails))
	for i, e := range input.Emails {
		records[i] = domain.EmailRecord{
			ID:       domain.FormatScalar(e.ID),
			Subject:  e.Subject,
			Body:     e.Body,
			From:     e.From,
			To:       e.To,
			Received: e.Received,
		}
	}

	report, err := s.ports.Core.IngestBatch(ctx, records)
	if err != nil {
		return nil, IngestOutput{}, toolError("ingest_emails", err)
	}

	return nil, IngestOutput{
		RunID:   report.RunID,
		Indexed: report.Indexed,
		Skipped: report.Skipped,
		Profile: report.Profile,
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.EmailBody) == "" {
		return nil, RetrieveOutput{}, toolError("retrieve_context", fmt.Errorf("%w: email_body is empty", domain.ErrInvalidInput))
	}
	if input.N < 0 {
		return nil, RetrieveOutput{}, toolError("retrieve_context", fmt.Errorf("%w: n must not be negative", domain.ErrInvalidInput))
	}

	contexts := s.ports.Core.Retrieve(ctx, input.EmailBody, input.N)
	if contexts == nil {
		contexts = []domain.RetrievedContext{}
	}

	return nil, RetrieveOutput{
		Contexts: contexts,
		Count:    len(contexts),
	}, nil
}

func (s *Server) handleStyleProfile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ProfileInput,
) (*mcp.CallToolResult, ProfileOutput, error) {
	profile := s.ports.Core.StyleProfile(ctx)
	return nil, ProfileOutput{Found: profile != nil, Profile: profile}, nil
}

func (s *Server) handleCount(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CountInput,
) (*mcp.CallToolResult, CountOutput, error) {
	count, err := s.ports.Core.Count(ctx)
	if err != nil {
		return nil, CountOutput{}, toolError("count", err)
	}
	return nil, CountOutput{Count: count}, nil
}
