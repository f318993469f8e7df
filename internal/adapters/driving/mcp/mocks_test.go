package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
)

var _ driving.Core = (*mockCore)(nil)

// mockCore is a testify mock of driving.Core.
type mockCore struct {
	mock.Mock
}

func (m *mockCore) Ingest(ctx context.Context, emails []domain.EmailRecord) (int, error) {
	args := m.Called(ctx, emails)
	return args.Int(0), args.Error(1)
}

func (m *mockCore) IngestBatch(ctx context.Context, emails []domain.EmailRecord) (*domain.IngestReport, error) {
	args := m.Called(ctx, emails)
	report, _ := args.Get(0).(*domain.IngestReport)
	return report, args.Error(1)
}

func (m *mockCore) Retrieve(ctx context.Context, query string, n int) []domain.RetrievedContext {
	args := m.Called(ctx, query, n)
	contexts, _ := args.Get(0).([]domain.RetrievedContext)
	return contexts
}

func (m *mockCore) StyleProfile(ctx context.Context) *domain.StyleProfile {
	args := m.Called(ctx)
	profile, _ := args.Get(0).(*domain.StyleProfile)
	return profile
}

func (m *mockCore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockCore) Status(ctx context.Context) domain.Status {
	args := m.Called(ctx)
	status, _ := args.Get(0).(domain.Status)
	return status
}

func (m *mockCore) Close() error {
	return m.Called().Error(0)
}

func newTestServer(t *testing.T, core *mockCore) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Core: core})
	require.NoError(t, err)
	return server
}
