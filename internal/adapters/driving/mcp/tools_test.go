package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("converts emails and reports the run", func(t *testing.T) {
		core := &mockCore{}
		profile := &domain.StyleProfile{Tone: domain.ToneConversational, SignOff: "Cheers", EmailCount: 1}
		core.On("IngestBatch", ctx, []domain.EmailRecord{{
			ID:       "1",
			Subject:  "Lunch",
			Body:     "Sounds good!\n\nCheers",
			Received: "Lunch tomorrow?",
		}}).Return(&domain.IngestReport{RunID: "run-1", Received: 1, Indexed: 1, Profile: profile}, nil)

		server := newTestServer(t, core)
		_, output, err := server.handleIngest(ctx, nil, IngestInput{Emails: []EmailInput{{
			ID:       "1",
			Subject:  "Lunch",
			Body:     "Sounds good!\n\nCheers",
			Received: "Lunch tomorrow?",
		}}})

		require.NoError(t, err)
		assert.Equal(t, "run-1", output.RunID)
		assert.Equal(t, 1, output.Indexed)
		assert.Equal(t, 0, output.Skipped)
		assert.Equal(t, profile, output.Profile)
		core.AssertExpectations(t)
	})

	t.Run("empty batch indexes nothing", func(t *testing.T) {
		core := &mockCore{}
		server := newTestServer(t, core)

		_, output, err := server.handleIngest(ctx, nil, IngestInput{Emails: []EmailInput{}})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Indexed)
		core.AssertNotCalled(t, "IngestBatch", mock.Anything, mock.Anything)
	})

	t.Run("numeric id is rendered as text", func(t *testing.T) {
		core := &mockCore{}
		core.On("IngestBatch", ctx, []domain.EmailRecord{{ID: "7", Body: "hi"}}).
			Return(&domain.IngestReport{Received: 1, Indexed: 1}, nil)
		server := newTestServer(t, core)

		_, output, err := server.handleIngest(ctx, nil, IngestInput{Emails: []EmailInput{{ID: float64(7), Body: "hi"}}})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Indexed)
		core.AssertExpectations(t)
	})

	t.Run("backend failure is reported", func(t *testing.T) {
		core := &mockCore{}
		core.On("IngestBatch", ctx, mock.Anything).Return(nil, domain.ErrEmbeddingUnavailable)
		server := newTestServer(t, core)

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Emails: []EmailInput{{Body: "hi"}}})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "ingest_emails failed")
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns contexts", func(t *testing.T) {
		core := &mockCore{}
		core.On("Retrieve", ctx, "Can we meet?", 2).Return([]domain.RetrievedContext{
			{Received: "Meeting?", Reply: "Sure, Tuesday works.", Subject: "Sync", Similarity: 0.91},
		})
		server := newTestServer(t, core)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{EmailBody: "Can we meet?", N: 2})

		require.NoError(t, err)
		require.Len(t, output.Contexts, 1)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "Sure, Tuesday works.", output.Contexts[0].Reply)
		core.AssertExpectations(t)
	})

	t.Run("nil result becomes empty list", func(t *testing.T) {
		core := &mockCore{}
		core.On("Retrieve", ctx, "hello", 0).Return(nil)
		server := newTestServer(t, core)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{EmailBody: "hello"})

		require.NoError(t, err)
		assert.NotNil(t, output.Contexts)
		assert.Empty(t, output.Contexts)
	})

	tests := []struct {
		name  string
		input RetrieveInput
	}{
		{name: "blank body", input: RetrieveInput{EmailBody: "  \n"}},
		{name: "negative n", input: RetrieveInput{EmailBody: "hello", N: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := &mockCore{}
			server := newTestServer(t, core)

			_, _, err := server.handleRetrieve(ctx, nil, tt.input)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			core.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestServer_handleStyleProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("no profile yet", func(t *testing.T) {
		core := &mockCore{}
		core.On("StyleProfile", ctx).Return(nil)
		server := newTestServer(t, core)

		_, output, err := server.handleStyleProfile(ctx, nil, ProfileInput{})

		require.NoError(t, err)
		assert.False(t, output.Found)
		assert.Nil(t, output.Profile)
	})

	t.Run("returns stored profile", func(t *testing.T) {
		core := &mockCore{}
		profile := &domain.StyleProfile{Tone: domain.ToneFormal, AvgLength: domain.LengthDetailed, EmailCount: 4}
		core.On("StyleProfile", ctx).Return(profile)
		server := newTestServer(t, core)

		_, output, err := server.handleStyleProfile(ctx, nil, ProfileInput{})

		require.NoError(t, err)
		assert.True(t, output.Found)
		assert.Equal(t, profile, output.Profile)
	})
}

func TestServer_handleCount(t *testing.T) {
	ctx := context.Background()

	t.Run("returns count", func(t *testing.T) {
		core := &mockCore{}
		core.On("Count", ctx).Return(42, nil)
		server := newTestServer(t, core)

		_, output, err := server.handleCount(ctx, nil, CountInput{})

		require.NoError(t, err)
		assert.Equal(t, 42, output.Count)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		core := &mockCore{}
		core.On("Count", ctx).Return(0, errors.New("database locked"))
		server := newTestServer(t, core)

		_, _, err := server.handleCount(ctx, nil, CountInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database locked")
	})
}
