package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService turns email records into indexed documents.
type IngestionService struct {
	store      driven.VectorStore
	maxHistory int
}

// NewIngestionService creates a new ingestion service.
// A non-positive maxHistory uses domain.DefaultMaxEmailHistory.
func NewIngestionService(store driven.VectorStore, maxHistory int) *IngestionService {
	if maxHistory <= 0 {
		maxHistory = domain.DefaultMaxEmailHistory
	}
	return &IngestionService{
		store:      store,
		maxHistory: maxHistory,
	}
}

// Ingest indexes the first maxHistory records and returns how many were stored.
func (s *IngestionService) Ingest(ctx context.Context, emails []domain.EmailRecord) (int, error) {
	docs := s.Documents(emails)
	if len(docs) == 0 {
		logger.Debug("No emails with a body to index (received %d)", len(emails))
		return 0, nil
	}

	if err := s.store.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("upserting emails: %w", err)
	}

	logger.Info("Indexed %d of %d emails", len(docs), len(emails))
	return len(docs), nil
}

// Documents derives the documents that Ingest would store for a batch.
// Records beyond the history cap and records with an empty body are dropped.
func (s *IngestionService) Documents(emails []domain.EmailRecord) []domain.IndexedDocument {
	if len(emails) > s.maxHistory {
		logger.Debug("Capping batch of %d emails to %d", len(emails), s.maxHistory)
		emails = emails[:s.maxHistory]
	}

	docs := make([]domain.IndexedDocument, 0, len(emails))
	for _, email := range emails {
		body := domain.Truncate(email.Body, domain.MaxBodyChars)
		if body == "" {
			continue
		}

		docs = append(docs, domain.IndexedDocument{
			ID:   domain.DocumentID(email.ID, len(docs)),
			Text: domain.EmbeddableText(email.Subject, body),
			Metadata: map[string]string{
				domain.MetaSourceID: email.ID,
				domain.MetaSubject:  email.Subject,
				domain.MetaReply:    domain.Truncate(body, domain.MaxReplyChars),
				domain.MetaReceived: domain.Truncate(email.Received, domain.MaxReceivedChars),
				domain.MetaFrom:     email.From,
				domain.MetaTo:       email.To,
			},
		})
	}
	return docs
}
