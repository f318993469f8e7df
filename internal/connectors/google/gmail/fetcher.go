package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mailmind/internal/connectors/google"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/logger"
	"github.com/custodia-labs/mailmind/internal/normalisers/eml"
)

// userID addresses the authenticated account.
const userID = "me"

// maxRateLimitAttempts bounds how often one request is repeated after a 429.
const maxRateLimitAttempts = 3

// Fetcher reads messages from Gmail and converts them to email records.
type Fetcher struct {
	svc        *gmail.Service
	limiter    *google.RateLimiter
	normaliser *eml.Normaliser
	cfg        Config

	// backoff overrides the limiter's default pause after a 429.
	backoff time.Duration
}

// NewFetcher creates a fetcher. A nil limiter uses the Gmail defaults.
func NewFetcher(svc *gmail.Service, limiter *google.RateLimiter, cfg Config) *Fetcher {
	if limiter == nil {
		limiter = google.NewRateLimiter()
	}
	return &Fetcher{
		svc:        svc,
		limiter:    limiter,
		normaliser: eml.New(),
		cfg:        cfg.withDefaults(),
	}
}

// Fetch lists matching messages newest first, up to MaxMessages, and converts
// each one. Messages that cannot be parsed are logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.EmailRecord, error) {
	ids, err := f.listIDs(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.EmailRecord, 0, len(ids))
	for _, id := range ids {
		var msg *gmail.Message
		err := f.call(ctx, func() error {
			var err error
			msg, err = f.svc.Users.Messages.Get(userID, id).Format("raw").Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", id, err)
		}
		if !ShouldInclude(msg, f.cfg) {
			continue
		}

		record, err := MessageToRecord(ctx, msg, f.normaliser)
		if err != nil {
			logger.Warn("Skipping Gmail message %s: %v", id, err)
			continue
		}
		records = append(records, *record)
	}

	logger.Debug("Fetched %d Gmail messages", len(records))
	return records, nil
}

func (f *Fetcher) listIDs(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < f.cfg.MaxMessages {
		call := f.svc.Users.Messages.List(userID).
			LabelIds(f.cfg.LabelIDs...).
			MaxResults(f.cfg.PageSize).
			IncludeSpamTrash(f.cfg.IncludeSpamTrash).
			Context(ctx)
		if f.cfg.Query != "" {
			call = call.Q(f.cfg.Query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := f.call(ctx, func() error {
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, m := range resp.Messages {
			if len(ids) == f.cfg.MaxMessages {
				break
			}
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

// call paces fn through the rate limiter and repeats it after a 429.
func (f *Fetcher) call(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRateLimitAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		err = google.WrapError(fn())
		if !errors.Is(err, google.ErrRateLimited) {
			return err
		}
		logger.Warn("Gmail rate limit hit (attempt %d/%d)", attempt, maxRateLimitAttempts)
		f.limiter.RecordRateLimitError(f.backoff)
	}
	return err
}
