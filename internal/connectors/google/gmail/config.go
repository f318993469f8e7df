// Package gmail fetches the user's sent mail from the Gmail API as email records.
package gmail

import "github.com/custodia-labs/mailmind/internal/core/domain"

// LabelSent is the system label of sent messages.
const LabelSent = "SENT"

// Config holds Gmail fetcher configuration.
type Config struct {
	// LabelIDs limits fetching to specific label IDs. Defaults to SENT.
	LabelIDs []string
	// Query is a Gmail search query (optional), e.g. "newer_than:1y".
	Query string
	// MaxMessages caps how many messages are fetched, newest first.
	MaxMessages int
	// PageSize is the page size for list requests.
	PageSize int64
	// IncludeSpamTrash includes spam and trash if true.
	IncludeSpamTrash bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LabelIDs:    []string{LabelSent},
		MaxMessages: domain.DefaultMaxEmailHistory,
		PageSize:    100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.LabelIDs) == 0 {
		c.LabelIDs = d.LabelIDs
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = d.MaxMessages
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if int64(c.MaxMessages) < c.PageSize {
		c.PageSize = int64(c.MaxMessages)
	}
	return c
}
