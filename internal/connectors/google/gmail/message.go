package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/normalisers/eml"
)

// MessageToRecord converts a Gmail message fetched with Format("raw") to an
// email record. msg.Raw holds the base64url-encoded RFC 2822 message.
// The Gmail message and thread IDs take precedence over header values.
func MessageToRecord(ctx context.Context, msg *gmail.Message, normaliser *eml.Normaliser) (*domain.EmailRecord, error) {
	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode message %s: %w", msg.Id, err)
	}

	record, err := normaliser.Normalise(ctx, strings.NewReader(string(raw)), msg.Id)
	if err != nil {
		return nil, err
	}
	record.ID = msg.Id
	if msg.ThreadId != "" {
		record.ThreadID = msg.ThreadId
	}
	return record, nil
}

// decodeRaw accepts padded and unpadded base64url.
func decodeRaw(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// ShouldInclude checks if a message should be ingested based on config.
func ShouldInclude(msg *gmail.Message, cfg Config) bool {
	if !hasRequiredLabel(msg.LabelIds, cfg.LabelIDs) {
		return false
	}
	if !cfg.IncludeSpamTrash && isSpamOrTrash(msg.LabelIds) {
		return false
	}
	return true
}

// hasRequiredLabel checks if any required label is present.
func hasRequiredLabel(msgLabels, requiredLabels []string) bool {
	if len(requiredLabels) == 0 || len(msgLabels) == 0 {
		return true
	}
	for _, required := range requiredLabels {
		if slices.Contains(msgLabels, required) {
			return true
		}
	}
	return false
}

// isSpamOrTrash checks if the message has spam or trash labels.
func isSpamOrTrash(labels []string) bool {
	return slices.Contains(labels, "SPAM") || slices.Contains(labels, "TRASH")
}
