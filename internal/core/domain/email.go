package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Truncation limits applied before storage.
const (
	// MaxBodyChars is the number of body characters kept for embedding.
	MaxBodyChars = 800

	// MaxReceivedChars is the number of characters kept from the received email.
	MaxReceivedChars = 400

	// MaxReplyChars is the number of body characters kept in the reply metadata.
	MaxReplyChars = 500

	// DocumentIDPrefix prefixes every indexed document id.
	DocumentIDPrefix = "email_"
)

// Metadata keys stored alongside each indexed document.
const (
	MetaSourceID = "id"
	MetaSubject  = "subject"
	MetaReply    = "reply"
	MetaReceived = "received"
	MetaFrom     = "from"
	MetaTo       = "to"
)

// EmailRecord is a past email handed to ingestion.
// Received holds the email this one replied to, when known.
type EmailRecord struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	From     string `json:"from"`
	To       string `json:"to"`
	Received string `json:"received"`
	Date     string `json:"date,omitempty"`
}

// UnmarshalJSON decodes a record leniently. Numeric ids are accepted and
// fields of an unexpected type are left empty rather than failing the batch.
func (e *EmailRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding email record: %w", err)
	}

	*e = EmailRecord{
		ID:       scalarString(raw["id"]),
		ThreadID: scalarString(raw["thread_id"]),
		Subject:  scalarString(raw["subject"]),
		Body:     scalarString(raw["body"]),
		From:     scalarString(raw["from"]),
		To:       scalarString(raw["to"]),
		Received: scalarString(raw["received"]),
		Date:     scalarString(raw["date"]),
	}
	return nil
}

// scalarString renders a JSON string or number as a Go string.
func scalarString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// FormatScalar renders a decoded JSON scalar as a string. Numbers keep
// their shortest form, so 7 becomes "7". Objects, arrays and nil give "".
func FormatScalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// IndexedDocument is the unit stored in the vector store.
type IndexedDocument struct {
	// ID is unique within a collection; upserts replace by ID.
	ID string

	// Text is the string that gets embedded.
	Text string

	// Metadata is the payload returned with query matches.
	Metadata map[string]string
}

// DocumentID derives the stored id for a record. Ordinal is used when the
// source id is empty.
func DocumentID(sourceID string, ordinal int) string {
	if sourceID != "" {
		return DocumentIDPrefix + sourceID
	}
	return DocumentIDPrefix + strconv.Itoa(ordinal)
}

// EmbeddableText builds the labelled subject+body string that gets vectorised.
func EmbeddableText(subject, body string) string {
	return "Subject: " + subject + "\n\nBody: " + body
}

// Truncate returns at most n characters (code points) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RetrievedContext is a similar past email returned at draft time.
type RetrievedContext struct {
	Received   string  `json:"received"`
	Reply      string  `json:"reply"`
	Subject    string  `json:"subject"`
	Similarity float64 `json:"similarity"`
}

// IngestReport summarises one ingestion event.
type IngestReport struct {
	RunID    string        `json:"run_id"`
	Received int           `json:"received"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Profile  *StyleProfile `json:"profile,omitempty"`
}
