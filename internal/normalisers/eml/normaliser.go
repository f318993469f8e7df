// Package eml turns RFC 822 messages into email records.
//
// The body of a reply is split at the first quoted-original marker: the text
// above becomes the record's body and the quoted original becomes its
// received text. HTML-only messages are reduced to plain text.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/normalisers/html"
)

// maxMessageBytes bounds how much of a single message is read.
const maxMessageBytes = 10 << 20

// Normaliser parses EML documents into email records.
type Normaliser struct {
	words *mime.WordDecoder
}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{
		words: &mime.WordDecoder{CharsetReader: charsetReader},
	}
}

// Normalise parses one message. name identifies the message when it carries
// no Message-ID header, typically the file name.
func (n *Normaliser) Normalise(_ context.Context, r io.Reader, name string) (*domain.EmailRecord, error) {
	if r == nil {
		return nil, domain.ErrInvalidInput
	}

	// Parse the email message
	msg, err := mail.ReadMessage(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, name, err)
	}

	body, err := extractBody(textPart{header: msg.Header, body: msg.Body})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	reply, quoted := SplitReply(body)

	record := &domain.EmailRecord{
		ID:       messageID(msg.Header, name),
		ThreadID: threadID(msg.Header),
		Subject:  n.decodeHeader(msg.Header.Get("Subject")),
		From:     n.decodeHeader(msg.Header.Get("From")),
		To:       n.decodeHeader(msg.Header.Get("To")),
		Body:     reply,
		Received: quoted,
		Date:     messageDate(msg.Header),
	}
	return record, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func (n *Normaliser) decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := n.words.DecodeHeader(header)
	if err != nil {
		return header // Return original if decoding fails
	}
	return strings.TrimSpace(decoded)
}

func messageID(h mail.Header, name string) string {
	if id := trimAngles(h.Get("Message-ID")); id != "" {
		return id
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// threadID is the root of the References chain, falling back to In-Reply-To.
func threadID(h mail.Header) string {
	if refs := strings.Fields(h.Get("References")); len(refs) > 0 {
		return trimAngles(refs[0])
	}
	return trimAngles(h.Get("In-Reply-To"))
}

func messageDate(h mail.Header) string {
	raw := h.Get("Date")
	if raw == "" {
		return ""
	}
	t, err := mail.ParseDate(raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format(time.RFC3339)
}

func trimAngles(s string) string {
	return strings.Trim(strings.TrimSpace(s), "<>")
}

// textPart is a MIME entity: a header block and its still-encoded body.
type textPart struct {
	header interface{ Get(string) string }
	body   io.Reader
}

// extractBody extracts the text content from a message or part,
// preferring text/plain over text/html.
func extractBody(p textPart) (string, error) {
	contentType := p.header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If we can't parse content type, try to read as plain text
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(p.body, params["boundary"])
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", nil
	}

	content, err := decodeContent(p.body, p.header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", domain.ErrInvalidInput, err)
	}
	if mediaType == "text/html" {
		return html.ToText(content), nil
	}
	return normaliseNewlines(content), nil
}

// extractMultipartBody extracts text from multipart messages.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		// multipart.Reader transparently decodes quoted-printable parts and
		// removes the header, so only base64 is left to handle.
		disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}
		if disposition == "attachment" {
			part.Close()
			continue
		}

		switch {
		case mediaType == "text/plain", mediaType == "text/html":
			content, err := decodeContent(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
			part.Close()
			if err != nil {
				continue
			}
			if mediaType == "text/html" {
				htmlParts = append(htmlParts, html.ToText(content))
			} else {
				textParts = append(textParts, normaliseNewlines(content))
			}
		case strings.HasPrefix(mediaType, "multipart/"):
			// Recursively handle nested multipart
			raw, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				continue
			}
			nested, nestedErr := extractMultipartBody(bytes.NewReader(raw), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		default:
			part.Close()
		}
	}

	// Prefer plain text over HTML
	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n"), nil
	}
	return "", nil
}

// decodeContent undoes the transfer encoding and converts the charset to UTF-8.
func decodeContent(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	if cr, err := charsetReader(charset, r); err == nil {
		r = cr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// charsetReader wraps input in a decoder for charset. UTF-8, US-ASCII and
// unknown charsets pass through unchanged.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	switch charset {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

func normaliseNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
