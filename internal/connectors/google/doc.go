// Package google provides shared infrastructure for reading mail from Gmail.
//
// This package contains:
//   - OAuth2 token handling backed by a client credentials file and a token file
//   - Service factories for creating Gmail API clients
//   - Error handling for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts, err := google.NewTokenSource(ctx, credentialsPath, tokenPath)
//	svc, err := google.NewGmailService(ctx, ts)
//
// # OAuth2 Scopes
//
// Only https://www.googleapis.com/auth/gmail.readonly is requested. For
// user-created internal apps, restricted scopes don't require verification.
package google
