// Package connectors fetches past emails from remote mailboxes.
// Each connector returns domain.EmailRecord batches ready for ingestion.
//
// Gmail lives under google/gmail and authenticates with the token written
// by "mailmind gmail auth".
package connectors
