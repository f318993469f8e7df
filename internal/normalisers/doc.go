// Package normalisers turns raw mail formats into domain email records.
//
//   - eml: RFC 822 messages, from files or from raw Gmail payloads
//   - html: HTML body reduction shared by the mail parsers
package normalisers
