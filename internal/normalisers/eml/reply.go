package eml

import (
	"regexp"
	"strings"
)

// Lines that introduce the quoted original of a reply.
var (
	attributionLine = regexp.MustCompile(`(?i)^on\s.+wrote:\s*$`)
	originalHeader  = regexp.MustCompile(`(?i)^-{2,}\s*(original message|forwarded message)\s*-{2,}\s*$`)
	outlookFromLine = regexp.MustCompile(`(?i)^from:\s.+`)
)

// SplitReply separates a reply body into the text the sender wrote and the
// quoted original it answers. Either part may be empty.
//
// The split happens at the first line that is an attribution ("On ... wrote:"),
// an "Original Message" separator, an Outlook-style "From:" header block, or a
// ">" quoted line. A two-line attribution ("On Mon, ... <a@b.c>" / "wrote:")
// is recognised too. Quote markers are removed from the original.
func SplitReply(body string) (reply, quoted string) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	cut, outlook := -1, false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case attributionLine.MatchString(trimmed), originalHeader.MatchString(trimmed):
			cut = i
		case i+1 < len(lines) && strings.HasPrefix(strings.ToLower(trimmed), "on ") &&
			strings.EqualFold(strings.TrimSpace(lines[i+1]), "wrote:"):
			cut = i
		case outlookFromLine.MatchString(trimmed) && i > 0 && strings.TrimSpace(lines[i-1]) == "":
			cut, outlook = i, true
		case strings.HasPrefix(trimmed, ">"):
			cut = i
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return strings.TrimSpace(body), ""
	}

	reply = strings.TrimSpace(strings.Join(lines[:cut], "\n"))

	rest := lines[cut:]
	switch {
	case outlook:
		// Skip the From:/Sent:/To:/Subject: block up to the first blank line.
		for len(rest) > 0 && strings.TrimSpace(rest[0]) != "" {
			rest = rest[1:]
		}
	case !strings.HasPrefix(strings.TrimSpace(rest[0]), ">"):
		rest = rest[1:]
		if len(rest) > 0 && strings.EqualFold(strings.TrimSpace(rest[0]), "wrote:") {
			rest = rest[1:]
		}
	}
	for i, line := range rest {
		rest[i] = unquote(line)
	}
	quoted = strings.TrimSpace(strings.Join(rest, "\n"))
	return reply, quoted
}

// unquote strips one or more leading ">" markers.
func unquote(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, ">") {
		return line
	}
	for strings.HasPrefix(trimmed, ">") {
		trimmed = strings.TrimPrefix(trimmed, ">")
		trimmed = strings.TrimPrefix(trimmed, " ")
	}
	return trimmed
}
