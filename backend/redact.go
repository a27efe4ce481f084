package backend

import (
	"net/url"
	"regexp"
	"strings"
)

// MaskedValue replaces sensitive values in user-facing output.
const MaskedValue = "**********"

var dsnCredentials = regexp.MustCompile(`(?i)(password|pwd|token|secret|api[_-]?key)=([^;&\s]+)`)

// RedactURL strips userinfo from a URL so it can appear in error messages.
func RedactURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return RedactDSN(raw)
	}
	if parsed.User != nil {
		parsed.User = nil
	}
	return RedactDSN(parsed.String())
}

// RedactDSN masks key=value credential pairs in connection strings.
func RedactDSN(raw string) string {
	return dsnCredentials.ReplaceAllString(raw, "$1="+MaskedValue)
}
