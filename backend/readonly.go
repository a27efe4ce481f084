package backend

import (
	"regexp"
	"strings"
)

// Read-only statement openers. The list is intentionally coarse: it is
// extended only by adding new exact prefixes, never by relaxing the
// default-deny policy. Anything that does not match is rejected before a
// connection is opened.
var readOnlyPrefixes = []string{
	"select",
	"show",
	"explain",
	"describe",
	"desc",
}

// Common-table-expression opener: "with <ident> as (".
var ctePattern = regexp.MustCompile(`(?is)^with\s+"?[a-z_][a-z0-9_]*"?\s+as\s*\(`)

// EnsureReadOnly rejects any statement whose opener is not on the read-only
// allow-list. The check is lexical and conservative: unmatched statements are
// always rejected, never heuristically allowed. It performs no I/O.
func EnsureReadOnly(backendName, stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return New(backendName, CodeWriteNotAllowed, "empty statement; only read-only queries are allowed")
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range readOnlyPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		// The prefix must be a whole token, so "selection" or "described1"
		// style openers do not sneak by.
		rest := lower[len(prefix):]
		if rest == "" || isTokenBoundary(rest[0]) {
			return nil
		}
	}
	if ctePattern.MatchString(trimmed) {
		return nil
	}

	return New(backendName, CodeWriteNotAllowed,
		"only read-only queries are allowed (select, show, explain, describe, or with ... as)")
}

func isTokenBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', '*', '/', '-':
		return true
	default:
		return false
	}
}
