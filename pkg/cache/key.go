package cache

import "strings"

// MetricsKey returns the store key for a user's derived metrics.
// The login is used verbatim; metrics keys are case-sensitive.
func MetricsKey(username string) string {
	return "metrics:" + username
}

// ProfileKey returns the store key for a user's profile snapshot.
// The login is trimmed and lowercased so that lookups for the same user
// with different casing share one entry.
func ProfileKey(username string) string {
	return "profile:" + strings.ToLower(strings.TrimSpace(username))
}
