package utils

import "time"

// FormatTimestamp renders t in UTC as RFC 3339 with nanosecond precision,
// the format memories carry in created_at.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a created_at value. Both second and nanosecond
// precision are accepted.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
