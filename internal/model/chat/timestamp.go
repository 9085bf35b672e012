package chat

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the stored text form of every persisted time. The fraction
// is fixed-width so that lexical order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Now returns the current time at the granularity the stores persist.
func Now() time.Time {
	return Normalize(time.Now())
}

// Normalize converts t to UTC and drops precision finer than a microsecond.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return Normalize(t).Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 form, including the "+00:00" offsets and
// variable-length fractions written by older deployments.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return Normalize(t), nil
}
