package domain

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date representation (ISO 8601)
const DateLayout = "2006-01-02"

// DefaultEpoch is used whenever an acquisition or history date is missing or unparseable
var DefaultEpoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Today truncates t to midnight and returns it as a UTC calendar date.
// The wall-clock date of t is kept; only the time of day is dropped.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date. Timestamps such as "2023-01-01T00:00:00Z"
// are accepted by looking at the leading ten characters only.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDateOr parses raw and falls back to def when it is not a valid date
func ParseDateOr(raw string, def time.Time) time.Time {
	if t, ok := ParseDate(raw); ok {
		return t
	}
	return def
}

// FormatDate renders a calendar date, or "" for the zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
