package server

import (
	"errors"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidSnowflakeID = errors.New("invalid_snowflake_id")

// parseDate accepts a calendar date or an RFC3339 timestamp and returns the
// UTC midnight of that day.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("empty_date")
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, errors.New("invalid_date")
}
