package services

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD date as midnight in loc
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(dateStr), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, dateStr)
	}
	return parsed, nil
}

// ParseTimestamp accepts RFC 3339 or a bare YYYY-MM-DD date in loc
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := ParseDate(value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q, expected RFC 3339 or YYYY-MM-DD", ErrValidation, value)
}
