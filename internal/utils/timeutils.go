package utils

import (
	"fmt"
	"strings"
	"time"
)

// dayLayouts lists accepted timestamp shapes, most specific first.
var dayLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDay parses a calendar day from an ISO date or timestamp and returns
// midnight UTC of that day. Timestamps keep the day as written, not the UTC day.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unsupported layout", value)
}
