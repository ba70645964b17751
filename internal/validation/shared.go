package validation

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Error is a set of field-level validation failures keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		t, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return t.UTC(), nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func checkDate(errors map[string]string, field, value string, required bool) time.Time {
	if strings.TrimSpace(value) == "" {
		if required {
			errors[field] = field + " is required"
		}
		return time.Time{}
	}
	t, err := ParseTime(value)
	if err != nil {
		errors[field] = field + " must be a date in YYYY-MM-DD format"
	}
	return t
}
