package validation

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The accessors below read fields from a payload that has already passed
// Validate. They report false when the field is absent or empty.

// UUID returns a uuid field.
func UUID(payload map[string]any, name string) (uuid.UUID, bool) {
	s, ok := payload[name].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Number returns a number or integer field.
func Number(payload map[string]any, name string) (float64, bool) {
	return toFloat(payload[name])
}

// Int returns an integer field.
func Int(payload map[string]any, name string) (int64, bool) {
	f, ok := toFloat(payload[name])
	if !ok {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}

// String returns a trimmed string or enum field.
func String(payload map[string]any, name string) (string, bool) {
	s, ok := payload[name].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Date returns a date field.
func Date(payload map[string]any, name string) (time.Time, bool) {
	s, ok := payload[name].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Bool returns a bool field; absent means false.
func Bool(payload map[string]any, name string) bool {
	b, _ := payload[name].(bool)
	return b
}
