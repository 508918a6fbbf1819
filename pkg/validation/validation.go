// Package validation checks action payloads against their declared fields.
// It never touches the store; every failure is a VALIDATION_FAILED client error.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// DateLayout is the only accepted format for date fields.
const DateLayout = "2006-01-02"

// MaxDecimalPlaces is the scale of the numeric columns number fields are stored in.
const MaxDecimalPlaces = 2

// Validate checks payload against def. Declared fields are checked in
// declaration order, then any undeclared key is rejected. The first failure
// is returned as an *apperrors.ActionError naming the field.
func Validate(def *models.ActionDefinition, payload map[string]any) error {
	for _, f := range def.Fields {
		value, present := payload[f.Name]
		if !present || isEmpty(value) {
			if f.Required {
				return apperrors.Validation(f.Name, "field is required")
			}
			continue
		}
		if err := checkField(f, value); err != nil {
			return err
		}
	}

	var unknown []string
	for key := range payload {
		if _, ok := def.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.Validation(unknown[0], "field is not accepted by this action")
	}
	return nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func checkField(f models.FieldSpec, value any) error {
	switch f.Type {
	case models.FieldUUID:
		s, ok := value.(string)
		if !ok {
			return apperrors.Validation(f.Name, "must be a UUID string")
		}
		if _, err := uuid.Parse(s); err != nil {
			return apperrors.Validation(f.Name, "must be a valid UUID")
		}

	case models.FieldNumber, models.FieldInteger:
		n, ok := toFloat(value)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return apperrors.Validation(f.Name, "must be a number")
		}
		if f.Type == models.FieldInteger && n != math.Trunc(n) {
			return apperrors.Validation(f.Name, "must be a whole number")
		}
		if f.Type == models.FieldNumber && decimalPlaces(n) > MaxDecimalPlaces {
			return apperrors.Validation(f.Name, fmt.Sprintf("must have at most %d decimal places", MaxDecimalPlaces))
		}
		if f.Min != nil && n < *f.Min {
			return apperrors.Validation(f.Name, fmt.Sprintf("must be at least %s", formatBound(*f.Min)))
		}
		if f.Max != nil && n > *f.Max {
			return apperrors.Validation(f.Name, fmt.Sprintf("must be at most %s", formatBound(*f.Max)))
		}

	case models.FieldEnum:
		s, ok := value.(string)
		if !ok || !contains(f.Values, s) {
			return apperrors.Validation(f.Name, "must be one of: "+strings.Join(f.Values, ", "))
		}

	case models.FieldString:
		s, ok := value.(string)
		if !ok {
			return apperrors.Validation(f.Name, "must be a string")
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return apperrors.Validation(f.Name, fmt.Sprintf("must be at most %d characters", f.MaxLength))
		}
		if f.FreeText {
			if result := CheckFreeText(f.Name, s); result != nil {
				err := apperrors.Validation(f.Name, "contains a disallowed pattern")
				err.Cause = result
				return err
			}
		}

	case models.FieldDate:
		s, ok := value.(string)
		if !ok {
			return apperrors.Validation(f.Name, "must be a date (YYYY-MM-DD)")
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return apperrors.Validation(f.Name, "must be a date (YYYY-MM-DD)")
		}

	case models.FieldBool:
		if _, ok := value.(bool); !ok {
			return apperrors.Validation(f.Name, "must be true or false")
		}

	default:
		return apperrors.Validation(f.Name, "has an unsupported type")
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func formatBound(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// decimalPlaces counts the fractional digits of n's shortest decimal form.
func decimalPlaces(n float64) int {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
