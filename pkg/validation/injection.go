package validation

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a free-text value that matched a SQL
// injection pattern. It is attached as the Cause of the validation error so
// the dispatcher can report the attempt to the security audit log.
type InjectionCheckResult struct {
	Field       string
	Fingerprint string
}

func (r *InjectionCheckResult) Error() string {
	return fmt.Sprintf("sql injection pattern in field %q (fingerprint %s)", r.Field, r.Fingerprint)
}

// CheckFreeText uses libinjection to detect SQL injection patterns in a
// free-text field value. Returns nil when the value is clean.
//
//	CheckFreeText("note", "replaced impeller, checked seals")  // nil
//	CheckFreeText("note", "'; DROP TABLE pms_parts--")          // fingerprint "s;T(c" or similar
func CheckFreeText(field, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{Field: field, Fingerprint: string(fingerprint)}
}
