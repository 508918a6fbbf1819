// Package testhelpers provides utilities for testing bosun-engine components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
)

// GenerateTestJWT creates a test JWT token for use when verification is disabled.
// The token has a valid structure but no signature (alg: none).
func GenerateTestJWT(sub, yachtID, role string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s","aud":"bosun-engine"`, sub)
	if yachtID != "" {
		payload += fmt.Sprintf(`,"yid":"%s"`, yachtID)
	}
	if role != "" {
		payload += fmt.Sprintf(`,"role":"%s"`, role)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, yachtID, role string) string {
	return "Bearer " + GenerateTestJWT(sub, yachtID, role)
}
