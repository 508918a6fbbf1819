package services

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// SignatureKey is the payload key carrying the envelope of a SIGNED action.
const SignatureKey = "signature"

// signatureHashLen is the hex length of a SHA-256 digest.
const signatureHashLen = 64

// envelopeFields in the order they are checked.
var envelopeFields = []string{"timestamp", "signer_id", "signer_role", "signature_type", "signature_hash"}

// SignatureVerifier checks the envelope of SIGNED actions.
//
// The envelope's signer_role records the role at signing time and is only
// checked to be a known role. Current authorization is ROLE_CHECK's job.
type SignatureVerifier struct {
	maxAge    time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewSignatureVerifier creates a verifier. maxAge of zero disables the age check.
func NewSignatureVerifier(maxAge, clockSkew time.Duration) *SignatureVerifier {
	return &SignatureVerifier{maxAge: maxAge, clockSkew: clockSkew, now: time.Now}
}

// Verify parses raw (the payload's "signature" value) into an envelope.
// A missing envelope is SIGNATURE_REQUIRED; anything else wrong is SIGNATURE_INVALID.
func (v *SignatureVerifier) Verify(raw any, caller models.Caller) (*models.SignatureEnvelope, error) {
	if raw == nil {
		return nil, apperrors.SignatureRequired()
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperrors.SignatureInvalid("", "signature must be an object")
	}

	values := make(map[string]string, len(envelopeFields))
	for _, name := range envelopeFields {
		s, ok := obj[name].(string)
		if !ok || s == "" {
			return nil, apperrors.SignatureInvalid(name, name+" is required")
		}
		values[name] = s
	}

	var unknown []string
	for k := range obj {
		if _, ok := values[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperrors.SignatureInvalid(unknown[0], "field is not part of a signature envelope")
	}

	env := &models.SignatureEnvelope{
		Timestamp:     values["timestamp"],
		SignerID:      values["signer_id"],
		SignerRole:    values["signer_role"],
		SignatureType: values["signature_type"],
		SignatureHash: values["signature_hash"],
	}

	if err := v.checkTimestamp(env.Timestamp); err != nil {
		return nil, err
	}
	signer, err := uuid.Parse(env.SignerID)
	if err != nil {
		return nil, apperrors.SignatureInvalid("signer_id", "signer_id must be a UUID")
	}
	if signer != caller.UserID {
		return nil, apperrors.SignatureInvalid("signer_id", "signer does not match the caller")
	}
	if !models.IsValidRole(env.SignerRole) {
		return nil, apperrors.SignatureInvalid("signer_role", "signer_role is not a known role")
	}
	if !isValidSignatureType(env.SignatureType) {
		return nil, apperrors.SignatureInvalid("signature_type", "signature_type is not supported")
	}
	if len(env.SignatureHash) != signatureHashLen {
		return nil, apperrors.SignatureInvalid("signature_hash", fmt.Sprintf("signature_hash must be %d hex characters", signatureHashLen))
	}
	if _, err := hex.DecodeString(env.SignatureHash); err != nil {
		return nil, apperrors.SignatureInvalid("signature_hash", "signature_hash must be hex encoded")
	}
	return env, nil
}

func (v *SignatureVerifier) checkTimestamp(value string) error {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return apperrors.SignatureInvalid("timestamp", "timestamp must be RFC 3339")
	}
	now := v.now()
	if ts.After(now.Add(v.clockSkew)) {
		return apperrors.SignatureInvalid("timestamp", "timestamp is in the future")
	}
	if v.maxAge > 0 && now.Sub(ts) > v.maxAge {
		return apperrors.SignatureInvalid("timestamp", "signature has expired")
	}
	return nil
}

func isValidSignatureType(t string) bool {
	for _, v := range models.ValidSignatureTypes {
		if v == t {
			return true
		}
	}
	return false
}
