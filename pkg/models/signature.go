package models

// Signature types accepted on SIGNED actions.
const (
	SignatureTypePIN       = "pin"
	SignatureTypePINTOTP   = "pin_totp"
	SignatureTypeBiometric = "biometric"
)

// ValidSignatureTypes contains all valid signature type values.
var ValidSignatureTypes = []string{SignatureTypePIN, SignatureTypePINTOTP, SignatureTypeBiometric}

// SignatureEnvelope is the proof of consent attached to a SIGNED action.
// All five fields are required; none are ever defaulted.
type SignatureEnvelope struct {
	Timestamp     string `json:"timestamp"`
	SignerID      string `json:"signer_id"`
	SignerRole    string `json:"signer_role"`
	SignatureType string `json:"signature_type"`
	SignatureHash string `json:"signature_hash"`
}
