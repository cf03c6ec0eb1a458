package relay

import (
	"encoding/base64"
	"encoding/hex"

	"ghostwire/internal/model"
)

// decodeBinary tries base64 first, then hex, since spec.md §3 leaves
// the wire encoding of ciphertext/nonce to the implementation as long
// as it is fixed; both are accepted on read so clients following
// either convention interoperate, and errors surface as a single
// field-level ValidationError either way.
func decodeBinary(s string) ([]byte, bool) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}

// validateSendRequest enforces the rules of spec.md §6 before the
// store is ever touched.
func validateSendRequest(req model.SendRequest) *model.ValidationError {
	if !model.IsValidHexKey(req.Token) {
		return model.NewValidationError("token", "must be 64 lowercase hex characters")
	}
	if !model.IsValidHexKey(req.SenderPublicKey) {
		return model.NewValidationError("sender_public_key", "must be 64 lowercase hex characters")
	}
	ct, ok := decodeBinary(req.Ciphertext)
	if !ok || len(ct) == 0 {
		return model.NewValidationError("ciphertext", "must be non-empty base64 or hex")
	}
	nonce, ok := decodeBinary(req.Nonce)
	if !ok || len(nonce) != 24 {
		return model.NewValidationError("nonce", "must decode to exactly 24 bytes")
	}
	if req.TTL < 0 {
		return model.NewValidationError("ttl", "must be a non-negative integer")
	}
	return nil
}

// validateTokenRequest enforces the token shape rule for poll/consume.
func validateTokenRequest(token string) *model.ValidationError {
	if !model.IsValidHexKey(token) {
		return model.NewValidationError("token", "must be 64 lowercase hex characters")
	}
	return nil
}
