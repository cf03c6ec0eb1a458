package model

import "errors"

// Crypto envelope errors (spec.md §4.1, §7).
var (
	// ErrInvalidKey marks a key of the wrong length or encoding.
	ErrInvalidKey = errors.New("invalid key")

	// ErrDecryptionFailed marks an AEAD authentication failure.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrMalformedInner is recoverable: the message is still returned,
	// with sender reported as "unknown".
	ErrMalformedInner = errors.New("malformed inner plaintext")
)

// Relay API errors (spec.md §7).
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrStoreOverloaded = errors.New("store overloaded")
)

// UnknownSender is the label used when the inner plaintext's sender
// prefix does not parse as 64 hex chars.
const UnknownSender = "unknown"

// ValidationError is a structured 400 carrying the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
