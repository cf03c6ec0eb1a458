package store

import (
	"crypto/rand"
	"encoding/hex"
)

// newMessageID returns an opaque, unique 128-bit hex identifier.
func newMessageID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand on a supported platform does not fail in
		// practice; a zero ID is distinguishable and non-fatal here.
		return hex.EncodeToString(b[:])
	}
	return hex.EncodeToString(b[:])
}
