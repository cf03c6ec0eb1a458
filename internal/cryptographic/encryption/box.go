// Package encryption implements the sender-authenticated box
// construction used by the envelope protocol: an X25519 shared
// secret, run through HKDF to a symmetric key, sealed with
// XChaCha20-Poly1305. The extended nonce (24 bytes) is what spec.md
// fixes for the wire nonce field, which AES-GCM's 12-byte nonce
// cannot satisfy directly.
package encryption

import (
	"crypto/rand"
	"fmt"
	"io"

	"ghostwire/internal/model"

	"golang.org/x/crypto/chacha20poly1305"
)

var errDecryptionFailed = model.ErrDecryptionFailed

// NonceSize is the XChaCha20-Poly1305 nonce length.
const NonceSize = chacha20poly1305.NonceSizeX

// NewNonce returns a fresh random 24-byte nonce.
func NewNonce() ([24]byte, error) {
	var nonce [24]byte
	_, err := io.ReadFull(rand.Reader, nonce[:])
	return nonce, err
}

// BoxSeal authenticated-encrypts plaintext under key with the given
// nonce and associated data. key must be 32 bytes.
func BoxSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// BoxOpen authenticated-decrypts ciphertext under key with the given
// nonce and associated data, returning model.ErrDecryptionFailed on
// an authentication tag mismatch.
func BoxOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, errDecryptionFailed
	}
	return plain, nil
}
