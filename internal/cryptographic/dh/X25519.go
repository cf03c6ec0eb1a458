package dh

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// NewX25519KeyPair generates a fresh Curve25519 key pair.
func NewX25519KeyPair() (priv, pub [32]byte, err error) {
	_, err = rand.Read(priv[:])
	if err != nil {
		return priv, pub, fmt.Errorf("failed to generate private key: %w", err)
	}
	curve25519.ScalarBaseMult(&pub, &priv)
	return priv, pub, nil
}

// X25519SharedSecret performs the DH scalar multiplication priv * pub.
func X25519SharedSecret(priv, pub [32]byte) ([]byte, error) {
	return curve25519.X25519(priv[:], pub[:])
}

// Zero overwrites a private key buffer in place. Call after its last use.
func Zero(priv *[32]byte) {
	for i := range priv {
		priv[i] = 0
	}
}
