// Package envelope implements the client-side crypto envelope:
// seal/open for one message at a time, with a fresh ephemeral key
// pair per send. There is no session or ratchet state — every call
// is self-contained, per spec.md §4.1.
package envelope

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ghostwire/internal/cryptographic/dh"
	"ghostwire/internal/cryptographic/encryption"
	"ghostwire/internal/cryptographic/kdf"
	"ghostwire/internal/cryptographic/signature"
	"ghostwire/internal/model"
)

const hkdfInfo = "ghostwire-envelope-v1"

// GenerateIdentity produces a fresh long-term identity: an X25519
// encryption keypair and an Ed25519 signing keypair.
func GenerateIdentity() (*model.Identity, error) {
	priv, pub, err := dh.NewX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	signPub, signPriv, err := signature.NewEd25519Keypair()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return &model.Identity{
		Priv:     priv,
		Pub:      pub,
		SignPriv: signPriv,
		SignPub:  signPub,
	}, nil
}

// DeriveToken computes the relay routing token for a recipient's
// long-term public key: SHA-256, hex-encoded lowercase.
func DeriveToken(pub [32]byte) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:])
}

// Seal builds the envelope sending plaintext to recipientPub, claiming
// selfPub as the real sender inside the encrypted inner plaintext —
// that "senderHex|message" layout is spec.md §3's inner plaintext,
// unchanged. If signPriv is non-nil it additionally signs that base
// inner plaintext and attaches the result as SenderSignature. If
// selfSignPub is a 32-byte Ed25519 public key it is appended as a
// third pipe-delimited field inside the same encrypted inner plaintext
// (whether or not signPriv is given), so a recipient who receives a
// signature also receives a key to check it against — without the relay, which never sees plaintext, ever
// learning who signed what.
func Seal(recipientPub, selfPub [32]byte, selfSignPub []byte, plaintext []byte, ttl int, signPriv ed25519.PrivateKey) (*model.Envelope, error) {
	ePriv, ePub, err := dh.NewX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	defer dh.Zero(&ePriv)

	baseInner := make([]byte, 0, 64+1+len(plaintext))
	baseInner = append(baseInner, []byte(hex.EncodeToString(selfPub[:]))...)
	baseInner = append(baseInner, '|')
	baseInner = append(baseInner, plaintext...)

	var sig []byte
	if signPriv != nil {
		sig = signature.ED25519Sign(signPriv, baseInner)
	}

	inner := baseInner
	if len(selfSignPub) == ed25519.PublicKeySize {
		inner = append(baseInner, '|')
		inner = append(inner, []byte(hex.EncodeToString(selfSignPub))...)
	}

	nonce, err := encryption.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	key, err := sealKey(ePriv, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	ciphertext, err := encryption.BoxSeal(key, nonce[:], inner, nil)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	env := &model.Envelope{
		Token:           DeriveToken(recipientPub),
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		SenderPublicKey: ePub,
		TTL:             ttl,
		SenderSignature: sig,
	}
	return env, nil
}

// Open decrypts env with selfPriv, returning the claimed sender's hex
// public key, the message payload, and whether an attached
// SenderSignature verified against a signing key carried in the same
// inner plaintext. verified is only meaningful when env.SenderSignature
// is non-empty; callers label a message "claimed" vs "verified"
// accordingly.
//
// A malformed sender prefix is recoverable: the whole inner plaintext
// is returned verbatim with sender == model.UnknownSender and a
// non-nil model.ErrMalformedInner. An AEAD authentication failure
// returns model.ErrDecryptionFailed and no plaintext.
func Open(selfPriv [32]byte, env *model.Envelope) (senderHex string, plaintext []byte, verified bool, err error) {
	key, err := sealKey(selfPriv, env.SenderPublicKey)
	if err != nil {
		return "", nil, false, fmt.Errorf("open: %w", err)
	}

	inner, err := encryption.BoxOpen(key, env.Nonce[:], env.Ciphertext, nil)
	if err != nil {
		return "", nil, false, model.ErrDecryptionFailed
	}

	idx := bytes.IndexByte(inner, '|')
	if idx != 64 || !model.IsValidHexKey(string(inner[:64])) {
		return model.UnknownSender, inner, false, model.ErrMalformedInner
	}
	senderHex = strings.ToLower(string(inner[:64]))
	rest := inner[idx+1:]

	message := rest
	var signPubHex string
	if idx2 := bytes.LastIndexByte(rest, '|'); idx2 >= 0 && model.IsValidHexKey(string(rest[idx2+1:])) {
		signPubHex = string(rest[idx2+1:])
		message = rest[:idx2]
	}

	if len(env.SenderSignature) > 0 && signPubHex != "" {
		if signPub, decErr := hex.DecodeString(signPubHex); decErr == nil {
			baseInner := make([]byte, 0, 64+1+len(message))
			baseInner = append(baseInner, []byte(senderHex)...)
			baseInner = append(baseInner, '|')
			baseInner = append(baseInner, message...)
			verified = VerifySignature(signPub, baseInner, env.SenderSignature)
		}
	}

	return senderHex, message, verified, nil
}

// VerifySignature reports whether sig is a valid Ed25519 signature by
// signPub over msg.
func VerifySignature(signPub ed25519.PublicKey, msg, sig []byte) bool {
	if len(sig) == 0 || len(signPub) != ed25519.PublicKeySize {
		return false
	}
	return signature.ED25519Verify(signPub, msg, sig)
}

// sealKey derives the symmetric AEAD key shared between a DH private
// half and the counterpart's public half.
func sealKey(priv, pub [32]byte) ([]byte, error) {
	shared, err := dh.X25519SharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 32)
	if _, err := kdf.HKDF(shared, nil, []byte(hkdfInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}
