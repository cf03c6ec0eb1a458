package envelope

import (
	"bytes"
	"errors"
	"testing"

	"ghostwire/internal/cryptographic/dh"
	"ghostwire/internal/cryptographic/encryption"
	"ghostwire/internal/model"
)

func mustIdentity(t *testing.T) *model.Identity {
	t.Helper()
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	return id
}

func TestSealOpenRoundTrip(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)

	plaintext := []byte("hello")
	env, err := Seal(recipient.Pub, sender.Pub, nil, plaintext, model.DefaultTTLSeconds, nil)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if env.Token != DeriveToken(recipient.Pub) {
		t.Fatalf("token mismatch")
	}

	senderHex, got, verified, err := Open(recipient.Priv, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if senderHex != sender.PubHex() {
		t.Fatalf("sender mismatch: got %s want %s", senderHex, sender.PubHex())
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("plaintext mismatch: got %q want %q", got, plaintext)
	}
	if verified {
		t.Fatalf("expected verified=false when message was never signed")
	}
}

func TestOpenWrongKeyFails(t *testing.T) {
	recipient := mustIdentity(t)
	wrong := mustIdentity(t)
	sender := mustIdentity(t)

	env, err := Seal(recipient.Pub, sender.Pub, nil, []byte("secret"), model.DefaultTTLSeconds, nil)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, plain, _, err := Open(wrong.Priv, env)
	if !errors.Is(err, model.ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
	if plain != nil {
		t.Fatalf("expected no plaintext leaked on failure, got %q", plain)
	}
}

func TestDeriveTokenDeterministic(t *testing.T) {
	id := mustIdentity(t)
	if DeriveToken(id.Pub) != DeriveToken(id.Pub) {
		t.Fatalf("derive_token is not a pure function")
	}
}

func TestEphemeralDistinctness(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)

	const n = 1000
	senders := make(map[string]struct{}, n)
	ciphertexts := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		env, err := Seal(recipient.Pub, sender.Pub, nil, []byte("hello"), model.DefaultTTLSeconds, nil)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		senders[string(env.SenderPublicKey[:])] = struct{}{}
		ciphertexts[string(env.Ciphertext)] = struct{}{}
	}

	if len(senders) != n {
		t.Fatalf("expected %d distinct ephemeral keys, got %d", n, len(senders))
	}
	if len(ciphertexts) != n {
		t.Fatalf("expected %d distinct ciphertexts, got %d", n, len(ciphertexts))
	}
}

func TestMalformedInnerKeptAsUnknownSender(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)

	// Seal a payload whose "sender" prefix is not valid hex, by sealing
	// raw bytes directly rather than through Seal's normal prefixing.
	env, err := sealRaw(recipient.Pub, []byte("not-hex|payload"), model.DefaultTTLSeconds)
	if err != nil {
		t.Fatalf("sealRaw: %v", err)
	}
	_ = sender

	senderHex, got, verified, err := Open(recipient.Priv, env)
	if !errors.Is(err, model.ErrMalformedInner) {
		t.Fatalf("expected ErrMalformedInner, got %v", err)
	}
	if senderHex != model.UnknownSender {
		t.Fatalf("expected unknown sender, got %q", senderHex)
	}
	if string(got) != "not-hex|payload" {
		t.Fatalf("expected raw inner returned, got %q", got)
	}
	if verified {
		t.Fatalf("expected verified=false on malformed inner")
	}
}

func TestSignedMessageVerifies(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)

	env, err := Seal(recipient.Pub, sender.Pub, sender.SignPub, []byte("hello"), model.DefaultTTLSeconds, sender.SignPriv)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(env.SenderSignature) == 0 {
		t.Fatalf("expected non-empty SenderSignature")
	}

	senderHex, got, verified, err := Open(recipient.Priv, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if senderHex != sender.PubHex() {
		t.Fatalf("sender mismatch: got %s want %s", senderHex, sender.PubHex())
	}
	if string(got) != "hello" {
		t.Fatalf("plaintext mismatch: got %q", got)
	}
	if !verified {
		t.Fatalf("expected a correctly signed message to verify")
	}
}

func TestSignedMessageTamperedCiphertextFailsClosed(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)

	env, err := Seal(recipient.Pub, sender.Pub, sender.SignPub, []byte("hello"), model.DefaultTTLSeconds, sender.SignPriv)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	env.Ciphertext[0] ^= 0xFF

	_, _, _, err = Open(recipient.Priv, env)
	if !errors.Is(err, model.ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed on tampered ciphertext, got %v", err)
	}
}

func TestSignatureFromWrongKeyDoesNotVerify(t *testing.T) {
	recipient := mustIdentity(t)
	sender := mustIdentity(t)
	impostor := mustIdentity(t)

	// sender signs, but claims impostor's signing key as their own.
	env, err := Seal(recipient.Pub, sender.Pub, impostor.SignPub, []byte("hello"), model.DefaultTTLSeconds, sender.SignPriv)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, _, verified, err := Open(recipient.Priv, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if verified {
		t.Fatalf("expected verified=false when the embedded signing key doesn't match the signer")
	}
}

// sealRaw seals inner verbatim (bypassing the normal sender-prefixing
// in Seal) so malformed-inner tests can construct a crafted payload.
func sealRaw(recipientPub [32]byte, inner []byte, ttl int) (*model.Envelope, error) {
	ePriv, ePub, err := dh.NewX25519KeyPair()
	if err != nil {
		return nil, err
	}
	defer dh.Zero(&ePriv)

	nonce, err := encryption.NewNonce()
	if err != nil {
		return nil, err
	}
	key, err := sealKey(ePriv, recipientPub)
	if err != nil {
		return nil, err
	}
	ciphertext, err := encryption.BoxSeal(key, nonce[:], inner, nil)
	if err != nil {
		return nil, err
	}
	return &model.Envelope{
		Token:           DeriveToken(recipientPub),
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		SenderPublicKey: ePub,
		TTL:             ttl,
	}, nil
}
