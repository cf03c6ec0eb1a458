package model

import "time"

const (
	// MinTTLSeconds and MaxTTLSeconds bound the client-supplied ttl.
	// Out-of-range values are clamped at the store boundary, not rejected.
	MinTTLSeconds = 60
	MaxTTLSeconds = 86400

	// DefaultTTLSeconds is used when the caller omits ttl entirely.
	DefaultTTLSeconds = 3600

	// MaxQueueDepth is the soft per-token cap enforced by the relay
	// store; the oldest message is evicted FIFO once exceeded.
	MaxQueueDepth = 1000
)

// ClampTTL enforces [MinTTLSeconds, MaxTTLSeconds] on a client-supplied
// ttl, per spec.md §4.2's TTL policy.
func ClampTTL(ttl int) int {
	switch {
	case ttl < MinTTLSeconds:
		return MinTTLSeconds
	case ttl > MaxTTLSeconds:
		return MaxTTLSeconds
	default:
		return ttl
	}
}

// Envelope is the client-side sealed message produced by
// protocol/envelope.Seal, before hex-encoding for the wire. Ciphertext
// already carries the AEAD tag; Nonce is exactly 24 bytes.
type Envelope struct {
	Token           string
	Ciphertext      []byte
	Nonce           [24]byte
	SenderPublicKey [32]byte
	TTL             int

	// SenderSignature is an optional Ed25519 signature over the inner
	// plaintext (the decrypted "senderHex|message" pair, before the
	// signing public key is appended to it) by the real sender's
	// signing identity. Nil when the sender declined to sign.
	SenderSignature []byte
}

// SendRequest is the validated POST /api/v1/send body.
type SendRequest struct {
	Token           string `json:"token"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	TTL             int    `json:"ttl"`
	SenderSignature string `json:"sender_signature,omitempty"`
}

// SendResponse is returned on a successful send.
type SendResponse struct {
	MessageID  string `json:"message_id"`
	AcceptedAt int64  `json:"accepted_at"`
}

// TokenRequest is the POST /api/v1/poll and /api/v1/consume body.
type TokenRequest struct {
	Token string `json:"token"`
}

// StoredMessage is an envelope as held by the relay store, with
// server-assigned bookkeeping fields attached.
type StoredMessage struct {
	MessageID       string
	Token           string
	Ciphertext      string
	Nonce           string
	SenderPublicKey string
	SenderSignature string
	ReceivedAt      time.Time
	TTL             int
}

// ExpiresAt is the instant after which the message must no longer be
// returned by poll/consume.
func (m *StoredMessage) ExpiresAt() time.Time {
	return m.ReceivedAt.Add(time.Duration(m.TTL) * time.Second)
}

// Expired reports whether m has outlived its ttl as of now.
func (m *StoredMessage) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt())
}

// View renders the wire-facing projection of a stored message.
func (m *StoredMessage) View() StoredMessageView {
	return StoredMessageView{
		MessageID:       m.MessageID,
		Ciphertext:      m.Ciphertext,
		Nonce:           m.Nonce,
		SenderPublicKey: m.SenderPublicKey,
		SenderSignature: m.SenderSignature,
		ReceivedAt:      m.ReceivedAt.Unix(),
		TTL:             m.TTL,
	}
}

// StoredMessageView is the wire shape returned by poll/consume.
type StoredMessageView struct {
	MessageID       string `json:"message_id"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	SenderSignature string `json:"sender_signature,omitempty"`
	ReceivedAt      int64  `json:"received_at"`
	TTL             int    `json:"ttl"`
}

// MessagesResponse is the poll/consume response envelope.
type MessagesResponse struct {
	Messages []StoredMessageView `json:"messages"`
	Count    int                 `json:"count"`
}

// StatusResponse backs GET /api/v1/status. It never includes content.
type StatusResponse struct {
	ActiveTokens  int   `json:"active_tokens"`
	TotalMessages int   `json:"total_messages"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// RootResponse backs GET /.
type RootResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// HealthResponse backs GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
