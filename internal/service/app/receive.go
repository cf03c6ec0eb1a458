package app

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/model"
	"ghostwire/internal/protocol/envelope"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// connectStream opens the courtesy WebSocket subscription for the
// local token; a failure here is non-fatal since pollLoop still
// covers delivery, per SPEC_FULL.md §4.3's "additive, not a
// replacement delivery path."
func (a *App) connectStream() {
	conn, err := a.relay.Stream(a.selfToken)
	if err != nil {
		log.Debug("stream unavailable, falling back to poll", zap.Error(err))
		return
	}
	a.stream = conn
	go a.listenStream(conn)
}

func (a *App) listenStream(conn *websocket.Conn) {
	for {
		var view model.StoredMessageView
		if err := conn.ReadJSON(&view); err != nil {
			log.Debug("stream closed", zap.Error(err))
			return
		}
		a.handleView(view)
	}
}

// pollLoop is the delivery path guaranteed by spec.md §4.2/§6: poll
// is non-destructive, so this consumes instead, matching the
// teacher's single-path webhook consumption model but over HTTP.
func (a *App) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := a.relay.Consume(ctx, a.selfToken)
			if err != nil {
				log.Debug("poll failed", zap.Error(err))
				continue
			}
			for _, view := range resp.Messages {
				a.handleView(view)
			}
		}
	}
}

func (a *App) handleView(view model.StoredMessageView) {
	ciphertext, ok := decodeBinary(view.Ciphertext)
	if !ok {
		log.Error("undeliverable from ephemeral key: bad ciphertext encoding", zap.String("sender_prefix", prefix8(view.SenderPublicKey)))
		return
	}
	nonceBytes, ok := decodeBinary(view.Nonce)
	if !ok || len(nonceBytes) != 24 {
		log.Error("undeliverable from ephemeral key: bad nonce", zap.String("sender_prefix", prefix8(view.SenderPublicKey)))
		return
	}
	senderPub, err := model.DecodeHexKey(view.SenderPublicKey)
	if err != nil {
		log.Error("undeliverable: bad ephemeral sender key", zap.Error(err))
		return
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	env := &model.Envelope{
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		SenderPublicKey: senderPub,
	}
	if sig, ok := decodeBinary(view.SenderSignature); ok {
		env.SenderSignature = sig
	}

	senderHex, plaintext, verified, err := envelope.Open(a.identity.Priv, env)
	if err != nil && errors.Is(err, model.ErrDecryptionFailed) {
		log.Info(fmt.Sprintf("undeliverable from %s", prefix8(view.SenderPublicKey)))
		return
	}
	// ErrMalformedInner is recoverable: plaintext is still shown.

	chatMsg := model.ChatMessage{
		Direction:         model.Inbound,
		Timestamp:         time.Now(),
		Text:              string(plaintext),
		Sender:            senderHex,
		SignatureVerified: verified,
	}

	if err := a.convRepo.Append(context.Background(), a.identity.PubHex(), senderHex, chatMsg); err != nil {
		log.Error("append history failed", zap.Error(err))
	}

	a.tui.QueueUpdateDraw(func() {
		label := senderHex
		if len(label) > 8 {
			label = label[:8]
		}
		trust := "claimed"
		if chatMsg.SignatureVerified {
			trust = "verified"
		}
		fmt.Fprintf(a.chatbox, "[green]%s (%s):[-] %s\n", label, trust, chatMsg.Text)
		a.chatbox.ScrollToEnd()
	})
}

func prefix8(s string) string {
	if len(s) < 8 {
		return s
	}
	return s[:8]
}

// decodeBinary tries base64 first, then hex, mirroring the relay's
// own acceptance of either wire encoding.
func decodeBinary(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}
