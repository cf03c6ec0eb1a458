package app

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"ghostwire/internal/model"
	"ghostwire/internal/protocol/envelope"
)

// SendMessage seals msg to the peer identity and posts it to the
// relay, then appends the outbound line to local history. Grounded
// on the teacher's App.SendMessage, replacing the Double Ratchet
// Send call with a stateless Seal per spec.md §4.1.
func (a *App) SendMessage(ctx context.Context, msg string) error {
	env, err := envelope.Seal(a.peerPub, a.identity.Pub, a.identity.SignPub, []byte(msg), model.DefaultTTLSeconds, a.signingKey())
	if err != nil {
		return fmt.Errorf("app: seal: %w", err)
	}

	req := model.SendRequest{
		Token:           env.Token,
		Ciphertext:      base64.StdEncoding.EncodeToString(env.Ciphertext),
		Nonce:           base64.StdEncoding.EncodeToString(env.Nonce[:]),
		SenderPublicKey: hex.EncodeToString(env.SenderPublicKey[:]),
		TTL:             env.TTL,
	}
	if len(env.SenderSignature) > 0 {
		req.SenderSignature = base64.StdEncoding.EncodeToString(env.SenderSignature)
	}

	if _, err := a.relay.Send(ctx, req); err != nil {
		return fmt.Errorf("app: send: %w", err)
	}

	chatMsg := model.ChatMessage{
		Direction: model.Outbound,
		Timestamp: time.Now(),
		Text:      msg,
	}
	if err := a.convRepo.Append(ctx, a.identity.PubHex(), a.peerHex, chatMsg); err != nil {
		return fmt.Errorf("app: append history: %w", err)
	}

	a.tui.QueueUpdateDraw(func() {
		fmt.Fprintf(a.chatbox, "[yellow]You:[-] %s\n", msg)
		a.input.SetText("")
		a.chatbox.ScrollToEnd()
	})
	return nil
}
