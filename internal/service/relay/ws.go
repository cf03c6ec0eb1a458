package relay

import (
	"net/http"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// handleStream is a courtesy push side-channel: a subscriber opens a
// WebSocket bound to a single token and receives each StoredMessageView
// as it is accepted by /api/v1/send, instead of polling. It is
// additive — closing it, or never opening it, changes nothing about
// poll/consume semantics or the store's invariants. Grounded on the
// teacher's HttpServer.HandleInitWS, generalized from a per-user
// single connection to a per-token connection set since several
// devices may watch the same routing token.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !model.IsValidHexKey(token) {
		http.Error(w, "token must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("stream upgrade failed", zap.Error(err))
		return
	}

	s.subscribe(token, conn)
	log.Info("stream subscribed", zap.String("token_prefix", tokenPrefix(token)))

	// Subscribers never send anything meaningful; read until the
	// connection closes so we notice disconnects and can clean up.
	go func() {
		defer s.unsubscribe(token, conn)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) subscribe(token string, conn *websocket.Conn) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers[token] = append(s.subscribers[token], conn)
}

func (s *Server) unsubscribe(token string, conn *websocket.Conn) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	conns := s.subscribers[token]
	for i, c := range conns {
		if c == conn {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(s.subscribers, token)
		return
	}
	s.subscribers[token] = conns
}

// publish best-effort pushes a just-accepted message to every live
// stream subscriber of token. A write failure just drops that
// subscriber; it never affects the send response, which has already
// succeeded against the store.
func (s *Server) publish(token, messageID string, req model.SendRequest, acceptedAt time.Time) {
	s.subMu.Lock()
	conns := append([]*websocket.Conn(nil), s.subscribers[token]...)
	s.subMu.Unlock()

	if len(conns) == 0 {
		return
	}

	view := model.StoredMessageView{
		MessageID:       messageID,
		Ciphertext:      req.Ciphertext,
		Nonce:           req.Nonce,
		SenderPublicKey: req.SenderPublicKey,
		SenderSignature: req.SenderSignature,
		ReceivedAt:      acceptedAt.Unix(),
		TTL:             req.TTL,
	}

	for _, c := range conns {
		if err := c.WriteJSON(view); err != nil {
			go s.unsubscribe(token, c)
		}
	}
}
