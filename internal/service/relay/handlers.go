package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/model"

	"go.uber.org/zap"
)

const serverName = "ghostwire relay"
const serverVersion = "1.0.0"
const serverDescription = "zero-knowledge relay for end-to-end encrypted messaging"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.RootResponse{
		Name:        serverName,
		Version:     serverVersion,
		Description: serverDescription,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, model.StatusResponse{
		ActiveTokens:  stats.ActiveTokens,
		TotalMessages: stats.TotalMessages,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// rawSendRequest mirrors model.SendRequest but keeps TTL as a pointer
// so an omitted field (nil) can be distinguished from an explicit 0,
// per spec.md §3's "ttl ... default 3600" vs "clamped, not rejected".
type rawSendRequest struct {
	Token           string `json:"token"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	TTL             *int   `json:"ttl"`
	SenderSignature string `json:"sender_signature,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	allowed, err := s.limiter.Allow(ctx, clientKey(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "rate limited", "")
		return
	}

	var raw rawSendRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", "")
		return
	}

	ttl := model.DefaultTTLSeconds
	if raw.TTL != nil {
		ttl = *raw.TTL
	}

	req := model.SendRequest{
		Token:           raw.Token,
		Ciphertext:      raw.Ciphertext,
		Nonce:           raw.Nonce,
		SenderPublicKey: raw.SenderPublicKey,
		TTL:             ttl,
		SenderSignature: raw.SenderSignature,
	}

	if verr := validateSendRequest(req); verr != nil {
		log.Info("send rejected", zap.String("field", verr.Field))
		writeError(w, http.StatusBadRequest, verr.Message, verr.Field)
		return
	}
	req.TTL = model.ClampTTL(req.TTL)

	id, err := s.store.Put(req)
	if err != nil {
		log.Error("send rejected", zap.String("token_prefix", tokenPrefix(req.Token)), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "relay store is overloaded, try again later", "")
		return
	}
	acceptedAt := time.Now()

	log.Info("send accepted",
		zap.String("endpoint", "/api/v1/send"),
		zap.String("token_prefix", tokenPrefix(req.Token)),
		zap.Int("status", http.StatusOK),
	)

	s.publish(req.Token, id, req, acceptedAt)

	writeJSON(w, http.StatusOK, model.SendResponse{
		MessageID:  id,
		AcceptedAt: acceptedAt.Unix(),
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	s.handleTokenRequest(w, r, "/api/v1/poll", s.store.Poll)
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	s.handleTokenRequest(w, r, "/api/v1/consume", s.store.Consume)
}

func (s *Server) handleTokenRequest(w http.ResponseWriter, r *http.Request, endpoint string, fn func(string) []model.StoredMessage) {
	var req model.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", "")
		return
	}

	if verr := validateTokenRequest(req.Token); verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message, verr.Field)
		return
	}

	msgs := fn(req.Token)

	views := make([]model.StoredMessageView, len(msgs))
	for i, m := range msgs {
		views[i] = m.View()
	}

	log.Info("token request",
		zap.String("endpoint", endpoint),
		zap.String("token_prefix", tokenPrefix(req.Token)),
		zap.Int("status", http.StatusOK),
		zap.Int("count", len(views)),
	)

	writeJSON(w, http.StatusOK, model.MessagesResponse{Messages: views, Count: len(views)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	body := map[string]string{"error": message}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}

// tokenPrefix is the only token fragment the relay is ever allowed to
// log, per spec.md §4.3's privacy invariant.
func tokenPrefix(token string) string {
	if len(token) < 8 {
		return token
	}
	return token[:8]
}

// clientKey identifies a caller for rate-limiting purposes. It never
// touches message content.
func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
