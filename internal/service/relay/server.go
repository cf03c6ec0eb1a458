// Package relay implements the zero-knowledge relay's HTTP/WS
// surface: send/poll/consume/status/health, request validation, the
// rate-limit hook, and privacy-preserving logging. Grounded on the
// teacher's internal/service/server.HttpServer (gorilla/mux routing,
// a mutex-guarded connection map for the streaming side-channel).
package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ghostwire/internal/service/ratelimit"
	"ghostwire/internal/store"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// RequestTimeout is the default server-side wall-clock timeout for
// API requests, per spec.md §5.
const RequestTimeout = 10 * time.Second

// Server is the relay's HTTP server: a RelayStore, a rate limiter
// hook, and the set of live streaming subscribers.
type Server struct {
	store   *store.RelayStore
	limiter ratelimit.Limiter

	startedAt time.Time

	subMu       sync.Mutex
	subscribers map[string][]*websocket.Conn

	upgrader websocket.Upgrader
}

// New constructs a relay Server. A nil limiter defaults to a no-op.
func New(st *store.RelayStore, limiter ratelimit.Limiter) *Server {
	if limiter == nil {
		limiter = ratelimit.NoOp{}
	}
	return &Server{
		store:       st,
		limiter:     limiter,
		startedAt:   time.Now(),
		subscribers: make(map[string][]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gorilla/mux router exposing every endpoint from
// spec.md §6 plus the streaming side-channel of SPEC_FULL.md §4.3.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/send", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/poll", s.handlePoll).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/consume", s.handleConsume).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/stream", s.handleStream).Methods(http.MethodGet)

	return r
}

// withTimeout bounds a handler's context-aware calls (the rate-limiter
// check in handleSend) to RequestTimeout.
func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, RequestTimeout)
}
