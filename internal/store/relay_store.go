// Package store implements the relay's in-memory message queue: a
// token-keyed, TTL-expiring, FIFO-capped set of queues with poll
// (non-destructive) and consume (destructive, atomic) semantics.
// Grounded on original_source/server/storage.py's MessageStorage and
// the teacher's own mutex-guarded connection map.
package store

import (
	"sync"
	"time"

	"ghostwire/internal/model"
)

// MaxTotalMessages is a global burst guard distinct from the
// per-token FIFO cap: spec.md §4.2's per-token cap quietly evicts the
// oldest message and always accepts the new one, but spec.md §7 also
// names a StoreOverloaded/503 condition for "per-token cap reached
// under bursty traffic" at a scale the per-token FIFO policy alone
// doesn't address (many distinct tokens flooding at once). This store
// treats that as a store-wide ceiling on live messages.
const MaxTotalMessages = 200000

// RelayStore is the single shared mutable resource behind the relay
// API. The zero value is not usable; construct with New.
type RelayStore struct {
	mu         sync.Mutex
	queues     map[string][]model.StoredMessage
	startedAt  time.Time
	totalCount int

	expiredSweptTotal int64
	nextMessageID     func() string
	now               func() time.Time
}

// ErrStoreOverloaded is returned by Put when the store-wide message
// ceiling has been reached.
var ErrStoreOverloaded = model.ErrStoreOverloaded

// Stats is the snapshot backing GET /api/v1/status.
type Stats struct {
	ActiveTokens      int
	TotalMessages     int
	ExpiredSweptTotal int64
	UptimeSeconds     int64
}

// New constructs an empty RelayStore.
func New() *RelayStore {
	return &RelayStore{
		queues:        make(map[string][]model.StoredMessage),
		startedAt:     time.Now(),
		nextMessageID: newMessageID,
		now:           time.Now,
	}
}

// Put validates-by-trust (the API layer validates shape), assigns a
// message_id, clamps ttl, and appends to token's queue, evicting the
// oldest message FIFO if the per-token cap is exceeded. It fails with
// ErrStoreOverloaded, never blocking or dropping silently, once the
// store-wide ceiling is reached.
func (s *RelayStore) Put(req model.SendRequest) (string, error) {
	id := s.nextMessageID()
	msg := model.StoredMessage{
		MessageID:       id,
		Token:           req.Token,
		Ciphertext:      req.Ciphertext,
		Nonce:           req.Nonce,
		SenderPublicKey: req.SenderPublicKey,
		SenderSignature: req.SenderSignature,
		ReceivedAt:      s.now(),
		TTL:             model.ClampTTL(req.TTL),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalCount >= MaxTotalMessages {
		return "", ErrStoreOverloaded
	}

	q := s.queues[req.Token]
	q = append(q, msg)
	s.totalCount++
	if len(q) > model.MaxQueueDepth {
		q = q[len(q)-model.MaxQueueDepth:]
		s.totalCount--
	}
	s.queues[req.Token] = q

	return id, nil
}

// Poll returns a snapshot of token's currently-live messages in
// arrival order, without modifying the store. Expired entries are
// filtered out and lazily dropped from the queue.
func (s *RelayStore) Poll(token string) []model.StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, expired := s.splitLive(s.queues[token])
	if expired > 0 {
		s.expiredSweptTotal += int64(expired)
		s.totalCount -= expired
	}
	if len(live) == 0 {
		delete(s.queues, token)
		return nil
	}
	s.queues[token] = live

	out := make([]model.StoredMessage, len(live))
	copy(out, live)
	return out
}

// Consume atomically returns and removes every currently-live message
// for token. Either all of them are returned and removed, or none are.
func (s *RelayStore) Consume(token string) []model.StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, expired := s.splitLive(s.queues[token])
	if expired > 0 {
		s.expiredSweptTotal += int64(expired)
		s.totalCount -= expired
	}
	s.totalCount -= len(live)
	delete(s.queues, token)
	return live
}

// splitLive partitions msgs into the currently-live subset, counting
// how many were dropped for having expired. Caller holds s.mu.
func (s *RelayStore) splitLive(msgs []model.StoredMessage) (live []model.StoredMessage, expiredCount int) {
	now := s.now()
	for i := range msgs {
		if msgs[i].Expired(now) {
			expiredCount++
			continue
		}
		live = append(live, msgs[i])
	}
	return live, expiredCount
}

// Stats reports store-wide counters. Never includes content.
func (s *RelayStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, q := range s.queues {
		total += len(q)
	}
	return Stats{
		ActiveTokens:      len(s.queues),
		TotalMessages:     total,
		ExpiredSweptTotal: s.expiredSweptTotal,
		UptimeSeconds:     int64(s.now().Sub(s.startedAt).Seconds()),
	}
}

// sweepOnce is the janitor's single pass: walk every token, drop
// expired messages, remove empty queues. It yields the lock between
// tokens so put/poll/consume are never blocked for more than one
// token's worth of work.
func (s *RelayStore) sweepOnce() {
	s.mu.Lock()
	tokens := make([]string, 0, len(s.queues))
	for t := range s.queues {
		tokens = append(tokens, t)
	}
	s.mu.Unlock()

	for _, token := range tokens {
		s.mu.Lock()
		msgs, ok := s.queues[token]
		if !ok {
			s.mu.Unlock()
			continue
		}
		live, expired := s.splitLive(msgs)
		if expired > 0 {
			s.expiredSweptTotal += int64(expired)
			s.totalCount -= expired
		}
		if len(live) == 0 {
			delete(s.queues, token)
		} else {
			s.queues[token] = live
		}
		s.mu.Unlock()
	}
}
