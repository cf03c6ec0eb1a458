package store

import (
	"strings"
	"testing"
	"time"

	"ghostwire/internal/model"
)

func fakeClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time { return t }
}

func newTestStore(clock func() time.Time) *RelayStore {
	s := New()
	s.now = clock
	return s
}

func sendReq(token string) model.SendRequest {
	return model.SendRequest{
		Token:           token,
		Ciphertext:      "cc",
		Nonce:           "nn",
		SenderPublicKey: strings.Repeat("a", 64),
		TTL:             model.DefaultTTLSeconds,
	}
}

func mustPut(t *testing.T, s *RelayStore, req model.SendRequest) string {
	t.Helper()
	id, err := s.Put(req)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return id
}

func TestPutPollArrivalOrder(t *testing.T) {
	s := New()
	const token = "tok"

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := s.Put(sendReq(token))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, id)
	}

	got := s.Poll(token)
	if len(got) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(got))
	}
	for i, m := range got {
		if m.MessageID != ids[i] {
			t.Fatalf("arrival order violated at index %d", i)
		}
	}
}

func TestConsumeRemoves(t *testing.T) {
	s := New()
	const token = "tok"

	mustPut(t, s, sendReq(token))
	mustPut(t, s, sendReq(token))
	mustPut(t, s, sendReq(token))

	consumed := s.Consume(token)
	if len(consumed) != 3 {
		t.Fatalf("expected 3 consumed, got %d", len(consumed))
	}

	remaining := s.Poll(token)
	if len(remaining) != 0 {
		t.Fatalf("expected empty queue after consume, got %d", len(remaining))
	}
}

func TestTTLExpiration(t *testing.T) {
	start := time.Now()
	clock := fakeClock(start)
	s := newTestStore(clock)

	const token = "tok"
	req := sendReq(token)
	req.TTL = 60
	mustPut(t, s, req)

	// advance 59s: still live
	clock = fakeClock(start.Add(59 * time.Second))
	s.now = clock
	if got := s.Poll(token); len(got) != 1 {
		t.Fatalf("expected 1 live message at 59s, got %d", len(got))
	}

	// advance 61s: expired
	clock = fakeClock(start.Add(61 * time.Second))
	s.now = clock
	if got := s.Poll(token); len(got) != 0 {
		t.Fatalf("expected 0 live messages at 61s, got %d", len(got))
	}
}

func TestUnknownTokenIndistinguishable(t *testing.T) {
	s := New()

	emptyKnown := "known-but-empty"
	mustPut(t, s, sendReq(emptyKnown))
	s.Consume(emptyKnown) // drains it, key may linger or not

	unknown := s.Poll("never-seen")
	known := s.Poll(emptyKnown)

	if len(unknown) != len(known) {
		t.Fatalf("poll shapes differ: unknown=%d known=%d", len(unknown), len(known))
	}

	unknownC := s.Consume("never-seen-2")
	knownC := s.Consume(emptyKnown)
	if len(unknownC) != len(knownC) {
		t.Fatalf("consume shapes differ: unknown=%d known=%d", len(unknownC), len(knownC))
	}
}

func TestQueueDepthCapEvictsOldest(t *testing.T) {
	s := New()
	const token = "tok"

	var lastID string
	for i := 0; i < model.MaxQueueDepth+10; i++ {
		lastID = mustPut(t, s, sendReq(token))
	}

	got := s.Poll(token)
	if len(got) != model.MaxQueueDepth {
		t.Fatalf("expected cap of %d, got %d", model.MaxQueueDepth, len(got))
	}
	if got[len(got)-1].MessageID != lastID {
		t.Fatalf("expected newest message retained")
	}
}

func TestPutRejectsWhenStoreOverloaded(t *testing.T) {
	s := New()
	s.totalCount = MaxTotalMessages

	if _, err := s.Put(sendReq("tok")); err != ErrStoreOverloaded {
		t.Fatalf("expected ErrStoreOverloaded, got %v", err)
	}

	s.totalCount = MaxTotalMessages - 1
	if _, err := s.Put(sendReq("tok")); err != nil {
		t.Fatalf("expected Put to succeed just under the ceiling, got %v", err)
	}
}

func TestStatsNeverIncludesContent(t *testing.T) {
	s := New()
	mustPut(t, s, sendReq("tok"))

	stats := s.Stats()
	if stats.ActiveTokens != 1 || stats.TotalMessages != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
