package conversation

import (
	"context"
	"testing"

	"ghostwire/internal/model"
)

func TestMemoryRepositoryAppendAndGet(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	self, peer := "selfhex", "peerhex"
	msg1 := model.ChatMessage{Direction: model.Outbound, Text: "hi"}
	msg2 := model.ChatMessage{Direction: model.Inbound, Text: "hello back", Sender: peer}

	if err := repo.Append(ctx, self, peer, msg1); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := repo.Append(ctx, self, peer, msg2); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	conv, err := repo.Get(ctx, self, peer)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(conv.History) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.History))
	}
	if conv.History[0].Text != "hi" || conv.History[1].Text != "hello back" {
		t.Fatalf("history order wrong: %+v", conv.History)
	}
}

func TestMemoryRepositoryGetUnknownConversationIsEmpty(t *testing.T) {
	repo := NewMemory()
	conv, err := repo.Get(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(conv.History) != 0 {
		t.Fatalf("expected empty history, got %+v", conv.History)
	}
}

func TestMemoryRepositoryListPeers(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	repo.Append(ctx, "self", "peer1", model.ChatMessage{Text: "a"})
	repo.Append(ctx, "self", "peer2", model.ChatMessage{Text: "b"})
	repo.Append(ctx, "other", "peer3", model.ChatMessage{Text: "c"})

	peers, err := repo.ListPeers(ctx, "self")
	if err != nil {
		t.Fatalf("list peers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers for self, got %d: %v", len(peers), peers)
	}
}
