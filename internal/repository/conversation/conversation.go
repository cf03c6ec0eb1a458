// Package conversation is the client-side store of decrypted chat
// history, keyed by the (self_pub, peer_pub) tuple per spec.md §3.
// This is purely local state — the relay never sees it. Two
// implementations share the Repository interface: an in-memory map
// (the default, so the client runs standalone) and an optional
// mongo-driver-backed store for history that survives a restart,
// grounded on the teacher's internal/repository/user.UserRepo
// (FindOne/InsertOne/bson.M filters over a mongo.Collection).
package conversation

import (
	"context"

	"ghostwire/internal/model"
)

// Repository persists and retrieves per-peer conversation history.
type Repository interface {
	// Append adds msg to the conversation between selfPub and peerPub,
	// creating it if absent.
	Append(ctx context.Context, selfPub, peerPub string, msg model.ChatMessage) error

	// Get returns the conversation between selfPub and peerPub, or a
	// conversation with empty history if none exists yet.
	Get(ctx context.Context, selfPub, peerPub string) (*model.Conversation, error)

	// ListPeers returns every peer selfPub has a conversation with.
	ListPeers(ctx context.Context, selfPub string) ([]string, error)
}
