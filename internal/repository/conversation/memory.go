package conversation

import (
	"context"
	"sync"

	"ghostwire/internal/model"
)

// MemoryRepository is the default Repository: an in-memory map, gone
// on process exit. Used whenever MONGO_URI is not configured.
type MemoryRepository struct {
	mu   sync.Mutex
	data map[key]*model.Conversation
}

type key struct {
	selfPub, peerPub string
}

// NewMemory constructs an empty MemoryRepository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{data: make(map[key]*model.Conversation)}
}

func (r *MemoryRepository) Append(_ context.Context, selfPub, peerPub string, msg model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{selfPub, peerPub}
	conv, ok := r.data[k]
	if !ok {
		conv = &model.Conversation{SelfPub: selfPub, PeerPub: peerPub}
		r.data[k] = conv
	}
	conv.History = append(conv.History, msg)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, selfPub, peerPub string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.data[key{selfPub, peerPub}]; ok {
		out := *conv
		out.History = append([]model.ChatMessage(nil), conv.History...)
		return &out, nil
	}
	return &model.Conversation{SelfPub: selfPub, PeerPub: peerPub}, nil
}

func (r *MemoryRepository) ListPeers(_ context.Context, selfPub string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var peers []string
	for k := range r.data {
		if k.selfPub == selfPub {
			peers = append(peers, k.peerPub)
		}
	}
	return peers, nil
}
