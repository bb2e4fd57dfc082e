package memory

import (
	"context"
	"sync"

	"github.com/Rrens/event-assistant/internal/domain"
)

// HistoryStore is a process-lifetime domain.HistoryStore
type HistoryStore struct {
	mu       sync.Mutex
	capacity int
	sessions map[string][]domain.ChatMessage
}

// NewHistoryStore creates a new in-memory history store
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryStore{
		capacity: capacity,
		sessions: make(map[string][]domain.ChatMessage),
	}
}

// Get returns the messages of a session, oldest first
func (h *HistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]domain.ChatMessage{}, h.sessions[key]...), nil
}

// Set replaces the session log with the most recent capacity messages
func (h *HistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[key] = append([]domain.ChatMessage(nil), domain.Tail(messages, h.capacity)...)
	return nil
}

// Append adds one message and evicts the oldest once over capacity
func (h *HistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	return h.AppendMany(ctx, key, []domain.ChatMessage{{Role: role, Content: content}})
}

// AppendMany adds messages in order and evicts the oldest once over capacity
func (h *HistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.sessions[key], messages...)
	if over := len(msgs) - h.capacity; over > 0 {
		msgs = append([]domain.ChatMessage(nil), msgs[over:]...)
	}
	h.sessions[key] = msgs
	return nil
}
