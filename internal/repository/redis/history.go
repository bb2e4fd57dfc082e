package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/redis/go-redis/v9"
)

const historyPrefix = "history:"

// HistoryStore keeps each session as a Redis list. Appends run as
// MULTI/EXEC so the push and the trim are applied together.
type HistoryStore struct {
	client   *Client
	capacity int
	ttl      time.Duration
}

// NewHistoryStore creates a new Redis history store. A zero ttl keeps
// sessions until they are evicted by Redis itself.
func NewHistoryStore(client *Client, capacity int, ttl time.Duration) *HistoryStore {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryStore{client: client, capacity: capacity, ttl: ttl}
}

// Get returns the messages of a session, oldest first
func (s *HistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	raw, err := s.client.rdb.LRange(ctx, historyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Set replaces the session log with the most recent capacity messages
func (s *HistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	messages = domain.Tail(messages, s.capacity)
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	fullKey := historyPrefix + key
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fullKey)
		if len(values) > 0 {
			pipe.RPush(ctx, fullKey, values...)
			s.expire(ctx, pipe, fullKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// Append adds one message and evicts the oldest once over capacity
func (s *HistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	return s.AppendMany(ctx, key, []domain.ChatMessage{{Role: role, Content: content}})
}

// AppendMany pushes messages in order inside one MULTI/EXEC and trims to capacity
func (s *HistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	fullKey := historyPrefix + key
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, fullKey, values...)
		pipe.LTrim(ctx, fullKey, int64(-s.capacity), -1)
		s.expire(ctx, pipe, fullKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}
