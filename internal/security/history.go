package security

import (
	"context"
	"fmt"

	"github.com/Rrens/event-assistant/internal/domain"
)

// EncryptedHistoryStore encrypts message content before it reaches the
// wrapped store. Roles stay in plaintext.
type EncryptedHistoryStore struct {
	inner domain.HistoryStore
	enc   *Encryptor
}

// NewEncryptedHistoryStore wraps inner with content encryption
func NewEncryptedHistoryStore(inner domain.HistoryStore, enc *Encryptor) *EncryptedHistoryStore {
	return &EncryptedHistoryStore{inner: inner, enc: enc}
}

// Get returns the decrypted messages of a session
func (s *EncryptedHistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	msgs, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		content, err := s.enc.DecryptString(m.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt message %d: %w", i, err)
		}
		out[i] = domain.ChatMessage{Role: m.Role, Content: content}
	}
	return out, nil
}

// Set encrypts each message and replaces the session log
func (s *EncryptedHistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	sealed, err := s.seal(messages)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *EncryptedHistoryStore) seal(messages []domain.ChatMessage) ([]domain.ChatMessage, error) {
	sealed := make([]domain.ChatMessage, len(messages))
	for i, m := range messages {
		content, err := s.enc.EncryptString(m.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt message: %w", err)
		}
		sealed[i] = domain.ChatMessage{Role: m.Role, Content: content}
	}
	return sealed, nil
}

// AppendMany encrypts each message and appends them in one operation
func (s *EncryptedHistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	sealed, err := s.seal(messages)
	if err != nil {
		return err
	}
	return s.inner.AppendMany(ctx, key, sealed)
}

// Append encrypts the content and appends it
func (s *EncryptedHistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	sealed, err := s.enc.EncryptString(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt message: %w", err)
	}
	return s.inner.Append(ctx, key, role, sealed)
}
