package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/jackc/pgx/v5"
)

// HistoryStore is a durable domain.HistoryStore over the chat_history table.
// Writers for one key are serialized by a transaction-scoped advisory lock.
type HistoryStore struct {
	db       *DB
	capacity int
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *DB, capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryStore{db: db, capacity: capacity}
}

// Get returns the messages of a session, oldest first
func (s *HistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	rows, err := s.db.q(ctx).Query(ctx,
		`SELECT role, content FROM chat_history WHERE session_key = $1 ORDER BY id`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Set replaces the session log with the most recent capacity messages
func (s *HistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	messages = domain.Tail(messages, s.capacity)
	return s.locked(ctx, key, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chat_history WHERE session_key = $1`, key); err != nil {
			return fmt.Errorf("failed to clear messages: %w", err)
		}

		batch := &pgx.Batch{}
		for _, m := range messages {
			batch.Queue(`INSERT INTO chat_history (session_key, role, content) VALUES ($1, $2, $3)`,
				key, string(m.Role), m.Content)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert messages: %w", err)
		}
		return nil
	})
}

// Append adds one message and trims the session to capacity
func (s *HistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	return s.AppendMany(ctx, key, []domain.ChatMessage{{Role: role, Content: content}})
}

// AppendMany inserts messages in order and trims the session in one transaction
func (s *HistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return s.locked(ctx, key, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range messages {
			batch.Queue(`INSERT INTO chat_history (session_key, role, content) VALUES ($1, $2, $3)`,
				key, string(m.Role), m.Content)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to create messages: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM chat_history
			WHERE session_key = $1 AND id NOT IN (
				SELECT id FROM chat_history WHERE session_key = $1 ORDER BY id DESC LIMIT $2
			)
		`, key, s.capacity); err != nil {
			return fmt.Errorf("failed to trim messages: %w", err)
		}
		return nil
	})
}

func (s *HistoryStore) locked(ctx context.Context, key string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock session: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
